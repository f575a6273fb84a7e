package calculator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

func errUnsupported(calc structure.Calculator, prop string) error {
	return errors.New(errors.ErrCodeUnsupportedProperty, "property not supported by calculator").
		WithDetail(fmt.Sprintf("calc=%s prop=%s", calc, prop))
}

func unavailableText(calc structure.Calculator, prop string) string {
	return fmt.Sprintf("%s is not available from %s", prop, calc)
}

// Info describes one registered calculator.
type Info struct {
	Name   string           `json:"name"`
	Policy structure.Policy `json:"policy"`
	Props  []string         `json:"props"`
}

// Registry routes requests to calculators by tag.
type Registry struct {
	calcs    map[structure.Calculator]Calculator
	validate *validator.Validate
	logger   logging.Logger
	metrics  *prometheus.BrokerMetrics
}

// NewRegistry creates a Registry over calcs. A later calculator with the same
// name replaces an earlier one.
func NewRegistry(logger logging.Logger, metrics *prometheus.BrokerMetrics, calcs ...Calculator) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopBrokerMetrics()
	}
	r := &Registry{
		calcs:    make(map[structure.Calculator]Calculator, len(calcs)),
		validate: validator.New(),
		logger:   logger.Named("calculator"),
		metrics:  metrics,
	}
	for _, c := range calcs {
		r.calcs[c.Name()] = c
	}
	return r
}

// Validate checks req field constraints.
func (r *Registry) Validate(req *Request) error {
	if req == nil {
		return errors.InvalidParam("request is required")
	}
	if err := r.validate.Struct(req); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid calculation request").WithDetail(err.Error())
	}
	return nil
}

// Lookup returns the calculator registered for tag.
func (r *Registry) Lookup(tag string) (Calculator, error) {
	calc, err := structure.ParseCalculator(tag)
	if err != nil {
		return nil, err
	}
	c, ok := r.calcs[calc]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownCalculator, "calculator not configured").WithDetail("calc=" + tag)
	}
	return c, nil
}

// Dispatch validates req and runs it on its calculator. An error is returned
// only for invalid requests and unknown calculators; calculation failures are
// reported in the envelope.
func (r *Registry) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if err := r.Validate(req); err != nil {
		return nil, err
	}
	c, err := r.Lookup(req.Calc)
	if err != nil {
		return nil, err
	}

	// Adapters see the canonical tag.
	normalized := *req
	normalized.Calc = c.Name().String()

	if !supports(c, req.Prop) {
		resp := newResponse(&normalized)
		err := errUnsupported(c.Name(), req.Prop)
		r.record(c.Name().String(), req.Prop, prometheus.OutcomeRejected, 0)
		return resp.fail(unavailableText(c.Name(), req.Prop), err), nil
	}

	start := time.Now()
	resp := c.Calculate(ctx, &normalized)
	outcome := prometheus.OutcomeSuccess
	if !resp.Valid {
		outcome = prometheus.OutcomeError
	}
	r.record(c.Name().String(), req.Prop, outcome, time.Since(start))

	r.logger.WithContext(ctx).Info("calculation completed",
		logging.String(logging.FieldCalculator, resp.Calc),
		logging.String(logging.FieldProperty, resp.Prop),
		logging.Bool("valid", resp.Valid),
		logging.Duration("duration", time.Since(start)))
	return resp, nil
}

func (r *Registry) record(calc, prop, outcome string, d time.Duration) {
	r.metrics.CalculatorRequestsTotal.WithLabelValues(calc, prop, outcome).Inc()
	if d > 0 {
		r.metrics.CalculatorDuration.WithLabelValues(calc).Observe(d.Seconds())
	}
}

// Catalog lists registered calculators sorted by name.
func (r *Registry) Catalog() []Info {
	out := make([]Info, 0, len(r.calcs))
	for name, c := range r.calcs {
		out = append(out, Info{Name: name.String(), Policy: name.Policy(), Props: c.Props()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
