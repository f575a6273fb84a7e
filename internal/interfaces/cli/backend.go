package cli

import (
	"context"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/bootstrap"
	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/client"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Backend runs broker operations for the commands. Results use the SDK wire
// types so local and remote runs print the same thing.
type Backend interface {
	FilterSMILES(ctx context.Context, smiles string) (*client.FilterResult, error)
	FilterForCalculator(ctx context.Context, smiles, calc string) (*client.FilterResult, error)
	Validate(ctx context.Context, smiles string) (*client.Validity, error)
	ValidateForCalculator(ctx context.Context, smiles, calc string) (*client.GateResult, error)
	Pchem(ctx context.Context, req *client.PchemRequest) (*client.PchemResponse, error)
	Calculators(ctx context.Context) ([]client.CalculatorInfo, error)
	Close() error
}

func defaultBackend(opts *RootOptions, cfg *config.Config, logger logging.Logger) (Backend, error) {
	if opts.ServerAddr != "" {
		c, err := client.NewClient(opts.ServerAddr,
			client.WithTimeout(opts.Timeout),
			client.WithUserAgent("ctsbroker-cli/"+Version))
		if err != nil {
			return nil, err
		}
		return remoteBackend{c}, nil
	}
	b, err := bootstrap.New(cfg, bootstrap.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return newLocalBackend(b.Filter, b.Registry, b.Close), nil
}

type remoteBackend struct {
	*client.Client
}

func (remoteBackend) Close() error { return nil }

// localBackend runs the pipeline in process.
type localBackend struct {
	filter   smilesfilter.Service
	registry *calculator.Registry
	closer   func() error
}

func newLocalBackend(filter smilesfilter.Service, registry *calculator.Registry, closer func() error) *localBackend {
	return &localBackend{filter: filter, registry: registry, closer: closer}
}

func (b *localBackend) FilterSMILES(ctx context.Context, smiles string) (*client.FilterResult, error) {
	out, err := b.filter.FilterGeneric(ctx, smiles)
	if err != nil {
		return nil, err
	}
	return &client.FilterResult{SMILES: smiles, FilteredSMILES: out}, nil
}

func (b *localBackend) FilterForCalculator(ctx context.Context, smiles, calc string) (*client.FilterResult, error) {
	c, err := structure.ParseCalculator(calc)
	if err != nil {
		return nil, err
	}
	out, err := b.filter.FilterForCalculator(ctx, smiles, c)
	if err != nil {
		return nil, err
	}
	return &client.FilterResult{SMILES: smiles, FilteredSMILES: out, Calculator: c.String()}, nil
}

func (b *localBackend) Validate(ctx context.Context, smiles string) (*client.Validity, error) {
	v, err := b.filter.IsValidStructure(ctx, smiles)
	if err != nil {
		return nil, err
	}
	return &client.Validity{Valid: v.Valid, SMILES: v.SMILES, ProcessedSMILES: v.ProcessedSMILES}, nil
}

// ValidateForCalculator reports gate rejections in the result, like the API.
func (b *localBackend) ValidateForCalculator(ctx context.Context, smiles, calc string) (*client.GateResult, error) {
	c, err := structure.ParseCalculator(calc)
	if err != nil {
		return nil, err
	}
	res := &client.GateResult{SMILES: smiles, Calculator: c.String(), Valid: true}
	if err := b.filter.Validate(ctx, smiles, c); err != nil {
		if !errors.IsRejection(err) {
			return nil, err
		}
		code := errors.GetCode(err)
		res.Valid = false
		res.Code = code.String()
		res.Reason = errors.DefaultMessageForCode(code)
	}
	return res, nil
}

func (b *localBackend) Pchem(ctx context.Context, req *client.PchemRequest) (*client.PchemResponse, error) {
	resp, err := b.registry.Dispatch(ctx, &calculator.Request{
		Chemical:  req.Chemical,
		Calc:      req.Calc,
		Prop:      req.Prop,
		Method:    req.Method,
		PH:        req.PH,
		Mass:      req.Mass,
		SessionID: req.SessionID,
		Node:      req.Node,
		RunType:   req.RunType,
		Workflow:  req.Workflow,
	})
	if err != nil {
		return nil, err
	}
	return &client.PchemResponse{
		Calc:           resp.Calc,
		Prop:           resp.Prop,
		Method:         resp.Method,
		Chemical:       resp.Chemical,
		FilteredSMILES: resp.FilteredSMILES,
		Node:           resp.Node,
		RunType:        resp.RunType,
		Workflow:       resp.Workflow,
		SessionID:      resp.SessionID,
		Data:           resp.Data,
		Valid:          resp.Valid,
		Error:          resp.Error,
	}, nil
}

func (b *localBackend) Calculators(_ context.Context) ([]client.CalculatorInfo, error) {
	catalog := b.registry.Catalog()
	out := make([]client.CalculatorInfo, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, client.CalculatorInfo{
			Name: info.Name,
			Policy: client.Policy{
				SkipExclusions: info.Policy.SkipExclusions,
				SkipMassCheck:  info.Policy.SkipMassCheck,
				ClearStereo:    info.Policy.ClearStereo,
				RejectBrackets: info.Policy.RejectBrackets,
			},
			Props: info.Props,
		})
	}
	return out, nil
}

func (b *localBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
