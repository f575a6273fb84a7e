package calculator

import (
	"context"
	"encoding/json"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/qsar"
)

// QSARService is a QSAR prediction client.
type QSARService interface {
	Calculate(ctx context.Context, q qsar.Query) (json.RawMessage, error)
}

const (
	PropHenrysLawCon = "henrys_law_con"
	PropKoc          = "koc"
	PropMolDiss      = "mol_diss"
)

var qsarProps = map[structure.Calculator][]string{
	structure.CalculatorEPI: {
		PropMeltingPoint, PropBoilingPoint, PropWaterSol, PropVaporPress,
		PropHenrysLawCon, PropKowNoPH, PropKoc,
	},
	structure.CalculatorSparc: {
		PropBoilingPoint, PropWaterSol, PropVaporPress, PropMolDiss,
		PropIonCon, PropHenrysLawCon, PropKowNoPH, PropKowWithPH,
	},
	structure.CalculatorMeasured: {
		PropMeltingPoint, PropBoilingPoint, PropWaterSol, PropVaporPress,
		PropHenrysLawCon, PropKowNoPH, PropKoc,
	},
}

var qsarDisplay = map[structure.Calculator]string{
	structure.CalculatorEPI:      "EPI",
	structure.CalculatorSparc:    "SPARC",
	structure.CalculatorMeasured: "measured",
}

type qsarCalc struct {
	calc    structure.Calculator
	filter  smilesfilter.Service
	service QSARService
	logger  logging.Logger
}

// NewQSAR creates the adapter for one of epi, sparc or measured.
func NewQSAR(calc structure.Calculator, filter smilesfilter.Service, service QSARService, logger logging.Logger) Calculator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &qsarCalc{calc: calc, filter: filter, service: service, logger: logger.Named(calc.String())}
}

func (c *qsarCalc) Name() structure.Calculator { return c.calc }

func (c *qsarCalc) Props() []string {
	return append([]string(nil), qsarProps[c.calc]...)
}

func (c *qsarCalc) Calculate(ctx context.Context, req *Request) *Response {
	resp := newResponse(req)
	smiles, ok := prepare(ctx, c.filter, c.calc, qsarDisplay[c.calc], req, resp, c.logger)
	if !ok {
		return resp
	}

	data, err := c.service.Calculate(ctx, qsar.Query{
		Structure: smiles,
		Prop:      req.Prop,
		Method:    req.Method,
		PH:        req.PH,
	})
	if err != nil {
		c.logger.WithContext(ctx).Warn("QSAR request failed",
			logging.String(logging.FieldProperty, req.Prop), logging.Err(err))
		return resp.fail("cannot reach "+c.calc.String()+" calculator", err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return resp.fail("cannot reach "+c.calc.String()+" calculator", err)
	}
	return resp.succeed(v)
}
