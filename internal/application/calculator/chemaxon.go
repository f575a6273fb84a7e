package calculator

import (
	"context"
	"strings"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/jchem"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// JchemProperties is the subset of the JChem client used by the chemaxon
// adapter.
type JchemProperties interface {
	PKa(ctx context.Context, smiles string) (*jchem.PKaResult, error)
	Solubility(ctx context.Context, smiles string) (*jchem.SolubilityResult, error)
	LogP(ctx context.Context, smiles, method string) (*jchem.LogPResult, error)
	LogD(ctx context.Context, smiles, method string) (*jchem.LogDResult, error)
}

const (
	PropWaterSol   = "water_sol"
	PropWaterSolPH = "water_sol_ph"
	PropKowNoPH    = "kow_no_ph"
	PropKowWithPH  = "kow_wph"
	PropIonCon     = "ion_con"
)

// defaultKowMethod is used for kow props when the request names no method.
const defaultKowMethod = "KLOP"

type chemaxon struct {
	filter smilesfilter.Service
	jchem  JchemProperties
	logger logging.Logger
}

// NewChemaxon creates the chemaxon adapter.
func NewChemaxon(filter smilesfilter.Service, props JchemProperties, logger logging.Logger) Calculator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &chemaxon{filter: filter, jchem: props, logger: logger.Named("chemaxon")}
}

func (c *chemaxon) Name() structure.Calculator { return structure.CalculatorChemaxon }

func (c *chemaxon) Props() []string {
	return []string{PropWaterSol, PropIonCon, PropKowNoPH, PropKowWithPH, PropWaterSolPH}
}

func (c *chemaxon) Calculate(ctx context.Context, req *Request) *Response {
	resp := newResponse(req)
	smiles, ok := prepare(ctx, c.filter, structure.CalculatorChemaxon, "ChemAxon", req, resp, c.logger)
	if !ok {
		return resp
	}

	method := ""
	if req.Prop == PropKowNoPH || req.Prop == PropKowWithPH {
		method = strings.ToUpper(req.Method)
		if method == "" {
			method = defaultKowMethod
		}
		if !jchem.ValidMethod(method) {
			return resp.fail("method "+req.Method+" not recognized", nil)
		}
		resp.Method = method
	} else {
		resp.Method = ""
	}

	data, err := c.property(ctx, req.Prop, smiles, method, req.PH)
	if errors.IsCode(err, errors.ErrCodeUnsupportedProperty) {
		return resp.fail(unavailableText(structure.CalculatorChemaxon, req.Prop), err)
	}
	if err != nil {
		c.logger.WithContext(ctx).Warn("chemaxon calculation failed",
			logging.String(logging.FieldProperty, req.Prop), logging.Err(err))
		return resp.fail("cannot reach chemaxon calculator", err)
	}
	return resp.succeed(data)
}

func (c *chemaxon) property(ctx context.Context, prop, smiles, method string, ph float64) (interface{}, error) {
	switch prop {
	case PropWaterSol:
		res, err := c.jchem.Solubility(ctx, smiles)
		if err != nil {
			return nil, err
		}
		return valueOrNA(res.Intrinsic()), nil
	case PropWaterSolPH:
		res, err := c.jchem.Solubility(ctx, smiles)
		if err != nil {
			return nil, err
		}
		return valueOrNA(res.AtPH(ph)), nil
	case PropKowNoPH:
		res, err := c.jchem.LogP(ctx, smiles, method)
		if err != nil {
			return nil, err
		}
		if res.LogPNonionic == nil {
			return NotAvailable, nil
		}
		return *res.LogPNonionic, nil
	case PropKowWithPH:
		res, err := c.jchem.LogD(ctx, smiles, method)
		if err != nil {
			return nil, err
		}
		return valueOrNA(res.At(ph)), nil
	case PropIonCon:
		res, err := c.jchem.PKa(ctx, smiles)
		if err != nil {
			return nil, err
		}
		return map[string][]float64{"pKa": nonNil(res.MostAcidic), "pKb": nonNil(res.MostBasic)}, nil
	}
	return nil, errUnsupported(structure.CalculatorChemaxon, prop)
}

func valueOrNA(v float64, ok bool) interface{} {
	if !ok {
		return NotAvailable
	}
	return v
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
