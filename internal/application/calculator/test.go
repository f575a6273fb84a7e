package calculator

import (
	"context"
	"math"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/testsuite"
)

// Predictor is the TEST suite client.
type Predictor interface {
	Predict(ctx context.Context, key, smiles string) (*testsuite.Prediction, error)
}

const (
	PropMeltingPoint = "melting_point"
	PropBoilingPoint = "boiling_point"
	PropVaporPress   = "vapor_press"
)

// testKeys maps prop keys to the property names TEST understands.
var testKeys = map[string]string{
	PropMeltingPoint: "MeltingPoint",
	PropBoilingPoint: "BoilingPoint",
	PropWaterSol:     "WaterSolubility",
	PropVaporPress:   "VaporPressure",
}

type testCalc struct {
	filter    smilesfilter.Service
	predictor Predictor
	masses    structure.Standardizer
	logger    logging.Logger
}

// NewTEST creates the TEST adapter. masses supplies the molecular mass for
// water solubility when the request carries none.
func NewTEST(filter smilesfilter.Service, predictor Predictor, masses structure.Standardizer, logger logging.Logger) Calculator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &testCalc{filter: filter, predictor: predictor, masses: masses, logger: logger.Named("test")}
}

func (c *testCalc) Name() structure.Calculator { return structure.CalculatorTest }

func (c *testCalc) Props() []string {
	return []string{PropMeltingPoint, PropBoilingPoint, PropWaterSol, PropVaporPress}
}

func (c *testCalc) Calculate(ctx context.Context, req *Request) *Response {
	resp := newResponse(req)
	resp.Method = ""
	smiles, ok := prepare(ctx, c.filter, structure.CalculatorTest, "TEST", req, resp, c.logger)
	if !ok {
		return resp
	}
	log := c.logger.WithContext(ctx)

	key, ok := testKeys[req.Prop]
	if !ok {
		return resp.fail(NotAvailable, errUnsupported(structure.CalculatorTest, req.Prop))
	}

	pred, err := c.predictor.Predict(ctx, key, smiles)
	if err != nil {
		log.Warn("TEST request failed", logging.String(logging.FieldProperty, req.Prop), logging.Err(err))
		if httpclient.StatusCode(err) != 0 {
			return resp.fail("TEST could not process chemical", err)
		}
		return resp.fail("timed out", err)
	}

	v, _ := pred.Value(key)
	if v == testsuite.Missing {
		return resp.succeed(NotAvailable)
	}
	if req.Prop != PropWaterSol {
		return resp.succeed(v)
	}

	mass := req.Mass
	if mass <= 0 {
		if mass, err = c.lookupMass(ctx, smiles); err != nil {
			log.Warn("mass lookup for water solubility failed", logging.Err(err))
			return resp.fail(NotAvailable, err)
		}
	}
	return resp.succeed(WaterSolubilityMgL(mass, v))
}

func (c *testCalc) lookupMass(ctx context.Context, smiles string) (float64, error) {
	res, err := c.masses.GetMass(ctx, smiles)
	if err != nil {
		return 0, err
	}
	return res.Mass()
}

// WaterSolubilityMgL converts -log10(mol/L) to mg/L for a structure of the
// given mass in g/mol.
func WaterSolubilityMgL(mass, negLogMolar float64) float64 {
	return 1000 * mass * math.Pow(10, -negLogMolar)
}
