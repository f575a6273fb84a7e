package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/pkg/client"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

type stubFilter struct {
	validateErr error
}

func (s *stubFilter) FilterGeneric(_ context.Context, smiles string) (string, error) {
	return "gen:" + smiles, nil
}

func (s *stubFilter) FilterForCalculator(_ context.Context, smiles string, calc structure.Calculator) (string, error) {
	return calc.String() + ":" + smiles, nil
}

func (s *stubFilter) IsValidStructure(_ context.Context, smiles string) (*structure.Validity, error) {
	return &structure.Validity{Valid: true, SMILES: smiles, ProcessedSMILES: "gen:" + smiles}, nil
}

func (s *stubFilter) Validate(_ context.Context, _ string, _ structure.Calculator) error {
	return s.validateErr
}

type stubCalc struct{}

func (stubCalc) Name() structure.Calculator { return structure.CalculatorTest }
func (stubCalc) Props() []string            { return []string{"melting_point"} }

func (stubCalc) Calculate(_ context.Context, req *calculator.Request) *calculator.Response {
	return &calculator.Response{Calc: req.Calc, Prop: req.Prop, Chemical: req.Chemical, Data: 42.0, Valid: true}
}

func newTestBackend(filter *stubFilter) *localBackend {
	return newLocalBackend(filter, calculator.NewRegistry(nil, nil, stubCalc{}), nil)
}

func TestLocalBackend_Filter(t *testing.T) {
	b := newTestBackend(&stubFilter{})
	ctx := context.Background()

	res, err := b.FilterSMILES(ctx, "CCO")
	require.NoError(t, err)
	assert.Equal(t, "gen:CCO", res.FilteredSMILES)

	res, err = b.FilterForCalculator(ctx, "CCO", " EPI ")
	require.NoError(t, err)
	assert.Equal(t, &client.FilterResult{SMILES: "CCO", FilteredSMILES: "epi:CCO", Calculator: "epi"}, res)

	_, err = b.FilterForCalculator(ctx, "CCO", "opera")
	assert.Equal(t, errors.ErrCodeUnknownCalculator, errors.GetCode(err))

	v, err := b.Validate(ctx, "CCO")
	require.NoError(t, err)
	assert.Equal(t, "gen:CCO", v.ProcessedSMILES)
}

func TestLocalBackend_ValidateForCalculator(t *testing.T) {
	ctx := context.Background()

	g, err := newTestBackend(&stubFilter{}).ValidateForCalculator(ctx, "CCO", "test")
	require.NoError(t, err)
	assert.True(t, g.Valid)

	g, err = newTestBackend(&stubFilter{validateErr: errors.TooLarge("mass too large")}).ValidateForCalculator(ctx, "CCO", "test")
	require.NoError(t, err)
	assert.False(t, g.Valid)
	assert.Equal(t, errors.ErrCodeTooLarge.String(), g.Code)
	assert.NotEmpty(t, g.Reason)

	_, err = newTestBackend(&stubFilter{validateErr: errors.ServiceUnavailable("down")}).ValidateForCalculator(ctx, "CCO", "test")
	assert.Equal(t, errors.ErrCodeStandardizerUnavailable, errors.GetCode(err))
}

func TestLocalBackend_Pchem(t *testing.T) {
	b := newTestBackend(&stubFilter{})
	ctx := context.Background()

	resp, err := b.Pchem(ctx, &client.PchemRequest{Chemical: "CCO", Calc: "TEST", Prop: "melting_point"})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "test", resp.Calc)
	assert.Equal(t, 42.0, resp.Data)

	resp, err = b.Pchem(ctx, &client.PchemRequest{Chemical: "CCO", Calc: "test", Prop: "water_sol"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	_, err = b.Pchem(ctx, &client.PchemRequest{Calc: "test", Prop: "melting_point"})
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestLocalBackend_Calculators(t *testing.T) {
	calcs, err := newTestBackend(&stubFilter{}).Calculators(context.Background())
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, "test", calcs[0].Name)
	assert.Equal(t, []string{"melting_point"}, calcs[0].Props)
	assert.Equal(t, structure.CalculatorTest.Policy().SkipMassCheck, calcs[0].Policy.SkipMassCheck)
}
