package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/client"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

type fakeBackend struct {
	calls  []string
	pchem  *client.PchemRequest
	err    error
	gate   *client.GateResult
	closed bool
}

func (f *fakeBackend) FilterSMILES(_ context.Context, smiles string) (*client.FilterResult, error) {
	f.calls = append(f.calls, "filter")
	return &client.FilterResult{SMILES: smiles, FilteredSMILES: "OCC"}, f.err
}

func (f *fakeBackend) FilterForCalculator(_ context.Context, smiles, calc string) (*client.FilterResult, error) {
	f.calls = append(f.calls, "filter:"+calc)
	return &client.FilterResult{SMILES: smiles, FilteredSMILES: "CCO", Calculator: calc}, f.err
}

func (f *fakeBackend) Validate(_ context.Context, smiles string) (*client.Validity, error) {
	f.calls = append(f.calls, "validate")
	return &client.Validity{Valid: true, SMILES: smiles, ProcessedSMILES: "OCC"}, f.err
}

func (f *fakeBackend) ValidateForCalculator(_ context.Context, smiles, calc string) (*client.GateResult, error) {
	f.calls = append(f.calls, "validate:"+calc)
	if f.gate != nil {
		return f.gate, f.err
	}
	return &client.GateResult{SMILES: smiles, Calculator: calc, Valid: true}, f.err
}

func (f *fakeBackend) Pchem(_ context.Context, req *client.PchemRequest) (*client.PchemResponse, error) {
	f.calls = append(f.calls, "pchem")
	f.pchem = req
	return &client.PchemResponse{Calc: req.Calc, Prop: req.Prop, Chemical: req.Chemical, Data: 1.25, Valid: true}, f.err
}

func (f *fakeBackend) Calculators(_ context.Context) ([]client.CalculatorInfo, error) {
	f.calls = append(f.calls, "calculators")
	return []client.CalculatorInfo{
		{Name: "chemaxon", Policy: client.Policy{SkipMassCheck: true}, Props: []string{"water_sol", "kow_no_ph"}},
		{Name: "test", Props: []string{"melting_point"}},
	}, f.err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func run(t *testing.T, backend Backend, args ...string) (string, error) {
	t.Helper()
	factory := func(*RootOptions, *config.Config, logging.Logger) (Backend, error) { return backend, nil }
	if backend == nil {
		factory = func(*RootOptions, *config.Config, logging.Logger) (Backend, error) {
			return nil, errors.Internal("backend must not be built")
		}
	}
	cmd := NewRootCommand(WithBackendFactory(factory), WithCLILogger(logging.NewNopLogger()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	// --server skips config loading; the factory decides what runs.
	cmd.SetArgs(append([]string{"--server", "http://cts.test"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "ctsbroker", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"filter", "validate", "pchem", "calculators", "version"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"config", "env-file", "log-level", "output", "timeout", "server"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestFilter(t *testing.T) {
	b := &fakeBackend{}
	out, err := run(t, b, "filter", "CCO")
	require.NoError(t, err)
	assert.Equal(t, "OCC\n", out)
	assert.Equal(t, []string{"filter"}, b.calls)
	assert.True(t, b.closed)
}

func TestFilter_ForCalculatorJSON(t *testing.T) {
	b := &fakeBackend{}
	out, err := run(t, b, "-o", "json", "filter", "C[C@H](N)O", "--calc", "epi")
	require.NoError(t, err)

	var got client.FilterResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, client.FilterResult{SMILES: "C[C@H](N)O", FilteredSMILES: "CCO", Calculator: "epi"}, got)
	assert.Equal(t, []string{"filter:epi"}, b.calls)
}

func TestFilter_RequiresOneArg(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "filter")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, err := run(t, &fakeBackend{}, "validate", "CCO")
	require.NoError(t, err)
	assert.Equal(t, "valid OCC\n", out)
}

func TestValidate_Rejected(t *testing.T) {
	b := &fakeBackend{gate: &client.GateResult{
		SMILES: "CCCC", Calculator: "test", Code: "STRUCT_002", Reason: "structure mass is outside the accepted range",
	}}
	out, err := run(t, b, "validate", "CCCC", "--calc", "test")
	require.NoError(t, err)
	assert.Equal(t, "rejected by test: structure mass is outside the accepted range (STRUCT_002)\n", out)
}

func TestPchem(t *testing.T) {
	b := &fakeBackend{}
	out, err := run(t, b, "pchem", "CCO", "--calc", "chemaxon", "--prop", "kow_wph", "--ph", "7.4", "--method", "KLOP")
	require.NoError(t, err)
	assert.Equal(t, "chemaxon kow_wph: 1.25\n", out)

	require.NotNil(t, b.pchem)
	assert.Equal(t, "CCO", b.pchem.Chemical)
	assert.Equal(t, 7.4, b.pchem.PH)
	assert.Equal(t, "KLOP", b.pchem.Method)
	assert.Equal(t, "single", b.pchem.RunType)
}

func TestPchem_RequiredFlags(t *testing.T) {
	b := &fakeBackend{}
	_, err := run(t, b, "pchem", "CCO")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Empty(t, b.calls)
}

func TestCalculators_Table(t *testing.T) {
	out, err := run(t, &fakeBackend{}, "-o", "table", "calculators")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "chemaxon  true")
	assert.Contains(t, out, "water_sol,kow_no_ph")
	assert.Contains(t, out, "melting_point")
}

func TestBackendErrorPropagates(t *testing.T) {
	b := &fakeBackend{err: errors.ServiceUnavailable("standardizer unavailable")}
	_, err := run(t, b, "filter", "CCO")
	assert.Equal(t, errors.ErrCodeStandardizerUnavailable, errors.GetCode(err))
}

func TestVersion_NoBackend(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ctsbroker 1.2.3")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "-o", "xml", "calculators")
	assert.Equal(t, errors.ErrCodeBadRequest, errors.GetCode(err))
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"A", "LONG"}, [][]string{{"xyz", "1"}, {"q"}})
	assert.Equal(t, "A    LONG\n---  ----\nxyz  1   \nq        \n", got)
	assert.Empty(t, FormatTable(nil, nil))
}
