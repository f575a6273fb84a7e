package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
)

// MockStandardizer is a testify mock of structure.Standardizer.
type MockStandardizer struct {
	mock.Mock
}

func (m *MockStandardizer) ApplyActions(ctx context.Context, smiles string, actions []structure.Action) (*structure.ActionResult, error) {
	args := m.Called(ctx, smiles, actions)
	switch r := args.Get(0).(type) {
	case func(context.Context, string, []structure.Action) *structure.ActionResult:
		return r(ctx, smiles, actions), args.Error(1)
	case *structure.ActionResult:
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStandardizer) GetMass(ctx context.Context, smiles string) (*structure.MassResult, error) {
	args := m.Called(ctx, smiles)
	if r := args.Get(0); r != nil {
		return r.(*structure.MassResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTautomerResolver is a testify mock of structure.TautomerResolver.
type MockTautomerResolver struct {
	mock.Mock
}

func (m *MockTautomerResolver) ResolveMajorTautomer(ctx context.Context, smiles string) (*structure.TautomerResult, error) {
	args := m.Called(ctx, smiles)
	switch r := args.Get(0).(type) {
	case func(context.Context, string) *structure.TautomerResult:
		return r(ctx, smiles), args.Error(1)
	case *structure.TautomerResult:
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// Results builds an ActionResult.
func Results(structures ...string) *structure.ActionResult {
	return &structure.ActionResult{Results: structures}
}

// Mass builds a MassResult with a single entry.
func Mass(m float64) *structure.MassResult {
	return &structure.MassResult{Data: []structure.MassDetail{{Mass: m}}}
}

// Tautomer builds a TautomerResult carrying smiles.
func Tautomer(smiles string) *structure.TautomerResult {
	return &structure.TautomerResult{Result: &structure.TautomerPayload{
		StructureData: &structure.StructureData{Structure: smiles, Format: "smiles"},
	}}
}
