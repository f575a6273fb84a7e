// Package structure holds the domain model of the SMILES normalization
// pipeline: calculator identities and their filter policies, the exclusion
// token set and mass ceiling, standardizer actions, and the contracts of the
// two external services the pipeline consumes.
package structure

import (
	"sort"
	"strings"

	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Calculator identifies the downstream property calculator a structure is
// being prepared for.
type Calculator string

const (
	CalculatorChemaxon Calculator = "chemaxon"
	CalculatorEPI      Calculator = "epi"
	CalculatorSparc    Calculator = "sparc"
	CalculatorMeasured Calculator = "measured"
	CalculatorTest     Calculator = "test"
)

// Policy is the per-calculator filter policy.
type Policy struct {
	// SkipExclusions disables the exclusion token check on the calculator
	// path. Generic validation always runs it.
	SkipExclusions bool `json:"skip_exclusions"`
	// SkipMassCheck disables the mass gate.
	SkipMassCheck bool `json:"skip_mass_check"`
	// ClearStereo runs clearStereo then untransform.
	ClearStereo bool `json:"clear_stereo"`
	// RejectBrackets rejects structures that still contain '[' or ']'.
	RejectBrackets bool `json:"reject_brackets"`
}

var policies = map[Calculator]Policy{
	CalculatorChemaxon: {SkipExclusions: true, SkipMassCheck: true},
	CalculatorEPI:      {ClearStereo: true, RejectBrackets: true},
	CalculatorSparc:    {ClearStereo: true},
	CalculatorMeasured: {ClearStereo: true, RejectBrackets: true},
	CalculatorTest:     {},
}

// Policy returns the filter policy of c. Unknown calculators get the zero
// policy, which applies only the mass gate.
func (c Calculator) Policy() Policy {
	return policies[c]
}

// Valid reports whether c is a known calculator.
func (c Calculator) Valid() bool {
	_, ok := policies[c]
	return ok
}

func (c Calculator) String() string { return string(c) }

// ParseCalculator resolves a calculator tag, case-insensitively.
func ParseCalculator(s string) (Calculator, error) {
	c := Calculator(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errors.New(errors.ErrCodeUnknownCalculator, "unknown calculator").WithDetail(s)
	}
	return c, nil
}

// Calculators returns every known calculator, sorted by tag.
func Calculators() []Calculator {
	out := make([]Calculator, 0, len(policies))
	for c := range policies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
