package structure

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// MassCeiling is the exclusive upper bound, in g/mol, for structures sent to
// calculators that apply the mass gate.
const MassCeiling = 1500.0

// exclusionTokens are substrings that mark metals, inorganic ions and
// disconnected fragments. Several are prefixes ("[Ca+") so that any charge
// state matches.
var exclusionTokens = []string{
	".", "[Ag]", "[Al]", "[Au]", "[As]", "[As+", "[B]", "[B-]", "[Br-]",
	"[Ca]", "[Ca+", "[Cl-]", "[Co]", "[Co+", "[Fe]", "[Fe+", "[Hg]", "[K]",
	"[K+", "[Li]", "[Li+", "[Mg]", "[Mg+", "[Na]", "[Na+", "[Pb]", "[Pb2+]",
	"[Pb+", "[Pt]", "[Sc]", "[Si]", "[Si+", "[SiH]", "[Sn]", "[W]",
}

// ExclusionTokens returns a copy of the exclusion token set.
func ExclusionTokens() []string {
	out := make([]string, len(exclusionTokens))
	copy(out, exclusionTokens)
	return out
}

// ExcludedToken returns the first exclusion token contained in s.
func ExcludedToken(s string) (string, bool) {
	for _, tok := range exclusionTokens {
		if strings.Contains(s, tok) {
			return tok, true
		}
	}
	return "", false
}

// CheckExclusions returns InvalidStructure when s contains an exclusion token.
func CheckExclusions(s string) error {
	if tok, ok := ExcludedToken(s); ok {
		return errors.InvalidStructure("structure contains an excluded token").
			WithDetail(fmt.Sprintf("token=%q", tok))
	}
	return nil
}

// CheckMass returns TooLarge when mass is at or above MassCeiling or is not
// a positive number.
func CheckMass(mass float64) error {
	if math.IsNaN(mass) {
		return errors.TooLarge("structure mass is not a number")
	}
	if mass >= MassCeiling {
		return errors.TooLarge("structure mass exceeds ceiling").
			WithDetail(fmt.Sprintf("mass=%g ceiling=%g", mass, MassCeiling))
	}
	if mass <= 0 {
		return errors.TooLarge("structure mass is not positive").
			WithDetail(fmt.Sprintf("mass=%g", mass))
	}
	return nil
}

// HasBrackets reports whether s contains '[' or ']'.
func HasBrackets(s string) bool {
	return strings.ContainsAny(s, "[]")
}

// CheckBrackets returns UnsupportedStructure when s contains brackets.
func CheckBrackets(s string, c Calculator) error {
	if HasBrackets(s) {
		return errors.UnsupportedStructure("calculator cannot process charged or bracketed species").
			WithDetail(fmt.Sprintf("calculator=%s structure=%s", c, s))
	}
	return nil
}
