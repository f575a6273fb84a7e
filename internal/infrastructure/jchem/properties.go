package jchem

import (
	"math"
	"strings"
)

// Property is one JChem calculation endpoint with its default parameters.
type Property struct {
	Name   string
	Path   string
	params map[string]interface{}
}

// Params returns a fresh copy of the default parameters.
func (p Property) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(p.params)+2)
	for k, v := range p.params {
		out[k] = v
	}
	return out
}

const calculatePath = "/webservices/rest-v0/util/calculate/"

var (
	PropertyPKa = Property{
		Name: "pKa",
		Path: calculatePath + "pKa",
		params: map[string]interface{}{
			"pHLower":                 0.0,
			"pHUpper":                 14.0,
			"pHStep":                  0.1,
			"temperature":             298.0,
			"micro":                   false,
			"considerTautomerization": true,
			"pKaLowerLimit":           0.0,
			"pKaUpperLimit":           14.0,
			"prefix":                  "DYNAMIC",
		},
	}

	PropertyIsoelectricPoint = Property{
		Name: "isoelectricPoint",
		Path: calculatePath + "isoelectricPoint",
		params: map[string]interface{}{
			"pHStep":          0.1,
			"doublePrecision": 2,
		},
	}

	PropertyMajorMicrospecies = Property{
		Name: "majorMicrospecies",
		Path: calculatePath + "majorMicrospecies",
		params: map[string]interface{}{
			"pH":                      7.0,
			"takeMajorTautomericForm": false,
		},
	}

	PropertyTautomerization = Property{
		Name: "tautomerization",
		Path: calculatePath + "tautomerization",
		params: map[string]interface{}{
			"calculationType":                        "DOMINANT",
			"maxStructureCount":                      1000,
			"considerPH":                             false,
			"enableMaxPathLength":                    true,
			"maxPathLength":                          4,
			"rationalTautomerGenerationMode":         false,
			"singleFragmentMode":                     true,
			"protectAromaticity":                     true,
			"protectCharge":                          true,
			"excludeAntiAromaticCompounds":           true,
			"protectDoubleBondStereo":                false,
			"protectAllTetrahedralStereoCenters":     false,
			"protectLabeledTetrahedralStereoCenters": false,
			"protectEsterGroups":                     true,
			"ringChainTautomerizationAllowed":        false,
		},
	}

	PropertySolubility = Property{
		Name: "solubility",
		Path: calculatePath + "solubility",
		params: map[string]interface{}{
			"pHLower": 0.0,
			"pHUpper": 14.0,
			"pHStep":  0.1,
			"unit":    "MGPERML",
		},
	}

	PropertyLogP = Property{
		Name: "logP",
		Path: calculatePath + "logP",
		params: map[string]interface{}{
			"wVG":                     1.0,
			"wKLOP":                   1.0,
			"wPHYS":                   1.0,
			"Cl":                      0.1,
			"NaK":                     0.1,
			"considerTautomerization": false,
		},
	}

	PropertyLogD = Property{
		Name: "logD",
		Path: calculatePath + "logD",
		params: map[string]interface{}{
			"pHLower":                 0.0,
			"pHUpper":                 14.0,
			"pHStep":                  0.1,
			"wVG":                     1.0,
			"wKLOP":                   1.0,
			"wPHYS":                   1.0,
			"Cl":                      0.1,
			"NaK":                     0.1,
			"considerTautomerization": false,
		},
	}
)

// Methods are the logP/logD calculation methods.
var Methods = []string{"KLOP", "VG", "PHYS"}

// ValidMethod reports whether m is one of Methods, ignoring case.
func ValidMethod(m string) bool {
	for _, v := range Methods {
		if strings.EqualFold(v, m) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Result payloads
// ─────────────────────────────────────────────────────────────────────────────

// PKaResult is the pKa response.
type PKaResult struct {
	MostAcidic []float64 `json:"mostAcidic"`
	MostBasic  []float64 `json:"mostBasic"`
}

// SolubilityResult is the solubility response in MGPERML.
type SolubilityResult struct {
	IntrinsicSolubility   *float64 `json:"intrinsicSolubility"`
	PHDependentSolubility *struct {
		Values []struct {
			PH         float64 `json:"pH"`
			Solubility float64 `json:"solubility"`
		} `json:"values"`
	} `json:"pHDependentSolubility"`
}

// Intrinsic returns the intrinsic solubility in mg/L.
func (r *SolubilityResult) Intrinsic() (float64, bool) {
	if r == nil || r.IntrinsicSolubility == nil {
		return 0, false
	}
	return 1000.0 * *r.IntrinsicSolubility, true
}

// AtPH returns the solubility listed for exactly ph.
func (r *SolubilityResult) AtPH(ph float64) (float64, bool) {
	if r == nil || r.PHDependentSolubility == nil {
		return 0, false
	}
	for _, v := range r.PHDependentSolubility.Values {
		if samePH(v.PH, ph) {
			return v.Solubility, true
		}
	}
	return 0, false
}

// LogPResult is the logP response.
type LogPResult struct {
	LogPNonionic *float64 `json:"logpnonionic"`
}

// LogDResult is the logD response.
type LogDResult struct {
	ChartData struct {
		Values []struct {
			PH   float64 `json:"pH"`
			LogD float64 `json:"logD"`
		} `json:"values"`
	} `json:"chartData"`
}

// At returns logD at ph rounded to one decimal.
func (r *LogDResult) At(ph float64) (float64, bool) {
	if r == nil {
		return 0, false
	}
	want := math.Round(ph*10) / 10
	for _, v := range r.ChartData.Values {
		if samePH(v.PH, want) {
			return v.LogD, true
		}
	}
	return 0, false
}

func samePH(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
