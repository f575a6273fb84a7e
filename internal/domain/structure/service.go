package structure

import (
	"context"

	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Action is a named standardizer transform.
type Action string

const (
	ActionRemoveExplicitH Action = "removeExplicitH"
	ActionTransform       Action = "transform"
	ActionUntransform     Action = "untransform"
	ActionClearStereo     Action = "clearStereo"
	ActionNeutralize      Action = "neutralize"
)

// ActionNames converts actions to their wire names.
func ActionNames(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

// ActionResult is the standardizer response: one cumulative structure per
// applied action, in request order.
type ActionResult struct {
	Results []string `json:"results"`
}

// Last returns the terminal cumulative structure. An empty list is a
// MalformedResponse.
func (r *ActionResult) Last() (string, error) {
	if r == nil || len(r.Results) == 0 {
		return "", errors.MalformedResponse("standardizer returned no results")
	}
	return r.Results[len(r.Results)-1], nil
}

// MassDetail is one entry of a mass lookup.
type MassDetail struct {
	Mass        float64 `json:"mass"`
	ExactMass   float64 `json:"exactMass,omitempty"`
	Formula     string  `json:"formula,omitempty"`
	IUPACName   string  `json:"iupac,omitempty"`
	SMILES      string  `json:"smiles,omitempty"`
	OrigSMILES  string  `json:"orig_smiles,omitempty"`
	Preferred   string  `json:"preferredName,omitempty"`
	Convertible bool    `json:"convertible,omitempty"`
}

// MassResult is the mass lookup response.
type MassResult struct {
	Data []MassDetail `json:"data"`
}

// Mass returns data[0].mass. An empty data list is a MalformedResponse.
func (r *MassResult) Mass() (float64, error) {
	if r == nil || len(r.Data) == 0 {
		return 0, errors.MalformedResponse("mass lookup returned no data")
	}
	return r.Data[0].Mass, nil
}

// TautomerResult is the major tautomer response. Every level of the path
// result.structureData.structure may be absent.
type TautomerResult struct {
	Result *TautomerPayload `json:"result,omitempty"`
}

// TautomerPayload is the "result" object of a tautomer response.
type TautomerPayload struct {
	StructureData *StructureData `json:"structureData,omitempty"`
	Image         *ImageData     `json:"image,omitempty"`
}

// StructureData carries a structure in a named format.
type StructureData struct {
	Structure string `json:"structure"`
	Format    string `json:"format,omitempty"`
}

// ImageData carries a rendered structure image.
type ImageData struct {
	Image  string `json:"image,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Structure returns the resolved tautomer, if the response carries one.
func (r *TautomerResult) Structure() (string, bool) {
	if r == nil || r.Result == nil || r.Result.StructureData == nil {
		return "", false
	}
	s := r.Result.StructureData.Structure
	return s, s != ""
}

// Standardizer is the structure standardization service.
type Standardizer interface {
	// ApplyActions applies actions in order in a single request.
	ApplyActions(ctx context.Context, structure string, actions []Action) (*ActionResult, error)
	// GetMass looks up the molecular mass of structure.
	GetMass(ctx context.Context, structure string) (*MassResult, error)
}

// TautomerResolver is the tautomer resolution service.
type TautomerResolver interface {
	ResolveMajorTautomer(ctx context.Context, structure string) (*TautomerResult, error)
}

// Validity is the result of a generic structure validation.
type Validity struct {
	Valid           bool   `json:"valid"`
	SMILES          string `json:"smiles"`
	ProcessedSMILES string `json:"processedsmiles"`
}
