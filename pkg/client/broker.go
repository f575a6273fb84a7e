package client

import (
	"context"
	"net/url"
)

// FilterResult is a filtered structure.
type FilterResult struct {
	SMILES         string `json:"smiles"`
	FilteredSMILES string `json:"filtered_smiles"`
	Calculator     string `json:"calc,omitempty"`
}

// Validity is the outcome of a generic structure validation.
type Validity struct {
	Valid           bool   `json:"valid"`
	SMILES          string `json:"smiles"`
	ProcessedSMILES string `json:"processedsmiles"`
}

// GateResult reports whether a structure passes a calculator's gates.
type GateResult struct {
	SMILES     string `json:"smiles"`
	Calculator string `json:"calc"`
	Valid      bool   `json:"valid"`
	Code       string `json:"code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PchemRequest asks one calculator for one property.
type PchemRequest struct {
	Chemical  string  `json:"chemical"`
	Calc      string  `json:"calc"`
	Prop      string  `json:"prop"`
	Method    string  `json:"method,omitempty"`
	PH        float64 `json:"ph,omitempty"`
	Mass      float64 `json:"mass,omitempty"`
	SessionID string  `json:"sessionid,omitempty"`
	Node      string  `json:"node,omitempty"`
	RunType   string  `json:"run_type,omitempty"`
	Workflow  string  `json:"workflow,omitempty"`
}

// PchemResponse is the calculation envelope. Data holds the value, or a
// message when Valid is false.
type PchemResponse struct {
	Calc           string      `json:"calc"`
	Prop           string      `json:"prop"`
	Method         string      `json:"method,omitempty"`
	Chemical       string      `json:"chemical"`
	FilteredSMILES string      `json:"filtered_smiles,omitempty"`
	Node           string      `json:"node,omitempty"`
	RunType        string      `json:"run_type,omitempty"`
	Workflow       string      `json:"workflow,omitempty"`
	SessionID      string      `json:"sessionid,omitempty"`
	Data           interface{} `json:"data"`
	Valid          bool        `json:"valid"`
	Error          string      `json:"error,omitempty"`
}

// Policy is a calculator's filter policy.
type Policy struct {
	SkipExclusions bool `json:"skip_exclusions"`
	SkipMassCheck  bool `json:"skip_mass_check"`
	ClearStereo    bool `json:"clear_stereo"`
	RejectBrackets bool `json:"reject_brackets"`
}

// CalculatorInfo describes one calculator served by the broker.
type CalculatorInfo struct {
	Name   string   `json:"name"`
	Policy Policy   `json:"policy"`
	Props  []string `json:"props"`
}

// JobAccepted answers an enqueued calculation.
type JobAccepted struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"sessionid,omitempty"`
	Calc      string `json:"calc"`
	Prop      string `json:"prop"`
}

type smilesBody struct {
	SMILES string `json:"smiles"`
}

// FilterSMILES runs the calculator-independent filter.
func (c *Client) FilterSMILES(ctx context.Context, smiles string) (*FilterResult, error) {
	var out FilterResult
	if err := c.post(ctx, "/api/v1/smiles/filter", smilesBody{smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FilterForCalculator prepares smiles for calc.
func (c *Client) FilterForCalculator(ctx context.Context, smiles, calc string) (*FilterResult, error) {
	var out FilterResult
	if err := c.post(ctx, "/api/v1/smiles/filter/"+url.PathEscape(calc), smilesBody{smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks smiles against the exclusion list and the generic filter.
func (c *Client) Validate(ctx context.Context, smiles string) (*Validity, error) {
	var out Validity
	if err := c.post(ctx, "/api/v1/smiles/validate", smilesBody{smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateForCalculator runs the gates of calc on smiles.
func (c *Client) ValidateForCalculator(ctx context.Context, smiles, calc string) (*GateResult, error) {
	var out GateResult
	if err := c.post(ctx, "/api/v1/smiles/validate/"+url.PathEscape(calc), smilesBody{smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pchem runs a calculation synchronously.
func (c *Client) Pchem(ctx context.Context, req *PchemRequest) (*PchemResponse, error) {
	var out PchemResponse
	if err := c.post(ctx, "/api/v1/pchem", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitJob enqueues a calculation for the worker.
func (c *Client) SubmitJob(ctx context.Context, req *PchemRequest) (*JobAccepted, error) {
	var out JobAccepted
	if err := c.post(ctx, "/api/v1/pchem/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calculators lists the calculators the broker serves.
func (c *Client) Calculators(ctx context.Context) ([]CalculatorInfo, error) {
	var out []CalculatorInfo
	if err := c.get(ctx, "/api/v1/calculators", &out); err != nil {
		return nil, err
	}
	return out, nil
}
