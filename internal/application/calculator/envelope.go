// Package calculator adapts the property calculation services to one request
// and response envelope. Every adapter prepares its input with the SMILES
// filter pipeline first.
package calculator

import (
	"context"
	"fmt"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
)

// Request is one physicochemical property request.
type Request struct {
	Chemical  string  `json:"chemical" validate:"required,max=2048"`
	Calc      string  `json:"calc" validate:"required"`
	Prop      string  `json:"prop" validate:"required"`
	Method    string  `json:"method,omitempty"`
	PH        float64 `json:"ph,omitempty" validate:"gte=0,lte=14"`
	Mass      float64 `json:"mass,omitempty" validate:"gte=0"`
	SessionID string  `json:"sessionid,omitempty"`
	Node      string  `json:"node,omitempty"`
	RunType   string  `json:"run_type,omitempty" validate:"omitempty,oneof=single batch"`
	Workflow  string  `json:"workflow,omitempty"`
}

// Response is the uniform result envelope. Data holds the property value or
// a human-readable failure message.
type Response struct {
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
	RequestPost    *Request    `json:"request_post,omitempty"`
}

// NotAvailable is reported when a service has no value for a property.
const NotAvailable = "N/A"

// Calculator is one property calculation service.
type Calculator interface {
	Name() structure.Calculator
	// Props lists the supported property keys.
	Props() []string
	// Calculate never fails; failures are reported in the envelope.
	Calculate(ctx context.Context, req *Request) *Response
}

func newResponse(req *Request) *Response {
	post := *req
	return &Response{
		Calc:        req.Calc,
		Prop:        req.Prop,
		Method:      req.Method,
		Chemical:    req.Chemical,
		Node:        req.Node,
		RunType:     req.RunType,
		Workflow:    req.Workflow,
		SessionID:   req.SessionID,
		RequestPost: &post,
	}
}

// Failed returns the envelope for req carrying a failure message.
func Failed(req *Request, data string, err error) *Response {
	return newResponse(req).fail(data, err)
}

func (r *Response) fail(data string, err error) *Response {
	r.Data = data
	r.Valid = false
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r *Response) succeed(data interface{}) *Response {
	r.Data = data
	r.Valid = true
	return r
}

// prepare runs the calculator filter. On failure resp is completed with the
// "cannot filter" message and ok is false.
func prepare(ctx context.Context, filter smilesfilter.Service, calc structure.Calculator, display string, req *Request, resp *Response, log logging.Logger) (string, bool) {
	filtered, err := filter.FilterForCalculator(ctx, req.Chemical, calc)
	if err != nil {
		log.WithContext(ctx).Warn("cannot filter structure for calculator",
			logging.String(logging.FieldCalculator, calc.String()),
			logging.String(logging.FieldStructure, req.Chemical),
			logging.Err(err))
		resp.fail(fmt.Sprintf("Cannot filter SMILES for %s data", display), err)
		return "", false
	}
	resp.FilteredSMILES = filtered
	return filtered, true
}

func supports(c Calculator, prop string) bool {
	for _, p := range c.Props() {
		if p == prop {
			return true
		}
	}
	return false
}
