package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
)

// Dispatcher is the calculator registry as seen by the handler.
type Dispatcher interface {
	Validate(req *calculator.Request) error
	Lookup(tag string) (calculator.Calculator, error)
	Dispatch(ctx context.Context, req *calculator.Request) (*calculator.Response, error)
	Catalog() []calculator.Info
}

// JobSubmitter enqueues a request for the worker.
type JobSubmitter interface {
	Submit(ctx context.Context, req *calculator.Request) (string, error)
}

// JobAccepted answers an enqueued request.
type JobAccepted struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"sessionid,omitempty"`
	Calc      string `json:"calc"`
	Prop      string `json:"prop"`
}

// PchemHandler serves property calculations.
type PchemHandler struct {
	registry Dispatcher
	jobs     JobSubmitter
}

// NewPchemHandler creates a PchemHandler. A nil jobs disables /pchem/jobs.
func NewPchemHandler(registry Dispatcher, jobs JobSubmitter) *PchemHandler {
	return &PchemHandler{registry: registry, jobs: jobs}
}

// RegisterRoutes mounts the handler under rg.
func (h *PchemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/pchem", h.Calculate)
	if h.jobs != nil {
		rg.POST("/pchem/jobs", h.Submit)
	}
	rg.GET("/calculators", h.Calculators)
}

// Calculate handles POST /pchem. A calculation that fails still answers 200
// with valid=false in the envelope.
func (h *PchemHandler) Calculate(c *gin.Context) {
	var req calculator.Request
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.registry.Dispatch(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// Submit handles POST /pchem/jobs. The request is checked before it is
// enqueued so the worker only sees well-formed jobs.
func (h *PchemHandler) Submit(c *gin.Context) {
	var req calculator.Request
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registry.Validate(&req); err != nil {
		respondError(c, err)
		return
	}
	calc, err := h.registry.Lookup(req.Calc)
	if err != nil {
		respondError(c, err)
		return
	}
	req.Calc = calc.Name().String()

	id, err := h.jobs.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusAccepted, JobAccepted{JobID: id, SessionID: req.SessionID, Calc: req.Calc, Prop: req.Prop})
}

// Calculators handles GET /calculators.
func (h *PchemHandler) Calculators(c *gin.Context) {
	respond(c, http.StatusOK, h.registry.Catalog())
}
