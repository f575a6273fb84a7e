package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// SMILESRequest is the body of every /smiles endpoint.
type SMILESRequest struct {
	SMILES string `json:"smiles" binding:"required,max=2048"`
}

// FilterResponse reports a filtered structure.
type FilterResponse struct {
	SMILES         string `json:"smiles"`
	FilteredSMILES string `json:"filtered_smiles"`
	Calculator     string `json:"calc,omitempty"`
}

// GateResponse reports whether a structure passes a calculator's gates.
type GateResponse struct {
	SMILES     string `json:"smiles"`
	Calculator string `json:"calc"`
	Valid      bool   `json:"valid"`
	Code       string `json:"code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// SMILESHandler exposes the filter pipeline.
type SMILESHandler struct {
	filter smilesfilter.Service
}

// NewSMILESHandler creates a SMILESHandler.
func NewSMILESHandler(filter smilesfilter.Service) *SMILESHandler {
	return &SMILESHandler{filter: filter}
}

// RegisterRoutes mounts the handler under rg.
func (h *SMILESHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/smiles")
	g.POST("/filter", h.Filter)
	g.POST("/filter/:calc", h.FilterForCalculator)
	g.POST("/validate", h.Validate)
	g.POST("/validate/:calc", h.ValidateForCalculator)
}

// Filter handles POST /smiles/filter.
func (h *SMILESHandler) Filter(c *gin.Context) {
	var req SMILESRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.filter.FilterGeneric(c.Request.Context(), req.SMILES)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, FilterResponse{SMILES: req.SMILES, FilteredSMILES: out})
}

// FilterForCalculator handles POST /smiles/filter/:calc.
func (h *SMILESHandler) FilterForCalculator(c *gin.Context) {
	calc, err := structure.ParseCalculator(c.Param("calc"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req SMILESRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.filter.FilterForCalculator(c.Request.Context(), req.SMILES, calc)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, FilterResponse{SMILES: req.SMILES, FilteredSMILES: out, Calculator: calc.String()})
}

// Validate handles POST /smiles/validate. Excluded structures are a
// valid=false answer, not an error.
func (h *SMILESHandler) Validate(c *gin.Context) {
	var req SMILESRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.filter.IsValidStructure(c.Request.Context(), req.SMILES)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

// ValidateForCalculator handles POST /smiles/validate/:calc. Gate rejections
// are reported in the body; service failures are errors.
func (h *SMILESHandler) ValidateForCalculator(c *gin.Context) {
	calc, err := structure.ParseCalculator(c.Param("calc"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req SMILESRequest
	if !bindJSON(c, &req) {
		return
	}

	resp := GateResponse{SMILES: req.SMILES, Calculator: calc.String(), Valid: true}
	if err := h.filter.Validate(c.Request.Context(), req.SMILES, calc); err != nil {
		if !errors.IsRejection(err) {
			respondError(c, err)
			return
		}
		code := errors.GetCode(err)
		resp.Valid = false
		resp.Code = code.String()
		resp.Reason = errors.DefaultMessageForCode(code)
	}
	respond(c, http.StatusOK, resp)
}
