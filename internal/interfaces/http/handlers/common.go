// Package handlers implements the broker's HTTP endpoints.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/interfaces/http/middleware"
	"github.com/turtacn/CTS-Broker/pkg/errors"
	"github.com/turtacn/CTS-Broker/pkg/types/common"
)

// respond writes data in a success envelope.
func respond(c *gin.Context, status int, data any) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = middleware.GetRequestID(c)
	c.JSON(status, resp)
}

// respondError maps err to its HTTP status and writes an error envelope.
// Internal errors are masked behind the default message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)
	middleware.SetErrorCode(c, code)
	message, detail := errors.DefaultMessageForCode(code), ""

	var ae *errors.AppError
	if status != http.StatusInternalServerError && stderrors.As(err, &ae) {
		message, detail = ae.Message, ae.Detail
	}

	resp := common.NewErrorResponse(code.String(), message, detail)
	resp.RequestID = middleware.GetRequestID(c)
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the body into target and answers 400 on failure.
func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(c, errors.InvalidParam("request body too large"))
			return false
		}
		respondError(c, errors.InvalidParam("invalid request body").WithDetail(err.Error()))
		return false
	}
	return true
}

// NotFound answers unmatched routes with an error envelope.
func NotFound(c *gin.Context) {
	respondError(c, errors.NotFound("route not found").WithDetail(c.Request.Method+" "+c.Request.URL.Path))
}
