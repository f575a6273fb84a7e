package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
	"github.com/turtacn/CTS-Broker/pkg/types/common"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(gin.DefaultErrorWriter, func(c *gin.Context, rec any) {
		logger.WithContext(c.Request.Context()).Error("panic recovered",
			logging.Any("panic", rec),
			logging.String("path", c.Request.URL.Path))

		resp := common.NewErrorResponse(errors.ErrCodeInternal.String(), errors.DefaultMessageForCode(errors.ErrCodeInternal), "")
		resp.RequestID = GetRequestID(c)
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	})
}
