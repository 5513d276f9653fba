package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resume-match/internal/shared/server/respond"
	"resume-match/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope. The session
// state of the client is untouched; only the request is lost.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.L().Error("request.panic",
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("client_hash", ClientHashFromContext(c)),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
			c.Abort()
		}()
		c.Next()
	}
}
