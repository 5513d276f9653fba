package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resume-match/internal/shared/server/respond"
	"resume-match/internal/shared/util"
)

const (
	// ClientIDHeader carries the browser client's stable id.
	ClientIDHeader = "X-Client-Id"

	clientIDKey = "clientId"
	userIDKey   = "userId"
)

// ClientID requires a UUID client id header and stores it in context.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		raw := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if raw == "" {
			respond.Error(c, http.StatusBadRequest, "missing_client_id", "X-Client-Id header is required", nil)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_client_id", "X-Client-Id must be a UUID", nil)
			return
		}

		c.Set(clientIDKey, id.String())
		c.Next()
	}
}

// ClientIDFromContext fetches the client id set by the ClientID middleware.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SetUserID records the signed-in user for request logging.
func SetUserID(c *gin.Context, userID string) {
	if userID != "" {
		c.Set(userIDKey, userID)
	}
}

// UserIDFromContext fetches the user id recorded by SetUserID.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// ClientHashFromContext is the loggable form of the client id. The raw id
// selects a server-side session and must not appear in logs.
func ClientHashFromContext(c *gin.Context) string {
	id := ClientIDFromContext(c)
	if id == "" {
		return ""
	}
	return util.HashKey(id)
}
