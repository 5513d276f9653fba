package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resume-match/internal/shared/telemetry"
	"resume-match/internal/shared/util"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	telemetry.SetGlobal(zap.New(core))
	t.Cleanup(func() { telemetry.SetGlobal(nil) })

	router := gin.New()
	router.Use(RequestID(), ClientID(), Logging())
	router.GET("/api/v1/app/state", func(c *gin.Context) {
		SetUserID(c, "user-1")
		c.Set("analysisPhase", "ready")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/app/state", nil)
	req.Header.Set(ClientIDHeader, "0b1e7f62-3d4a-4a8e-9d5c-2b8f0e1c7a11")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	entries := logs.FilterMessage("request.complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()

	for _, key := range []string{"request_id", "client_hash", "user_id", "duration_ms", "status", "route"} {
		require.Contains(t, fields, key)
	}
	require.Equal(t, util.HashKey("0b1e7f62-3d4a-4a8e-9d5c-2b8f0e1c7a11"), fields["client_hash"])
	require.NotContains(t, fields, "client_id")
	require.Equal(t, "user-1", fields["user_id"])
	require.Equal(t, "ready", fields["analysis_phase"])
	require.Equal(t, resp.Header().Get("X-Request-Id"), fields["request_id"])
}
