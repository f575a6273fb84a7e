package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthEngine(checkers ...HealthChecker) *gin.Engine {
	r := gin.New()
	NewHealthHandler("1.2.0", checkers...).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Liveness(t *testing.T) {
	w := get(healthEngine(CheckFunc{"redis", func(context.Context) error { return fmt.Errorf("down") }}), "/healthz")

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.0", resp.Version)
}

func TestHealthHandler_ReadinessNoCheckers(t *testing.T) {
	w := get(healthEngine(), "/readyz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := CheckFunc{"redis", func(context.Context) error { return nil }}
	down := CheckFunc{"jchem", func(context.Context) error { return fmt.Errorf("connection refused") }}

	w := get(healthEngine(ok), "/readyz")
	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)

	w = get(healthEngine(ok, down), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp = ReadinessResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.Equal(t, "unhealthy", resp.Components["jchem"].Status)
	assert.Equal(t, "connection refused", resp.Components["jchem"].Error)
}

func TestHealthHandler_ReadinessHonoursDeadline(t *testing.T) {
	slow := CheckFunc{"redis", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	h := NewHealthHandler("dev", slow)
	h.timeout = 0
	r := gin.New()
	h.RegisterRoutes(r)

	w := get(r, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
