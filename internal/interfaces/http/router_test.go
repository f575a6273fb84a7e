package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/application/calculator"
	"github.com/turtacn/CTS-Broker/internal/application/smilesfilter"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/handlers"
	"github.com/turtacn/CTS-Broker/internal/interfaces/http/middleware"
	"github.com/turtacn/CTS-Broker/internal/testutil"
	"github.com/turtacn/CTS-Broker/pkg/errors"
	"github.com/turtacn/CTS-Broker/pkg/types/common"
)

type fixture struct {
	router *gin.Engine
	std    *testutil.MockStandardizer
	taut   *testutil.MockTautomerResolver
}

// newFixture wires the real pipeline and registry over mocked services.
func newFixture(t *testing.T, mutate func(*RouterConfig)) *fixture {
	t.Helper()
	std := &testutil.MockStandardizer{}
	taut := &testutil.MockTautomerResolver{}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "cts_test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewBrokerMetrics(collector)

	filter := smilesfilter.NewService(std, taut, nil, metrics)
	cfg := RouterConfig{
		Filter:         filter,
		Registry:       calculator.NewRegistry(nil, metrics),
		Version:        "test",
		Logger:         testutil.NewNopLogger(),
		Metrics:        metrics,
		MetricsHandler: collector.Handler(),
		Mode:           gin.TestMode,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &fixture{router: NewRouter(cfg), std: std, taut: taut}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) common.APIResponse[json.RawMessage] {
	t.Helper()
	var env common.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestRouter_FilterEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.std.On("ApplyActions", mock.Anything, "CCO",
		[]structure.Action{structure.ActionRemoveExplicitH, structure.ActionTransform}).Return(testutil.Results("CCO"), nil)
	f.taut.On("ResolveMajorTautomer", mock.Anything, "CCO").Return(testutil.Tautomer("OCC"), nil)
	f.std.On("ApplyActions", mock.Anything, "OCC",
		[]structure.Action{structure.ActionNeutralize}).Return(testutil.Results("OCC"), nil)

	w := f.do(http.MethodPost, "/api/v1/smiles/filter", `{"smiles":"CCO"}`)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.JSONEq(t, `{"smiles":"CCO","filtered_smiles":"OCC"}`, string(env.Data))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	f.std.AssertExpectations(t)
	f.taut.AssertExpectations(t)
}

func TestRouter_ValidateExcludedMakesNoCalls(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/v1/smiles/validate", `{"smiles":"[Na+].[Cl-]"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":false,"smiles":"[Na+].[Cl-]","processedsmiles":""}`, string(decode(t, w).Data))
	f.std.AssertNotCalled(t, "ApplyActions", mock.Anything, mock.Anything, mock.Anything)
	f.std.AssertNotCalled(t, "GetMass", mock.Anything, mock.Anything)
}

func TestRouter_TooLargeIs422(t *testing.T) {
	f := newFixture(t, nil)
	f.std.On("GetMass", mock.Anything, "CCCC").Return(testutil.Mass(1500), nil)

	w := f.do(http.MethodPost, "/api/v1/smiles/filter/test", `{"smiles":"CCCC"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STRUCT_002", env.Error.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/calculators", "").Code)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/api/v1/calculators"`)
}

func TestRouter_CustomMetricsPath(t *testing.T) {
	f := newFixture(t, func(c *RouterConfig) { c.MetricsPath = "/internal/metrics" })

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/internal/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/metrics", "").Code)
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v1/patents", "")

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "COMMON_005", env.Error.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	f := newFixture(t, func(c *RouterConfig) { c.MaxBodySize = 16 })

	w := f.do(http.MethodPost, "/api/v1/smiles/filter", `{"smiles":"`+strings.Repeat("C", 64)+`"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "request body too large", env.Error.Message)
}

func TestRouter_ReadinessUsesCheckers(t *testing.T) {
	f := newFixture(t, func(c *RouterConfig) {
		c.Checkers = []handlers.HealthChecker{handlers.CheckFunc{ComponentName: "redis", Fn: func(context.Context) error {
			return errors.ServiceUnavailable("redis unreachable")
		}}}
	})

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/readyz", "").Code)
}

func TestRouter_CORSOptional(t *testing.T) {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = []string{"https://cts.example.com"}
	f := newFixture(t, func(c *RouterConfig) { c.CORS = &cors })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://cts.example.com")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "https://cts.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
