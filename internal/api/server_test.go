package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sempower/internal/testkit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kit, err := testkit.NewTestKit()
	require.NoError(t, err)
	return NewServer(kit.PowerService, kit.Logger, ServerOptions{})
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, body := doRequest(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCriticalValue(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodGet, "/v1/critical-value?alpha=0.05&df=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 3.8415, body["critical_value"].(float64), 1e-3)

	w, body = doRequest(t, s, http.MethodGet, "/v1/critical-value?df=1", "")
	require.Equal(t, http.StatusOK, w.Code, "alpha defaults to the configured value")
	assert.Equal(t, 0.05, body["alpha"])

	w, body = doRequest(t, s, http.MethodGet, "/v1/critical-value?alpha=1.5&df=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	w, _ = doRequest(t, s, http.MethodGet, "/v1/critical-value?alpha=0.05", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPower(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/v1/power", `{"ncp": 7.849, "df": 1, "alpha": 0.05}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.80, body["power"].(float64), 0.01)

	w, body = doRequest(t, s, http.MethodPost, "/v1/power", `{"ncp": -1, "df": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	w, body = doRequest(t, s, http.MethodPost, "/v1/power", `{"ncp": 2, "df": 1, "alpha": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "explicit zero alpha is not the default")
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	w, body = doRequest(t, s, http.MethodPost, "/v1/power", `{"ncp": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestMultiplier(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/v1/multiplier", `{"ncp": 3.8415, "df": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 2.04, body["multiplier"].(float64), 0.01)
	assert.Equal(t, 0.8, body["target_power"])

	w, _ = doRequest(t, s, http.MethodPost, "/v1/multiplier", `{"ncp": 0, "df": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = doRequest(t, s, http.MethodPost, "/v1/multiplier", `{"ncp": 2, "df": 1, "target_power": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "explicit zero target is not the default")
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])
}

func TestAnalyzeDesign(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/v1/designs/analyze",
		`{"name": "ind", "design": {"kind": "independent", "effect_size": 0.5, "n": 64}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := body["result"].(map[string]interface{})
	assert.InDelta(t, 0.80, result["power"].(float64), 0.01)

	w, body = doRequest(t, s, http.MethodPost, "/v1/designs/analyze",
		`{"name": "bad", "model": {"name": "m", "constraint": "means_equal", "variables": ["a", "b"]},
		  "groups": [{"name": "g", "n": 20, "mean": [0, 1], "cov": [[1, 1], [1, 1]]}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "singular covariance is an upstream fit failure")
	assert.Equal(t, "UPSTREAM_FIT_FAILURE", body["code"])
}

func TestDesigns_ExplicitZeroAlphaOrTarget(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/v1/designs/analyze",
		`{"name": "z", "alpha": 0, "design": {"kind": "one_sample", "effect_size": 0.5, "n": 30}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])

	w, body = doRequest(t, s, http.MethodPost, "/v1/designs/plan",
		`{"name": "z", "target_power": 0, "design": {"kind": "one_sample", "effect_size": 0.5, "n": 30}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", body["code"])
}

func TestPlanDesign(t *testing.T) {
	s := newTestServer(t)

	w, body := doRequest(t, s, http.MethodPost, "/v1/designs/plan",
		`{"name": "ind", "target_power": 0.8, "design": {"kind": "independent", "effect_size": 0.5, "n": 20}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{64.0, 64.0}, body["planned_sizes"])

	w, body = doRequest(t, s, http.MethodPost, "/v1/designs/plan",
		`{"name": "null", "design": {"kind": "one_sample", "effect_size": 0, "n": 20}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "TARGET_UNREACHABLE", body["code"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/v1/power", `{"ncp": 2, "df": 1}`)

	w, _ := doRequest(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `sempower_http_requests_total{code="200",route="/v1/power"} 1`)
	assert.Contains(t, out, `sempower_calculation_duration_seconds_count{operation="power"} 1`)
}
