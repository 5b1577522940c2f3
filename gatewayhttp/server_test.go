package gatewayhttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/bftgate/audit"
	"github.com/luxfi/bftgate/gateway"
	"github.com/luxfi/bftgate/policy"
	"github.com/luxfi/bftgate/registry"
	"github.com/luxfi/bftgate/trust"
	"github.com/luxfi/bftgate/worker"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	workers := make([]worker.Worker, 4)
	for i := 0; i < 4; i++ {
		s, err := worker.NewSimulator(string(rune('a'+i)), "mock")
		require.NoError(t, err)
		workers[i] = s
	}

	pol, err := policy.New(filepath.Join(dir, "policies.yaml"), nil)
	require.NoError(t, err)
	tr := trust.New(filepath.Join(dir, "trust.json"), nil)
	aud, err := audit.Open(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { aud.Close() })

	gw := gateway.New(workers, 1, time.Second, true, pol, registry.New(), tr, aud, nil, nil, nil)
	return NewServer(gw, NewHub(nil), nil, nil)
}

func TestHandleQueryReturnsSuccess(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"operation": "READ", "target": "inventory", "risk": "LOW"})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestHandleAgentsListsCatalog(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFaultInjectUnknownTypeFails(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"worker_id": "a", "fault_type": "NONSENSE"})
	req := httptest.NewRequest(http.MethodPost, "/api/faults/inject", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScenarioNotFound(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHistoryCSV(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history.csv", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}

func TestHandlePolicyGetReturnsRules(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/policy", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestHandlePolicyUpdateRejectsMalformedDocument(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/policy", bytes.NewReader([]byte("not: valid: yaml: [")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePolicyUpdatePersistsValidDocument(t *testing.T) {
	srv := newTestServer(t)

	doc := `policies:
  - id: custom_rule
    target: "ANY"
    action: "ANY"
    min_quorum: 2
    escalate_to_human: false
    description: "custom"
`
	req := httptest.NewRequest(http.MethodPost, "/api/policy", bytes.NewReader([]byte(doc)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, len(srv.gw.Policy.Rules()))
}

func TestHandleConfigReturnsRuntimeSettings(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestHandleScenarioPrimaryFailure(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/primary_failure", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleScenarioF2DoubleFailure(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios/f2_double_failure", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFaultInjectHonorsMaliciousDecision(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"worker_id":          "a",
		"fault_type":         "BYZANTINE",
		"malicious_decision": "APPROVE",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/faults/inject", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
