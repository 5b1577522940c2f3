// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gatewayhttp

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/luxfi/bftgate/gateway"
	"github.com/luxfi/bftgate/scenario"
	"github.com/luxfi/bftgate/verdict"
	"github.com/luxfi/bftgate/worker"
	"github.com/luxfi/log"
)

// Server exposes a Gateway over HTTP: the query/agents/faults/history/
// scenarios/analytics REST surface plus a /ws event stream.
type Server struct {
	gw      *gateway.Gateway
	hub     *Hub
	metrics *Metrics
	logger  log.Logger
	mux     *http.ServeMux
}

// NewServer wires every endpoint onto a fresh ServeMux. metrics may be nil,
// in which case request counters are simply not recorded.
func NewServer(gw *gateway.Gateway, hub *Hub, metrics *Metrics, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	s := &Server{gw: gw, hub: hub, metrics: metrics, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/agents", s.handleAgents)
	s.mux.HandleFunc("POST /api/faults/inject", s.handleFaultInject)
	s.mux.HandleFunc("POST /api/faults/clear", s.handleFaultClear)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/history.csv", s.handleHistoryCSV)
	s.mux.HandleFunc("GET /api/trust", s.handleTrust)
	s.mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	s.mux.HandleFunc("POST /api/scenarios/{name}", s.handleScenario)
	s.mux.HandleFunc("GET /api/policy", s.handlePolicyGet)
	s.mux.HandleFunc("POST /api/policy", s.handlePolicyUpdate)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
}

type queryRequest struct {
	Operation   string `json:"operation"`
	Target      string `json:"target"`
	Description string `json:"description"`
	Risk        string `json:"risk"`
	StrictMode  *bool  `json:"strict_mode"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewHTTPError(KindValidation, "malformed request body"))
		return
	}

	request := map[string]interface{}{
		"operation":   req.Operation,
		"target":      req.Target,
		"description": req.Description,
		"risk":        req.Risk,
	}

	result, err := s.gw.Submit(r.Context(), request)
	if err != nil {
		WriteError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.QueriesTotal.Inc()
		if result.Status == gateway.StatusBlocked {
			s.metrics.GuardrailBlockedTotal.Inc()
		}
		if result.Certificate != nil {
			s.metrics.ConsensusReachedTotal.Inc()
			s.metrics.DecisionsTotal.WithLabelValues(result.Certificate.Decision).Inc()
		}
	}

	WriteSuccess(w, result)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"agents": s.gw.Registry.Catalog(),
		"f":      s.gw.F,
		"n":      len(s.gw.Workers),
	})
}

type faultInjectRequest struct {
	WorkerID          string  `json:"worker_id"`
	FaultType         string  `json:"fault_type"`
	MaliciousDecision string  `json:"malicious_decision"`
	DelaySeconds      float64 `json:"delay_seconds"`
	CollusionGroup    string  `json:"collusion_group"`
}

func (s *Server) handleFaultInject(w http.ResponseWriter, r *http.Request) {
	var req faultInjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewHTTPError(KindValidation, "malformed request body"))
		return
	}

	ft := worker.FaultType(req.FaultType)
	switch ft {
	case worker.FaultCrash, worker.FaultOmission, worker.FaultTiming, worker.FaultByzantine, worker.FaultCollusion:
	default:
		WriteError(w, NewHTTPError(KindValidation, "unknown fault type: "+req.FaultType))
		return
	}

	cfg := worker.FaultConfig{
		Type:              ft,
		Delay:             time.Duration(req.DelaySeconds * float64(time.Second)),
		MaliciousDecision: verdict.Decision(req.MaliciousDecision),
		CollusionGroup:    req.CollusionGroup,
	}

	if !s.gw.InjectFault(req.WorkerID, cfg) {
		WriteError(w, NewHTTPError(KindNotFound, "worker not found: "+req.WorkerID))
		return
	}

	WriteSuccess(w, map[string]interface{}{"status": "injected", "worker_id": req.WorkerID, "fault_type": ft})
}

type faultClearRequest struct {
	WorkerID string `json:"worker_id"`
}

func (s *Server) handleFaultClear(w http.ResponseWriter, r *http.Request) {
	var req faultClearRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.gw.ClearFault(req.WorkerID)
	WriteSuccess(w, map[string]interface{}{"status": "cleared", "worker_id": req.WorkerID})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	history, err := s.gw.Auditor.History(limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{"history": history, "count": len(history)})
}

// handleHistoryCSV exports the audit trail as CSV for offline analysis —
// a format external compliance tooling can ingest without a JSON parser.
func (s *Server) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	history, err := s.gw.Auditor.History(limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "intent_id", "timestamp", "risk_level", "action_type", "target", "consensus_reached", "sentry_valid"})
	for _, e := range history {
		cw.Write([]string{
			strconv.FormatInt(e.ID, 10), e.IntentID, e.Timestamp, e.RiskLevel, e.ActionType, e.Target,
			strconv.FormatBool(e.ConsensusReached), strconv.FormatBool(e.SentryValid),
		})
	}
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{"workers": s.workerTrustSnapshot()})
}

func (s *Server) workerTrustSnapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.gw.Workers))
	for _, wk := range s.gw.Workers {
		out[wk.ID()] = s.gw.Trust.Get(wk.ID())
	}
	return out
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a := s.gw.Analytics
	WriteSuccess(w, map[string]interface{}{
		"total_queries":           a.TotalQueries,
		"total_consensus_reached": a.TotalConsensusReached,
		"total_blocked_guardrail": a.TotalBlockedGuardrail,
		"actions_count":           a.ActionsCount,
		"decisions_count":         a.DecisionsCount,
		"average_latency_ms":      a.AverageLatencyMs(),
	})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	var report scenario.Report
	var err error

	switch name {
	case "compromised_agent":
		report, err = scenario.CompromisedAgent(ctx, s.gw.Workers, s.gw.Workers[min(1, len(s.gw.Workers)-1)].ID(), s.gw.F, s.gw.Timeout)
	case "crash_recovery":
		report, err = scenario.CrashRecovery(ctx, s.gw.Workers, s.gw.Workers[min(2, len(s.gw.Workers)-1)].ID(), s.gw.F, s.gw.Timeout)
	case "collusion_attempt":
		ids := collusionTargets(s.gw.Workers)
		report, err = scenario.CollusionAttempt(ctx, s.gw.Workers, ids, s.gw.F, s.gw.Timeout)
	case "primary_failure":
		report, err = scenario.PrimaryFailure(ctx, s.gw.Workers, s.gw.F, s.gw.Timeout)
	case "f2_double_failure":
		report, err = scenario.F2DoubleFailure(ctx, s.gw.Workers, s.gw.F, s.gw.Timeout)
	default:
		WriteError(w, NewHTTPError(KindNotFound, "scenario not found: "+name))
		return
	}

	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, report)
}

func (s *Server) handlePolicyGet(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{"policies": s.gw.Policy.Rules()})
}

func (s *Server) handlePolicyUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, NewHTTPError(KindValidation, "failed to read request body"))
		return
	}

	if err := s.gw.Policy.Update(string(body)); err != nil {
		WriteError(w, NewHTTPError(KindValidation, err.Error()))
		return
	}

	WriteSuccess(w, map[string]interface{}{"status": "updated", "policies": s.gw.Policy.Rules()})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"f":               s.gw.F,
		"n":               len(s.gw.Workers),
		"timeout_seconds": s.gw.Timeout.Seconds(),
		"strict_mode":     s.gw.StrictMode,
	})
}

func collusionTargets(workers []worker.Worker) []string {
	if len(workers) < 2 {
		return nil
	}
	return []string{workers[1].ID(), workers[len(workers)-1].ID()}
}
