// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway wires every component into the single request
// pipeline: Intent classification → Guardrails → Policy → PBFT Consensus
// → Sentry alignment → Trust update → Audit.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/bftgate/audit"
	"github.com/luxfi/bftgate/certificate"
	"github.com/luxfi/bftgate/consensus"
	"github.com/luxfi/bftgate/events"
	"github.com/luxfi/bftgate/intent"
	"github.com/luxfi/bftgate/policy"
	"github.com/luxfi/bftgate/registry"
	"github.com/luxfi/bftgate/trust"
	"github.com/luxfi/bftgate/verdict"
	"github.com/luxfi/bftgate/worker"
	"github.com/luxfi/log"
)

// Status is the high-level outcome of one Submit call.
type Status string

const (
	StatusBlocked          Status = "BLOCKED"
	StatusConsensusReached Status = "CONSENSUS_REACHED"
	StatusNoConsensus      Status = "NO_CONSENSUS"
)

// Analytics tracks running counters across the gateway's lifetime, the
// in-memory equivalent of the original dashboard's analytics_data dict.
type Analytics struct {
	TotalQueries          int
	TotalConsensusReached int
	TotalBlockedGuardrail int
	ActionsCount          map[string]int
	DecisionsCount        map[verdict.Decision]int
	latencyHistoryMs      []int
}

const maxLatencyHistory = 100

// AverageLatencyMs returns the mean of the retained latency samples.
func (a *Analytics) AverageLatencyMs() float64 {
	if len(a.latencyHistoryMs) == 0 {
		return 0
	}
	sum := 0
	for _, v := range a.latencyHistoryMs {
		sum += v
	}
	return float64(sum) / float64(len(a.latencyHistoryMs))
}

func (a *Analytics) recordLatency(ms int) {
	a.latencyHistoryMs = append(a.latencyHistoryMs, ms)
	if len(a.latencyHistoryMs) > maxLatencyHistory {
		a.latencyHistoryMs = a.latencyHistoryMs[len(a.latencyHistoryMs)-maxLatencyHistory:]
	}
}

// Result is the full response of one Submit call.
type Result struct {
	Status            Status
	Reason            string
	Intent            intent.Declaration
	GuardrailBypassed bool
	Policy            *policy.Decision
	Verdict           *verdict.Verdict
	Certificate       *certificate.Certificate
	SentryValid       bool
	ActiveFaults      map[string]worker.FaultConfig
}

// Gateway holds every long-lived component the pipeline depends on.
type Gateway struct {
	Workers    []worker.Worker
	F          int
	Timeout    time.Duration
	StrictMode bool

	Policy    *policy.Engine
	Registry  *registry.Registry
	Trust     *trust.Engine
	Auditor   *audit.Auditor
	Analytics *Analytics

	faults map[string]worker.FaultConfig

	onEvent events.Hook
	logger  log.Logger
}

// New assembles a Gateway. Workers are registered into Registry under
// modelLabels (falling back to "unknown" for unlabeled workers).
func New(workers []worker.Worker, f int, timeout time.Duration, strictMode bool, pol *policy.Engine, reg *registry.Registry, tr *trust.Engine, aud *audit.Auditor, modelLabels map[string]string, onEvent events.Hook, logger log.Logger) *Gateway {
	if onEvent == nil {
		onEvent = events.NoOp
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}

	for _, w := range workers {
		label := modelLabels[w.ID()]
		if label == "" {
			label = "unknown"
		}
		reg.Register(w.ID(), label)
	}

	return &Gateway{
		Workers:    workers,
		F:          f,
		Timeout:    timeout,
		StrictMode: strictMode,
		Policy:     pol,
		Registry:   reg,
		Trust:      tr,
		Auditor:    aud,
		Analytics: &Analytics{
			ActionsCount:   make(map[string]int),
			DecisionsCount: make(map[verdict.Decision]int),
		},
		faults:  make(map[string]worker.FaultConfig),
		onEvent: onEvent,
		logger:  logger,
	}
}

// Submit runs the full pipeline for one raw request.
func (g *Gateway) Submit(ctx context.Context, request map[string]interface{}) (Result, error) {
	start := time.Now()
	g.Analytics.TotalQueries++

	decl := intent.Build(request, start)
	g.Analytics.ActionsCount[decl.ActionType]++
	g.logger.Info("intent classified", "action_type", decl.ActionType, "target", decl.Target, "risk_level", string(decl.RiskLevel))

	allowed, bypassed := intent.Guardrails(decl, g.StrictMode, g.logger)
	if !allowed {
		g.Analytics.TotalBlockedGuardrail++
		if g.Auditor != nil {
			if _, err := g.Auditor.LogExecution(audit.Record{
				IntentID: decl.IntentID, RiskLevel: string(decl.RiskLevel), ActionType: decl.ActionType, Target: decl.Target,
			}, start); err != nil {
				g.logger.Warn("failed to audit blocked request", "error", err)
			}
		}
		return Result{
			Status: StatusBlocked,
			Reason: "pre-execution guardrail triggered — operation blocked before consensus",
			Intent: decl,
		}, nil
	}

	defaultQuorum := 2*g.F + 1
	decision := g.Policy.Evaluate(decl, defaultQuorum)

	active := g.availableWorkers()
	if len(active) < decision.RequiredQuorum {
		return Result{
			Status: StatusBlocked,
			Reason: fmt.Sprintf("insufficient available workers: %d < %d (policy: %s)", len(active), decision.RequiredQuorum, decision.PolicyID),
			Intent: decl,
			Policy: &decision,
		}, nil
	}

	eng, err := consensus.New(active, g.F, g.Timeout, g.onEvent, g.logger)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: build consensus engine: %w", err)
	}

	v, cert, rnd := eng.SubmitRequest(ctx, decl.IntentID, request)

	ts := time.Now().UTC().Format(time.RFC3339)
	roundResults := make([]trust.RoundResult, 0, len(rnd.Results))
	for id, r := range rnd.Results {
		g.Registry.RecordParticipation(id, r.OK, ts)
		roundResults = append(roundResults, trust.RoundResult{WorkerID: id, Decision: string(r.Verdict.Decision), OK: r.OK})
	}

	sentryValid := false
	if v != nil {
		sentryValid = consensus.ValidateAlignment(decl, *v, decl.Target, g.logger)
	}

	if cert != nil {
		g.Analytics.TotalConsensusReached++
		g.Analytics.DecisionsCount[verdict.Decision(cert.Decision)]++
		latencyMs := int(time.Since(start).Milliseconds())
		g.Analytics.recordLatency(latencyMs)
		g.Trust.EvaluateRound(cert.Decision, roundResults, latencyMs, time.Now())
	}

	if g.Auditor != nil {
		if _, err := g.Auditor.LogExecution(audit.Record{
			IntentID:         decl.IntentID,
			RiskLevel:        string(decl.RiskLevel),
			ActionType:       decl.ActionType,
			Target:           decl.Target,
			ConsensusReached: cert != nil,
			Certificate:      cert,
			SentryValid:      sentryValid,
		}, time.Now()); err != nil {
			g.logger.Warn("failed to audit request", "error", err)
		}
	}

	status := StatusNoConsensus
	if cert != nil {
		status = StatusConsensusReached
	}

	return Result{
		Status:            status,
		Intent:            decl,
		GuardrailBypassed: bypassed,
		Policy:            &decision,
		Verdict:           v,
		Certificate:       cert,
		SentryValid:       sentryValid,
		ActiveFaults:      g.ActiveFaults(),
	}, nil
}

// InjectFault applies cfg to workerID for every subsequent round until
// cleared, and marks it FAULTY in the registry.
func (g *Gateway) InjectFault(workerID string, cfg worker.FaultConfig) bool {
	for _, w := range g.Workers {
		if w.ID() == workerID {
			g.faults[workerID] = cfg
			g.Registry.UpdateStatus(workerID, registry.StatusFaulty)
			return true
		}
	}
	return false
}

// ClearFault removes any injected fault from workerID, or every worker if
// workerID is empty.
func (g *Gateway) ClearFault(workerID string) {
	if workerID == "" {
		g.faults = make(map[string]worker.FaultConfig)
		for _, w := range g.Workers {
			g.Registry.UpdateStatus(w.ID(), registry.StatusOnline)
		}
		return
	}
	delete(g.faults, workerID)
	g.Registry.UpdateStatus(workerID, registry.StatusOnline)
}

// ActiveFaults returns a snapshot of the currently injected faults.
func (g *Gateway) ActiveFaults() map[string]worker.FaultConfig {
	out := make(map[string]worker.FaultConfig, len(g.faults))
	for k, v := range g.faults {
		out[k] = v
	}
	return out
}

func (g *Gateway) availableWorkers() []worker.Worker {
	out := make([]worker.Worker, len(g.Workers))
	for i, w := range g.Workers {
		if cfg, faulted := g.faults[w.ID()]; faulted {
			out[i] = worker.NewFaultWrapper(w, cfg)
		} else {
			out[i] = w
		}
	}
	return out
}
