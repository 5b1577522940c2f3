// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus orchestrates the full three-phase PBFT protocol
// across a worker ensemble for a single request: query every worker,
// determine the majority decision, run prepare/commit, and produce a
// signed Certificate.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/bftgate/canon"
	"github.com/luxfi/bftgate/certificate"
	"github.com/luxfi/bftgate/events"
	"github.com/luxfi/bftgate/pbft"
	"github.com/luxfi/bftgate/verdict"
	"github.com/luxfi/bftgate/worker"
	"github.com/luxfi/log"
)

// WorkerResult is one worker's outcome within a Round, including whether
// it responded in time at all.
type WorkerResult struct {
	WorkerID string
	Verdict  verdict.Verdict
	OK       bool
	Error    string
}

// Round is the full audit trail of one consensus attempt, kept for
// logging and the auditor regardless of whether consensus was reached.
type Round struct {
	ActionID     string
	Sequence     int
	View         int
	RequestHash  string
	StartedAt    string
	Results      map[string]WorkerResult
	Decision     string
	Certificate  *certificate.Certificate
	Equivocators []string
}

// Engine drives consensus rounds across a fixed worker ensemble.
type Engine struct {
	mu      sync.Mutex
	workers []worker.Worker
	f       int
	quorum  int
	seq     int
	view    int
	timeout time.Duration
	onEvent events.Hook
	logger  log.Logger
}

// New builds an Engine over workers tolerating f Byzantine faults. It
// requires N >= 3f+1 workers, matching the PBFT safety bound.
func New(workers []worker.Worker, f int, timeout time.Duration, onEvent events.Hook, logger log.Logger) (*Engine, error) {
	n := len(workers)
	if n < 3*f+1 {
		return nil, fmt.Errorf("consensus: need at least %d workers for f=%d, got %d", 3*f+1, f, n)
	}
	if onEvent == nil {
		onEvent = events.NoOp
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Engine{
		workers: workers,
		f:       f,
		quorum:  pbft.QuorumSize(f),
		timeout: timeout,
		onEvent: onEvent,
		logger:  logger,
	}, nil
}

func (e *Engine) emit(t events.Type, data map[string]interface{}) {
	func() {
		defer func() { recover() }()
		e.onEvent(events.Event{Type: t, Data: data})
	}()
}

// SubmitRequest drives one full consensus round for actionID/request.
// Returns the agreed verdict and certificate, or a nil certificate if
// quorum was never reached — the caller must fail closed in that case.
func (e *Engine) SubmitRequest(ctx context.Context, actionID string, request map[string]interface{}) (*verdict.Verdict, *certificate.Certificate, *Round) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	view := e.view
	e.mu.Unlock()

	requestHash := canon.MustHash(request)
	rnd := &Round{
		ActionID:    actionID,
		Sequence:    seq,
		View:        view,
		RequestHash: requestHash,
		StartedAt:   time.Now().UTC().Format(time.RFC3339),
		Results:     make(map[string]WorkerResult, len(e.workers)),
	}

	e.logger.Info("consensus round starting", "sequence", seq, "action_id", actionID)
	e.emit(events.RoundStarted, map[string]interface{}{"action_id": actionID, "sequence": seq})

	n := len(e.workers)
	primaryIdx := pbft.Primary(view, n)
	primary := e.workers[primaryIdx]

	// Phase 0: query every worker concurrently, each bounded by its own
	// timeout so one hung worker cannot stall the others.
	e.emit(events.PhaseUpdate, map[string]interface{}{"phase": "AGENT_EXECUTION", "sequence": seq})
	e.queryWorkers(ctx, actionID, request, rnd)

	// A primary that doesn't respond can't be trusted to stay primary:
	// elect the next one by view for every subsequent round. The view
	// is sticky on the engine, never reset, so this round still finishes
	// under the primary it started with.
	if r, ok := rnd.Results[primary.ID()]; !ok || !r.OK {
		e.mu.Lock()
		if e.view == view {
			e.view++
		}
		newView := e.view
		e.mu.Unlock()
		e.logger.Warn("primary unresponsive, electing next view", "sequence", seq, "old_primary", primary.ID(), "new_view", newView)
		e.emit(events.ViewChanged, map[string]interface{}{
			"sequence":    seq,
			"old_primary": primary.ID(),
			"new_view":    newView,
			"new_primary": e.workers[pbft.Primary(newView, n)].ID(),
		})
	}

	responded := 0
	for _, r := range rnd.Results {
		if r.OK {
			responded++
		}
	}
	if responded < e.quorum {
		e.logger.Warn("not enough worker responses", "sequence", seq, "got", responded, "need", e.quorum)
		return nil, nil, rnd
	}

	// Determine majority decision.
	tally := map[verdict.Decision]int{}
	for _, r := range rnd.Results {
		if r.OK {
			tally[r.Verdict.Decision]++
		}
	}
	majorityDecision, majorityCount := majority(tally)
	if majorityCount < e.quorum {
		e.logger.Warn("no quorum on any decision", "sequence", seq, "tally", tally)
		rnd.Decision = ""
		return nil, nil, rnd
	}
	rnd.Decision = string(majorityDecision)

	// The canonical result is the first majority verdict in worker-list
	// order, so the result hash does not depend on map iteration order.
	var majorityVerdict verdict.Verdict
	for _, w := range e.workers {
		r, ok := rnd.Results[w.ID()]
		if ok && r.OK && r.Verdict.Decision == majorityDecision {
			majorityVerdict = r.Verdict
			break
		}
	}

	// Workers that responded but voted against the majority decision are
	// recorded as equivocators on the Round and reported in a DriftDetected
	// event. The round still proceeds; the trust engine penalizes them
	// separately through their disagreeing decision.
	for _, w := range e.workers {
		r, ok := rnd.Results[w.ID()]
		if ok && r.OK && r.Verdict.Decision != majorityDecision {
			rnd.Equivocators = append(rnd.Equivocators, w.ID())
		}
	}
	if len(rnd.Equivocators) > 0 {
		e.emit(events.DriftDetected, map[string]interface{}{"sequence": seq, "workers": rnd.Equivocators})
	}

	// Phase 1: pre-prepare, signed by the primary over the request hash.
	e.emit(events.PhaseUpdate, map[string]interface{}{"phase": "PRE_PREPARE", "primary": primary.ID()})
	prePrepareSig := primary.Identity().Sign(requestHash)

	resultHash := canon.MustHash(majorityVerdict)

	// Phases 2 and 3 run through the shared message log so prepare/commit
	// quorum detection is not reimplemented here. Every responding worker
	// signs the same result hash, so only one result hash is ever committed
	// per round; there is no separate check for two committed hashes.
	plog := pbft.NewLog(view, seq, requestHash, prePrepareSig)

	// Phase 2: prepare — every responding worker signs the request hash.
	e.emit(events.PhaseUpdate, map[string]interface{}{"phase": "PREPARE", "sequence": seq})
	for _, w := range e.workers {
		r, ok := rnd.Results[w.ID()]
		if !ok || !r.OK {
			continue
		}
		plog.AddPrepare(requestHash, pbft.SignedEntry{
			WorkerID:  w.ID(),
			Signature: w.Identity().Sign(requestHash),
		})
	}
	prepareQuorum, reached := plog.PrepareQuorum(requestHash, e.f)
	if !reached {
		e.logger.Warn("prepare phase failed, no quorum", "sequence", seq)
		return nil, nil, rnd
	}

	// Phase 3: commit — every responding worker signs the result hash.
	e.emit(events.PhaseUpdate, map[string]interface{}{"phase": "COMMIT", "sequence": seq})
	for _, w := range e.workers {
		r, ok := rnd.Results[w.ID()]
		if !ok || !r.OK {
			continue
		}
		plog.AddCommit(resultHash, pbft.SignedEntry{
			WorkerID:  w.ID(),
			Signature: w.Identity().Sign(resultHash),
		})
	}
	commitQuorum, reached := plog.CommitQuorum(resultHash, e.f)
	if !reached {
		e.logger.Warn("commit phase failed, no quorum", "sequence", seq)
		return nil, nil, rnd
	}

	cert := certificate.New(view, seq, requestHash, prePrepareSig, prepareQuorum, commitQuorum, resultHash, string(majorityDecision), time.Now())
	rnd.Certificate = &cert

	e.logger.Info("consensus reached", "sequence", seq, "decision", majorityDecision)
	e.emit(events.ConsensusReached, map[string]interface{}{
		"decision":      string(majorityDecision),
		"sequence":      seq,
		"prepare_count": len(prepareQuorum),
		"commit_count":  len(commitQuorum),
	})

	return &majorityVerdict, &cert, rnd
}

func (e *Engine) queryWorkers(ctx context.Context, actionID string, request map[string]interface{}, rnd *Round) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, w := range e.workers {
		wg.Add(1)
		go func(w worker.Worker) {
			defer wg.Done()

			wctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			v, err := w.Decide(wctx, actionID, request)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status := "ERROR"
				if errors.Is(err, context.DeadlineExceeded) {
					status = "TIMEOUT"
				}
				rnd.Results[w.ID()] = WorkerResult{WorkerID: w.ID(), OK: false, Error: err.Error()}
				e.emit(events.WorkerResponse, map[string]interface{}{"agent_id": w.ID(), "status": status, "error": err.Error()})
				return
			}
			v = verdict.Coerce(actionID, v)
			rnd.Results[w.ID()] = WorkerResult{WorkerID: w.ID(), Verdict: v, OK: true}
			e.emit(events.WorkerResponse, map[string]interface{}{"agent_id": w.ID(), "status": "OK", "decision": string(v.Decision)})
		}(w)
	}

	wg.Wait()
}

func majority(tally map[verdict.Decision]int) (verdict.Decision, int) {
	var best verdict.Decision
	bestCount := -1
	for d, c := range tally {
		if c > bestCount {
			best = d
			bestCount = c
		}
	}
	return best, bestCount
}
