// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scenario provides pre-built demonstrations of Byzantine fault
// tolerance: inject a specific fault pattern, run one consensus round,
// and report what happened in a form a live demo can narrate.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/bftgate/consensus"
	"github.com/luxfi/bftgate/events"
	"github.com/luxfi/bftgate/verdict"
	"github.com/luxfi/bftgate/worker"
)

// Report is the structured outcome of running a scenario.
type Report struct {
	Scenario          string            `json:"scenario"`
	FaultType         string            `json:"fault_type"`
	TargetWorkers     []string          `json:"target_workers"`
	WorkerDecisions   map[string]string `json:"worker_decisions"`
	ConsensusDecision string            `json:"consensus_decision"`
	ConsensusReached  bool              `json:"consensus_reached"`
	SystemSafe        bool              `json:"system_safe"`
	ToleranceExceeded bool              `json:"tolerance_exceeded"`
	Explanation       string            `json:"explanation"`
}

// wrapTargets wraps the named workers in ensemble with faultCfg, leaving
// every other worker untouched. Unknown names are ignored.
func wrapTargets(ensemble []worker.Worker, targets map[string]bool, faultCfg worker.FaultConfig) []worker.Worker {
	out := make([]worker.Worker, len(ensemble))
	for i, w := range ensemble {
		if targets[w.ID()] {
			out[i] = worker.NewFaultWrapper(w, faultCfg)
		} else {
			out[i] = w
		}
	}
	return out
}

// CompromisedAgent demonstrates a single Byzantine worker voting APPROVE
// on a dangerous request while the honest majority votes REJECT.
func CompromisedAgent(ctx context.Context, ensemble []worker.Worker, targetWorkerID string, f int, timeout time.Duration) (Report, error) {
	wrapped := wrapTargets(ensemble, map[string]bool{targetWorkerID: true}, worker.FaultConfig{Type: worker.FaultByzantine, MaliciousDecision: verdict.Approve})

	eng, err := consensus.New(wrapped, f, timeout, events.NoOp, nil)
	if err != nil {
		return Report{}, err
	}

	request := map[string]interface{}{
		"operation": "DELETE_ALL_DATA",
		"target":    "production_database",
		"risk":      "CRITICAL",
	}
	_, _, rnd := eng.SubmitRequest(ctx, "demo-compromised-001", request)

	decisions := make(map[string]string, len(rnd.Results))
	for id, r := range rnd.Results {
		if r.OK {
			decisions[id] = string(r.Verdict.Decision)
		}
	}

	return Report{
		Scenario:          "compromised_agent",
		FaultType:         string(worker.FaultByzantine),
		TargetWorkers:     []string{targetWorkerID},
		WorkerDecisions:   decisions,
		ConsensusDecision: rnd.Decision,
		ConsensusReached:  rnd.Certificate != nil,
		SystemSafe:        rnd.Decision == "REJECT",
		Explanation: fmt.Sprintf(
			"Worker %s was compromised and voted APPROVE for a dangerous DELETE. "+
				"The honest majority voted REJECT. BFT consensus reached %s. System remained safe: %v.",
			targetWorkerID, rnd.Decision, rnd.Decision == "REJECT",
		),
	}, nil
}

// CrashRecovery demonstrates the ensemble still reaching consensus after
// one worker crashes mid-round.
func CrashRecovery(ctx context.Context, ensemble []worker.Worker, targetWorkerID string, f int, timeout time.Duration) (Report, error) {
	wrapped := wrapTargets(ensemble, map[string]bool{targetWorkerID: true}, worker.FaultConfig{Type: worker.FaultCrash})

	eng, err := consensus.New(wrapped, f, timeout, events.NoOp, nil)
	if err != nil {
		return Report{}, err
	}

	request := map[string]interface{}{
		"operation": "PING",
		"target":    "internal_service",
		"risk":      "LOW",
	}
	_, cert, rnd := eng.SubmitRequest(ctx, "demo-crash-001", request)

	decisions := make(map[string]string, len(rnd.Results))
	surviving := 0
	for id, r := range rnd.Results {
		if r.OK {
			surviving++
			decisions[id] = string(r.Verdict.Decision)
		}
	}

	return Report{
		Scenario:          "crash_recovery",
		FaultType:         string(worker.FaultCrash),
		TargetWorkers:     []string{targetWorkerID},
		WorkerDecisions:   decisions,
		ConsensusDecision: rnd.Decision,
		ConsensusReached:  cert != nil,
		SystemSafe:        true,
		Explanation: fmt.Sprintf(
			"Worker %s crashed during consensus. The remaining %d workers still formed a quorum. "+
				"Consensus reached: %v. System continued operating.",
			targetWorkerID, surviving, cert != nil,
		),
	}, nil
}

// CollusionAttempt demonstrates what happens when the number of colluding
// Byzantine workers exceeds f — the scenario intentionally breaks BFT's
// guarantee to show why n >= 3f+1 matters.
func CollusionAttempt(ctx context.Context, ensemble []worker.Worker, colludingWorkerIDs []string, f int, timeout time.Duration) (Report, error) {
	targets := make(map[string]bool, len(colludingWorkerIDs))
	for _, id := range colludingWorkerIDs {
		targets[id] = true
	}
	wrapped := wrapTargets(ensemble, targets, worker.FaultConfig{Type: worker.FaultCollusion, MaliciousDecision: verdict.Approve, CollusionGroup: "collusion-attempt"})

	eng, err := consensus.New(wrapped, f, timeout, events.NoOp, nil)
	if err != nil {
		return Report{}, err
	}

	request := map[string]interface{}{
		"operation": "TRANSFER_FUNDS",
		"target":    "attacker_wallet",
		"risk":      "CRITICAL",
	}
	_, _, rnd := eng.SubmitRequest(ctx, "demo-collusion-001", request)

	decisions := make(map[string]string, len(rnd.Results))
	for id, r := range rnd.Results {
		if r.OK {
			decisions[id] = string(r.Verdict.Decision)
		}
	}

	return Report{
		Scenario:          "collusion_attempt",
		FaultType:         string(worker.FaultCollusion),
		TargetWorkers:     colludingWorkerIDs,
		WorkerDecisions:   decisions,
		ConsensusDecision: rnd.Decision,
		ConsensusReached:  rnd.Certificate != nil,
		ToleranceExceeded: len(colludingWorkerIDs) > f,
		Explanation: fmt.Sprintf(
			"Workers %v colluded to APPROVE a malicious TRANSFER_FUNDS. With f=%d, BFT tolerates at most %d faults. "+
				"%d colluders %s the mathematical limit.",
			colludingWorkerIDs, f, f, len(colludingWorkerIDs),
			map[bool]string{true: "exceed", false: "stay within"}[len(colludingWorkerIDs) > f],
		),
	}, nil
}

// PrimaryFailure demonstrates view-change: the view-0 primary crashes, and
// the ensemble elects the next primary by view rather than stalling.
func PrimaryFailure(ctx context.Context, ensemble []worker.Worker, f int, timeout time.Duration) (Report, error) {
	n := len(ensemble)
	if n == 0 {
		return Report{}, fmt.Errorf("scenario: primary_failure needs a non-empty ensemble")
	}
	primaryID := ensemble[0].ID()
	wrapped := wrapTargets(ensemble, map[string]bool{primaryID: true}, worker.FaultConfig{Type: worker.FaultCrash})

	eng, err := consensus.New(wrapped, f, timeout, events.NoOp, nil)
	if err != nil {
		return Report{}, err
	}

	request := map[string]interface{}{
		"operation": "PING",
		"target":    "system",
		"risk":      "LOW",
	}
	_, cert, rnd := eng.SubmitRequest(ctx, "demo-view-change", request)

	newView := rnd.View + 1
	newPrimary := ensemble[newView%n].ID()

	decisions := make(map[string]string, len(rnd.Results))
	for id, r := range rnd.Results {
		if r.OK {
			decisions[id] = string(r.Verdict.Decision)
		}
	}

	return Report{
		Scenario:          "primary_failure",
		FaultType:         string(worker.FaultCrash),
		TargetWorkers:     []string{primaryID},
		WorkerDecisions:   decisions,
		ConsensusDecision: rnd.Decision,
		ConsensusReached:  cert != nil,
		SystemSafe:        true,
		Explanation: fmt.Sprintf(
			"Primary %s crashed at view %d. The ensemble elected view %d with %s as the new primary. "+
				"Consensus reached: %v.",
			primaryID, rnd.View, newView, newPrimary, cert != nil,
		),
	}, nil
}

// F2DoubleFailure demonstrates two simultaneous crashes against whatever
// fault budget f the caller configures — showing the ensemble still
// reaches consensus within budget, or loses the round once the double
// failure exceeds it.
func F2DoubleFailure(ctx context.Context, ensemble []worker.Worker, f int, timeout time.Duration) (Report, error) {
	if len(ensemble) < 2 {
		return Report{}, fmt.Errorf("scenario: f2_double_failure needs at least 2 workers, got %d", len(ensemble))
	}
	targets := []string{ensemble[0].ID(), ensemble[1].ID()}
	wrapped := wrapTargets(ensemble, map[string]bool{targets[0]: true, targets[1]: true}, worker.FaultConfig{Type: worker.FaultCrash})

	eng, err := consensus.New(wrapped, f, timeout, events.NoOp, nil)
	if err != nil {
		return Report{}, err
	}

	request := map[string]interface{}{
		"operation": "DATA_READ",
		"target":    "secure_database",
		"risk":      "MEDIUM",
	}
	_, cert, rnd := eng.SubmitRequest(ctx, "demo-f2-failure", request)

	decisions := make(map[string]string, len(rnd.Results))
	surviving := 0
	for id, r := range rnd.Results {
		if r.OK {
			surviving++
			decisions[id] = string(r.Verdict.Decision)
		}
	}

	return Report{
		Scenario:          "f2_double_failure",
		FaultType:         string(worker.FaultCrash),
		TargetWorkers:     targets,
		WorkerDecisions:   decisions,
		ConsensusDecision: rnd.Decision,
		ConsensusReached:  cert != nil,
		SystemSafe:        cert != nil,
		ToleranceExceeded: 2 > f,
		Explanation: fmt.Sprintf(
			"Workers %v crashed simultaneously. %d of %d workers survived to vote. With f=%d, BFT tolerates at "+
				"most %d simultaneous faults; 2 failures %s that bound. Consensus reached: %v.",
			targets, surviving, len(ensemble), f, f,
			map[bool]string{true: "exceed", false: "stay within"}[2 > f], cert != nil,
		),
	}, nil
}
