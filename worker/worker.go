// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package worker defines the decision-worker capability interface, a
// deterministic simulator used absent a real backend, and the fault
// wrapper used to inject Byzantine/crash/omission/timing/collusion
// behavior for demonstration and testing.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/luxfi/bftgate/signer"
	"github.com/luxfi/bftgate/verdict"
)

// Worker produces a verdict for a request within the caller's context
// deadline. Implementations must return by the deadline or the caller's
// context will be cancelled out from under them; OMISSION-faulted workers
// rely on exactly this to be cut off.
type Worker interface {
	ID() string
	Identity() signer.Identity
	Decide(ctx context.Context, actionID string, request map[string]interface{}) (verdict.Verdict, error)
}

// Simulator is the default deterministic decision-maker, standing in for a
// real LLM or policy backend. It decides from a SHA-256 over its own
// worker id, the action id and the request's fmt "%v" form (map keys
// printed in sorted order), biased against APPROVE for
// HIGH/CRITICAL risk requests so that scenario demonstrations have a
// believable honest majority.
type Simulator struct {
	WorkerID   string
	ModelLabel string
	identity   signer.Identity
}

// NewSimulator builds a Simulator with a fresh identity.
func NewSimulator(workerID, modelLabel string) (*Simulator, error) {
	id, err := signer.New(workerID)
	if err != nil {
		return nil, fmt.Errorf("worker: new simulator %s: %w", workerID, err)
	}
	return &Simulator{WorkerID: workerID, ModelLabel: modelLabel, identity: id}, nil
}

func (s *Simulator) ID() string                { return s.WorkerID }
func (s *Simulator) Identity() signer.Identity { return s.identity }

// Decide is deterministic: identical (workerID, actionID, request) always
// yields the identical verdict, so scenario re-runs produce identical
// verdict distributions.
func (s *Simulator) Decide(ctx context.Context, actionID string, request map[string]interface{}) (verdict.Verdict, error) {
	select {
	case <-ctx.Done():
		return verdict.Verdict{}, ctx.Err()
	default:
	}

	h := sha256.New()
	h.Write([]byte(s.WorkerID))
	h.Write([]byte(actionID))
	fmt.Fprintf(h, "%v", request)
	sum := h.Sum(nil)
	sample := binary.BigEndian.Uint32(sum[:4])

	risk, _ := request["risk"].(string)
	threshold := uint32(0.75 * float64(^uint32(0))) // ~75% APPROVE at baseline
	switch risk {
	case "CRITICAL":
		threshold = uint32(0.10 * float64(^uint32(0)))
	case "HIGH":
		threshold = uint32(0.30 * float64(^uint32(0)))
	case "MEDIUM":
		threshold = uint32(0.60 * float64(^uint32(0)))
	case "LOW":
		threshold = uint32(0.95 * float64(^uint32(0)))
	}

	decision := verdict.Reject
	if sample < threshold {
		decision = verdict.Approve
	}

	confidence := float64(sample%1000) / 1000.0
	if confidence < 0.5 {
		confidence = 1.0 - confidence
	}

	return verdict.Verdict{
		ActionID:   actionID,
		Decision:   decision,
		ReasonCode: verdict.Safe,
		Confidence: confidence,
	}, nil
}
