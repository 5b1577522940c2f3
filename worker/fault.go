// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/bftgate/signer"
	"github.com/luxfi/bftgate/verdict"
)

// FaultType enumerates the injectable failure modes.
type FaultType string

const (
	FaultNone      FaultType = "NONE"
	FaultCrash     FaultType = "CRASH"
	FaultOmission  FaultType = "OMISSION"
	FaultTiming    FaultType = "TIMING"
	FaultByzantine FaultType = "BYZANTINE"
	FaultCollusion FaultType = "COLLUSION"
)

// FaultConfig parameterizes a single injected fault.
type FaultConfig struct {
	Type  FaultType
	Delay time.Duration // TIMING: artificial latency before responding

	// MaliciousDecision forces BYZANTINE/COLLUSION workers to that exact
	// decision instead of merely inverting whatever they would have
	// honestly decided. Empty keeps the invert-the-honest-answer fallback.
	MaliciousDecision verdict.Decision

	// CollusionGroup tags which coordinated cohort this worker belongs to,
	// so colluding workers driven by the same scenario can be attributed
	// to a single coordinated actor rather than independent Byzantine ones.
	CollusionGroup string
}

// FaultWrapper decorates a Worker with an injected fault while preserving
// the wrapped worker's identity, so a faulty worker is still
// cryptographically attributable to its real keypair — the certificate
// and trust engines must see the same worker ID/identity whether or not
// a fault is active. Grounded on the FaultyAgentWrapper decorator in the
// original fault injector.
type FaultWrapper struct {
	inner  Worker
	config FaultConfig
}

// NewFaultWrapper wraps inner with the given fault configuration.
func NewFaultWrapper(inner Worker, config FaultConfig) *FaultWrapper {
	return &FaultWrapper{inner: inner, config: config}
}

func (w *FaultWrapper) ID() string                { return w.inner.ID() }
func (w *FaultWrapper) Identity() signer.Identity { return w.inner.Identity() }

// Active reports whether a fault is currently configured.
func (w *FaultWrapper) Active() bool { return w.config.Type != FaultNone && w.config.Type != "" }

func (w *FaultWrapper) Decide(ctx context.Context, actionID string, request map[string]interface{}) (verdict.Verdict, error) {
	switch w.config.Type {
	case FaultCrash:
		// CRASH: the process is dead, not merely slow — it fails
		// synchronously rather than hanging until the caller gives up.
		return verdict.Verdict{}, fmt.Errorf("worker %s: crashed", w.inner.ID())

	case FaultOmission:
		// OMISSION: the worker is alive but silently drops this round.
		// Unlike CRASH, the caller can only detect it by timing out.
		<-ctx.Done()
		return verdict.Verdict{}, ctx.Err()

	case FaultTiming:
		// TIMING: respond honestly, but late enough to risk missing the
		// round deadline.
		select {
		case <-time.After(w.config.Delay):
		case <-ctx.Done():
			return verdict.Verdict{}, ctx.Err()
		}
		return w.inner.Decide(ctx, actionID, request)

	case FaultByzantine:
		// BYZANTINE: respond promptly but dishonestly. A configured
		// MaliciousDecision wins outright; absent one, invert whatever the
		// wrapped worker would have honestly decided.
		v, err := w.inner.Decide(ctx, actionID, request)
		if err != nil {
			return verdict.Verdict{}, err
		}
		return forge(v, w.config.MaliciousDecision), nil

	case FaultCollusion:
		// COLLUSION: like BYZANTINE, a worker lies toward a forced
		// decision; CollusionGroup attributes it to a single coordinated
		// actor rather than an independent Byzantine worker, since the
		// scenario harness drives every member of the group to agree.
		v, err := w.inner.Decide(ctx, actionID, request)
		if err != nil {
			return verdict.Verdict{}, err
		}
		return forge(v, w.config.MaliciousDecision), nil

	default:
		return w.inner.Decide(ctx, actionID, request)
	}
}

// forge produces the dishonest verdict a BYZANTINE/COLLUSION worker
// reports: the configured malicious decision if one is set, otherwise the
// honest decision inverted.
func forge(v verdict.Verdict, malicious verdict.Decision) verdict.Verdict {
	decision := malicious
	if decision == "" {
		decision = verdict.Approve
		if v.Decision == verdict.Approve {
			decision = verdict.Reject
		}
	}
	return verdict.Verdict{
		ActionID:   v.ActionID,
		Decision:   decision,
		ReasonCode: verdict.Safe,
		Confidence: 0.99,
	}
}
