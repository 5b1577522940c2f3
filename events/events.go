// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the event vocabulary the consensus engine emits
// as it drives a round, and the Hook type used to stream them out without
// the engine needing to know about HTTP or WebSockets.
package events

// Type names one kind of consensus-round event.
type Type string

const (
	RoundStarted     Type = "round_started"
	PhaseUpdate      Type = "phase_update"
	WorkerResponse   Type = "agent_response"
	ConsensusReached Type = "consensus_reached"
	ConsensusFailed  Type = "consensus_failed"
	DriftDetected    Type = "drift_detected"
	ViewChanged      Type = "view_changed"
	FaultInjected    Type = "fault_injected"
	FaultCleared     Type = "fault_cleared"
)

// Event is one emitted occurrence, with a free-form payload the caller
// can type-assert on a per-Type basis.
type Event struct {
	Type Type                   `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Hook receives events as the engine emits them. A Hook must not block
// the caller for long; a hook that needs to fan out to many consumers
// (e.g. multiple open WebSocket connections) is expected to do so
// asynchronously itself.
type Hook func(Event)

// NoOp is a Hook that discards every event, the default when no
// transport is attached.
func NoOp(Event) {}
