// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verdict defines the strict shape a worker's decision must take
// and a fail-closed decoder that coerces any deviation to a safe default
// rather than propagating malformed data.
package verdict

import "encoding/json"

// Decision is the worker's vote.
type Decision string

const (
	Approve Decision = "APPROVE"
	Reject  Decision = "REJECT"
)

// ReasonCode explains the decision.
type ReasonCode string

const (
	Safe             ReasonCode = "SAFE"
	InvalidRequest   ReasonCode = "INVALID_REQUEST"
	UnsafeOrUnknown  ReasonCode = "UNSAFE_OR_UNKNOWN"
)

// Verdict is one worker's structured decision for one request.
type Verdict struct {
	ActionID   string     `json:"action_id"`
	Decision   Decision   `json:"decision"`
	ReasonCode ReasonCode `json:"reason_code"`
	Confidence float64    `json:"confidence"`
}

// FailClosed is the coercion target for any verdict that does not conform
// to the schema.
func FailClosed(actionID string) Verdict {
	return Verdict{
		ActionID:   actionID,
		Decision:   Reject,
		ReasonCode: UnsafeOrUnknown,
		Confidence: 0.0,
	}
}

// Valid reports whether v conforms exactly to the verdict schema: Decision
// and ReasonCode are one of the enumerated values, Confidence is within
// [0.0, 1.0].
func (v Verdict) Valid() bool {
	switch v.Decision {
	case Approve, Reject:
	default:
		return false
	}
	switch v.ReasonCode {
	case Safe, InvalidRequest, UnsafeOrUnknown:
	default:
		return false
	}
	if v.Confidence < 0.0 || v.Confidence > 1.0 {
		return false
	}
	return true
}

// Coerce validates v and, on any deviation, returns the fail-closed default
// for actionID instead. Always returns a schema-conformant Verdict.
func Coerce(actionID string, v Verdict) Verdict {
	if v.Valid() {
		return v
	}
	return FailClosed(actionID)
}

// Decode parses raw JSON into a schema-conformant Verdict, fail-closing on
// any parse error or schema violation. This is the boundary through which
// every worker response (including untrusted or buggy worker
// implementations) must pass.
func Decode(actionID string, raw []byte) Verdict {
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return FailClosed(actionID)
	}
	return Coerce(actionID, v)
}
