// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package intent classifies an incoming request's risk and applies the
// pre-execution guardrails that sit in front of consensus.
package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/luxfi/log"
)

// Risk is the classified severity of a requested action.
type Risk string

const (
	RiskCritical Risk = "CRITICAL"
	RiskHigh     Risk = "HIGH"
	RiskMedium   Risk = "MEDIUM"
	RiskLow      Risk = "LOW"
	RiskUnknown  Risk = "UNKNOWN"
)

var (
	criticalActions = map[string]bool{"DELETE": true, "DROP": true, "WIPE": true, "TRANSFER_FUNDS": true}
	highActions     = map[string]bool{"UPDATE": true, "MODIFY": true, "GRANT_ACCESS": true, "REBOOT": true}
	mediumActions   = map[string]bool{"CREATE": true, "INSERT": true, "UPLOAD": true}
	lowActions      = map[string]bool{"READ": true, "GET": true, "PING": true, "HEALTHCHECK": true, "LIST": true}
)

// ClassifyRisk maps an action type onto a Risk tier. Unknown action types
// fail open toward the classification, not the decision: callers still
// route an UNKNOWN-risk request through full consensus.
func ClassifyRisk(actionType string) Risk {
	actionType = strings.ToUpper(actionType)
	switch {
	case criticalActions[actionType]:
		return RiskCritical
	case highActions[actionType]:
		return RiskHigh
	case mediumActions[actionType]:
		return RiskMedium
	case lowActions[actionType]:
		return RiskLow
	default:
		return RiskUnknown
	}
}

// Declaration is the normalized form of a raw request, carrying its
// classified risk tier through the rest of the gateway.
type Declaration struct {
	IntentID    string `json:"intent_id"`
	ActionType  string `json:"action_type"`
	Target      string `json:"target"`
	Description string `json:"description"`
	RiskLevel   Risk   `json:"risk_level"`
	CreatedAt   string `json:"created_at"`
}

// Build parses a raw request body into a Declaration, classifying its
// risk tier. now is injected so callers control determinism in tests.
func Build(request map[string]interface{}, now time.Time) Declaration {
	actionType, _ := request["operation"].(string)
	if actionType == "" {
		actionType = "UNKNOWN"
	}
	target, _ := request["target"].(string)
	if target == "" {
		target = "UNKNOWN"
	}
	desc, _ := request["description"].(string)
	if desc == "" {
		desc = fmt.Sprintf("Execute %s on %s", actionType, target)
	}

	return Declaration{
		IntentID:    uuid.NewString(),
		ActionType:  actionType,
		Target:      target,
		Description: desc,
		RiskLevel:   ClassifyRisk(actionType),
		CreatedAt:   now.UTC().Format(time.RFC3339),
	}
}

// Guardrails evaluates the declared intent against the pre-execution
// blocking policy. In strict mode a CRITICAL-risk action against a target
// naming "PRODUCTION" is hard-blocked before any worker is invoked. In
// non-strict ("consensus") mode the same request is allowed through but
// flagged as bypassed, so the decision is instead made by the Byzantine
// quorum rather than by this single gate.
func Guardrails(d Declaration, strict bool, logger log.Logger) (allowed bool, bypassed bool) {
	isCriticalProduction := d.RiskLevel == RiskCritical && strings.Contains(strings.ToUpper(d.Target), "PRODUCTION")
	if !isCriticalProduction {
		return true, false
	}

	if strict {
		logger.Warn("guardrail blocked request",
			"mode", "strict",
			"action_type", d.ActionType,
			"target", d.Target,
			"risk_level", string(d.RiskLevel),
		)
		return false, false
	}

	logger.Warn("guardrail bypassed, deferring to consensus",
		"mode", "bypassed",
		"action_type", d.ActionType,
		"target", d.Target,
		"risk_level", string(d.RiskLevel),
	)
	return true, true
}
