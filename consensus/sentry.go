// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"strings"

	"github.com/luxfi/bftgate/intent"
	"github.com/luxfi/bftgate/verdict"
	"github.com/luxfi/log"
)

// ValidateAlignment checks that an APPROVE verdict did not drift from the
// originally declared intent's target — guarding against a worker
// majority that sneakily substitutes a different target than the one
// that was actually requested. A REJECT verdict is always considered
// aligned: fail-closed outcomes carry no drift risk.
func ValidateAlignment(d intent.Declaration, v verdict.Verdict, resultTarget string, logger log.Logger) bool {
	if v.Decision != verdict.Approve {
		return true
	}
	if resultTarget == "" || strings.EqualFold(resultTarget, d.Target) {
		return true
	}
	if logger != nil {
		logger.Error("drift detected between intent and consensus result",
			"intent_target", d.Target,
			"result_target", resultTarget,
		)
	}
	return false
}
