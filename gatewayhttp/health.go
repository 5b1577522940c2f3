// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gatewayhttp

import (
	"context"
	"time"
)

// Checker reports whether a dependency the gateway relies on (the policy
// file, the audit database, the worker ensemble) is currently healthy.
type Checker interface {
	HealthCheck(context.Context) (interface{}, error)
}

// HealthReport is the aggregate result of running every registered Checker.
type HealthReport struct {
	Healthy  bool                   `json:"healthy"`
	Checks   []HealthCheck          `json:"checks,omitempty"`
	Duration time.Duration          `json:"duration"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck is one named Checker's outcome.
type HealthCheck struct {
	Name     string        `json:"name"`
	Healthy  bool          `json:"healthy"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunHealthChecks executes every named checker and aggregates the result.
func RunHealthChecks(ctx context.Context, checkers map[string]Checker) HealthReport {
	start := time.Now()
	report := HealthReport{Healthy: true}

	for name, checker := range checkers {
		checkStart := time.Now()
		_, err := checker.HealthCheck(ctx)
		check := HealthCheck{Name: name, Duration: time.Since(checkStart)}
		if err != nil {
			check.Healthy = false
			check.Error = err.Error()
			report.Healthy = false
		} else {
			check.Healthy = true
		}
		report.Checks = append(report.Checks, check)
	}

	report.Duration = time.Since(start)
	return report
}
