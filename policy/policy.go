// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package policy evaluates declared intents against an ordered,
// first-match-wins set of governance rules, determining the quorum size
// and human-escalation requirement for a request.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/luxfi/bftgate/intent"
	"github.com/luxfi/log"
	"gopkg.in/yaml.v3"
)

// defaultPolicyYAML seeds a fresh policy file the first time the engine
// runs against a path that does not yet exist.
const defaultPolicyYAML = `policies:
  - id: require_full_consensus_for_production
    target: ".*PRODUCTION.*"
    action: "ANY"
    min_quorum: 4
    escalate_to_human: false
    description: "Production operations require 4/4 unanimous consent."

  - id: human_review_for_financials
    target: "ANY"
    action: "TRANSFER_FUNDS"
    min_quorum: 3
    escalate_to_human: true
    description: "Financial transactions require Human-In-The-Loop approval."

  - id: standard_operations
    target: "ANY"
    action: "ANY"
    min_quorum: 3
    escalate_to_human: false
    description: "Standard 3/4 quorum for regular operations."
`

// Rule is a single governance policy entry.
type Rule struct {
	ID              string `yaml:"id"`
	Target          string `yaml:"target"`
	Action          string `yaml:"action"`
	MinQuorum       int    `yaml:"min_quorum"`
	EscalateToHuman bool   `yaml:"escalate_to_human"`
	Description     string `yaml:"description"`
}

type document struct {
	Policies []Rule `yaml:"policies"`
}

// Decision is the outcome of evaluating an intent against the loaded rules.
type Decision struct {
	PolicyID        string `json:"policy_id"`
	RequiredQuorum  int    `json:"required_quorum"`
	EscalateToHuman bool   `json:"escalate_to_human"`
	Description     string `json:"description"`
}

// Engine holds the ordered rule set loaded from disk.
type Engine struct {
	path   string
	rules  []Rule
	logger log.Logger
}

// New loads rules from path, writing the default policy document first if
// the file does not yet exist.
func New(path string, logger log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	e := &Engine{path: path, logger: logger}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	if _, err := os.Stat(e.path); os.IsNotExist(err) {
		if err := writeAtomic(e.path, []byte(defaultPolicyYAML)); err != nil {
			return fmt.Errorf("policy: seed default policy: %w", err)
		}
	}

	raw, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("policy: read %s: %w", e.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		e.logger.Error("failed to parse policy document, running with no rules", "path", e.path, "error", err)
		e.rules = nil
		return nil
	}

	e.rules = doc.Policies
	e.logger.Info("loaded governance policies", "count", len(e.rules))
	return nil
}

// Evaluate walks the rule list top to bottom; the first rule whose target
// and action both match applies. No match falls back to defaultQuorum with
// no human escalation.
func (e *Engine) Evaluate(d intent.Declaration, defaultQuorum int) Decision {
	result := Decision{
		PolicyID:       "default",
		RequiredQuorum: defaultQuorum,
		Description:    "Default configuration applies.",
	}

	for _, rule := range e.rules {
		if !matches(rule.Target, d.Target) {
			continue
		}
		if !(rule.Action == "ANY" || rule.Action == d.ActionType) {
			continue
		}

		result.PolicyID = rule.ID
		result.RequiredQuorum = rule.MinQuorum
		result.EscalateToHuman = rule.EscalateToHuman
		result.Description = rule.Description
		return result
	}

	return result
}

func matches(pattern, target string) bool {
	if pattern == "ANY" || pattern == "" {
		return true
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false
	}
	return re.MatchString(target)
}

// Rules returns the currently loaded rule set, in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Update validates newYAML as a policy document, persists it atomically,
// and swaps it in only on success; a malformed document leaves the
// previously loaded rules untouched.
func (e *Engine) Update(newYAML string) error {
	var doc document
	if err := yaml.Unmarshal([]byte(newYAML), &doc); err != nil {
		return fmt.Errorf("policy: invalid document: %w", err)
	}
	if doc.Policies == nil {
		return fmt.Errorf("policy: document has no policies key")
	}

	if err := writeAtomic(e.path, []byte(newYAML)); err != nil {
		return fmt.Errorf("policy: persist: %w", err)
	}

	e.rules = doc.Policies
	return nil
}

// writeAtomic writes data to a temp file in the same directory as path and
// renames it into place, so a reader never observes a partially written
// policy document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".policy-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
