// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trust maintains per-worker reputation scores derived from
// consensus-round participation: whether a worker agreed with the final
// decision, whether it responded at all, and how fast.
package trust

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/luxfi/log"
)

const (
	initialScore  = 100.0
	maxScore      = 100.0
	minScore      = 0.0
	agreeDelta    = 1.5
	disagreeDelta = -10.0
	faultDelta    = -15.0
	maxHistory    = 50
)

// Stats is one worker's running reputation record.
type Stats struct {
	Score               float64 `json:"score"`
	TotalParticipations int     `json:"total_participations"`
	Agreements          int     `json:"agreements"`
	Disagreements       int     `json:"disagreements"`
	AvgLatencyMs        int     `json:"avg_latency_ms"`
}

// RoundResult is a single worker's outcome for one consensus round, fed
// into Engine.EvaluateRound.
type RoundResult struct {
	WorkerID string
	Decision string // empty if OK is false
	OK       bool   // false on timeout/error/fault
}

type roundRecord struct {
	Timestamp    float64            `json:"timestamp"`
	Decision     string             `json:"decision"`
	WorkerDeltas map[string]float64 `json:"agent_deltas"`
}

type document struct {
	Scores  map[string]*Stats `json:"scores"`
	History []roundRecord     `json:"history"`
}

// Engine tracks reputation for every worker it has seen, persisting to
// disk after each round so scores survive a restart.
type Engine struct {
	mu          sync.Mutex
	persistPath string
	scores      map[string]*Stats
	history     []roundRecord
	logger      log.Logger
}

// New loads reputation state from persistPath if present, or starts fresh.
func New(persistPath string, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	e := &Engine{
		persistPath: persistPath,
		scores:      make(map[string]*Stats),
		logger:      logger,
	}
	e.load()
	return e
}

func (e *Engine) load() {
	raw, err := os.ReadFile(e.persistPath)
	if err != nil {
		return
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		e.logger.Warn("failed to parse trust state, starting fresh", "path", e.persistPath, "error", err)
		return
	}
	if doc.Scores != nil {
		e.scores = doc.Scores
	}
	e.history = doc.History
}

func (e *Engine) save() {
	doc := document{Scores: e.scores, History: e.history}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		e.logger.Warn("failed to marshal trust state", "error", err)
		return
	}
	if err := writeAtomic(e.persistPath, raw); err != nil {
		e.logger.Warn("failed to persist trust state", "path", e.persistPath, "error", err)
	}
}

// Get returns a copy of workerID's current stats, creating a fresh
// baseline record if this is the first time workerID has been seen.
func (e *Engine) Get(workerID string) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.statsFor(workerID)
}

func (e *Engine) statsFor(workerID string) *Stats {
	s, ok := e.scores[workerID]
	if !ok {
		s = &Stats{Score: initialScore}
		e.scores[workerID] = s
	}
	return s
}

// EvaluateRound updates every participating worker's score against
// finalDecision: OK and agreeing nudges the score up, disagreeing or
// faulting pulls it down sharply, and the latency EMA (alpha 0.1) folds
// in roundLatencyMs. The per-round history keeps the last maxHistory
// rounds.
func (e *Engine) EvaluateRound(finalDecision string, results []RoundResult, roundLatencyMs int, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := roundRecord{
		Timestamp:    float64(now.Unix()),
		Decision:     finalDecision,
		WorkerDeltas: make(map[string]float64, len(results)),
	}

	for _, r := range results {
		stats := e.statsFor(r.WorkerID)
		stats.TotalParticipations++

		if stats.AvgLatencyMs > 0 {
			stats.AvgLatencyMs = int(float64(stats.AvgLatencyMs)*0.9 + float64(roundLatencyMs)*0.1)
		} else {
			stats.AvgLatencyMs = roundLatencyMs
		}

		var delta float64
		switch {
		case !r.OK:
			delta = faultDelta
			stats.Disagreements++
		case r.Decision == finalDecision:
			delta = agreeDelta
			stats.Agreements++
		default:
			delta = disagreeDelta
			stats.Disagreements++
		}

		stats.Score = clamp(stats.Score+delta, minScore, maxScore)
		record.WorkerDeltas[r.WorkerID] = delta
	}

	e.history = append(e.history, record)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}

	e.save()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".trust-*.tmp")
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
