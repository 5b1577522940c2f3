// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package audit persists an immutable, append-only log of every decision
// the gateway ever reached, linking the declared intent through to its
// consensus certificate. Storage is modernc.org/sqlite's pure-Go driver,
// so the gateway carries no cgo dependency.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	intent_id TEXT,
	timestamp TEXT,
	risk_level TEXT,
	action_type TEXT,
	target TEXT,
	consensus_reached INTEGER,
	consensus_cert TEXT,
	sentry_valid INTEGER
)`

// Record is one logged decision, joining the declared intent to its
// outcome.
type Record struct {
	IntentID         string
	RiskLevel        string
	ActionType       string
	Target           string
	ConsensusReached bool
	Certificate      interface{} // marshaled to JSON; nil if consensus was not reached
	SentryValid      bool
}

// Entry is a Record as read back from storage, with its assigned ID and
// timestamp.
type Entry struct {
	ID               int64  `json:"id"`
	IntentID         string `json:"intent_id"`
	Timestamp        string `json:"timestamp"`
	RiskLevel        string `json:"risk_level"`
	ActionType       string `json:"action_type"`
	Target           string `json:"target"`
	ConsensusReached bool   `json:"consensus_reached"`
	ConsensusCert    string `json:"consensus_cert,omitempty"`
	SentryValid      bool   `json:"sentry_validation"`
}

// Auditor appends decision records to a sqlite-backed log.
type Auditor struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// ensures the audit_logs table exists.
func Open(dbPath string) (*Auditor, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &Auditor{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Auditor) Close() error { return a.db.Close() }

// LogExecution inserts one audit record, stamped with now, and returns
// its assigned row ID.
func (a *Auditor) LogExecution(r Record, now time.Time) (int64, error) {
	var certJSON sql.NullString
	if r.Certificate != nil {
		raw, err := json.Marshal(r.Certificate)
		if err != nil {
			return 0, fmt.Errorf("audit: marshal certificate: %w", err)
		}
		certJSON = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := a.db.Exec(
		`INSERT INTO audit_logs (intent_id, timestamp, risk_level, action_type, target, consensus_reached, consensus_cert, sentry_valid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.IntentID, now.UTC().Format(time.RFC3339), r.RiskLevel, r.ActionType, r.Target, r.ConsensusReached, certJSON, r.SentryValid,
	)
	if err != nil {
		return 0, fmt.Errorf("audit: insert: %w", err)
	}
	return res.LastInsertId()
}

// History returns the most recent limit audit entries, newest first.
func (a *Auditor) History(limit int) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT id, intent_id, timestamp, risk_level, action_type, target, consensus_reached, consensus_cert, sentry_valid
		 FROM audit_logs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var cert sql.NullString
		if err := rows.Scan(&e.ID, &e.IntentID, &e.Timestamp, &e.RiskLevel, &e.ActionType, &e.Target, &e.ConsensusReached, &cert, &e.SentryValid); err != nil {
			return nil, fmt.Errorf("audit: scan row: %w", err)
		}
		e.ConsensusCert = cert.String
		out = append(out, e)
	}
	return out, rows.Err()
}
