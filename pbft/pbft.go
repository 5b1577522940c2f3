// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pbft implements the three-phase Practical Byzantine Fault
// Tolerance message log: pre-prepare, prepare, commit. It tracks, for a
// single (view, sequence) instance, which workers have
// prepared and committed to a given result hash, and reports when each
// phase has reached quorum.
package pbft

// Phase names the three PBFT message phases.
type Phase string

const (
	PhasePrePrepare Phase = "PRE_PREPARE"
	PhasePrepare    Phase = "PREPARE"
	PhaseCommit     Phase = "COMMIT"
)

// SignedEntry is one worker's signature over a phase for a given result
// hash, the unit accumulated into prepare and commit quorums.
type SignedEntry struct {
	WorkerID  string `json:"agent_id"`
	Signature string `json:"signature"`
}

// QuorumSize returns 2f+1, the minimum number of matching signed entries
// required for either the prepare or the commit phase to be considered
// met, tolerating up to f Byzantine workers out of N = 3f+1.
func QuorumSize(f int) int {
	return 2*f + 1
}

// Log accumulates Prepare and Commit entries for a single (view, sequence)
// instance, keyed by the hash each worker voted for — workers voting for
// different hashes never count toward the same quorum, and VotedHashes
// can tell a worker that voted for more than one hash apart from honest
// ones.
type Log struct {
	View     int
	Sequence int

	prePrepareSig string
	requestHash   string

	prepares map[string][]SignedEntry // result hash -> entries
	commits  map[string][]SignedEntry
}

// NewLog starts a fresh message log for (view, sequence) bound to
// requestHash, with prePrepareSig carrying the primary's signature over it.
func NewLog(view, sequence int, requestHash, prePrepareSig string) *Log {
	return &Log{
		View:          view,
		Sequence:      sequence,
		requestHash:   requestHash,
		prePrepareSig: prePrepareSig,
		prepares:      make(map[string][]SignedEntry),
		commits:       make(map[string][]SignedEntry),
	}
}

// RequestHash returns the hash this instance was pre-prepared against.
func (l *Log) RequestHash() string { return l.requestHash }

// PrePrepareSignature returns the primary's pre-prepare signature.
func (l *Log) PrePrepareSignature() string { return l.prePrepareSig }

// AddPrepare records workerID's prepare vote for resultHash. A worker that
// has already voted for a different hash in this instance is equivocating;
// this method only records the vote as given, and VotedHashes reports
// every hash a worker voted for.
func (l *Log) AddPrepare(resultHash string, entry SignedEntry) {
	l.prepares[resultHash] = appendUnique(l.prepares[resultHash], entry)
}

// AddCommit records workerID's commit vote for resultHash.
func (l *Log) AddCommit(resultHash string, entry SignedEntry) {
	l.commits[resultHash] = appendUnique(l.commits[resultHash], entry)
}

// PrepareQuorum reports whether resultHash has reached 2f+1 prepare votes,
// and returns the votes if so.
func (l *Log) PrepareQuorum(resultHash string, f int) ([]SignedEntry, bool) {
	entries := l.prepares[resultHash]
	return entries, len(entries) >= QuorumSize(f)
}

// CommitQuorum reports whether resultHash has reached 2f+1 commit votes,
// and returns the votes if so.
func (l *Log) CommitQuorum(resultHash string, f int) ([]SignedEntry, bool) {
	entries := l.commits[resultHash]
	return entries, len(entries) >= QuorumSize(f)
}

// VotedHashes returns every distinct result hash workerID has submitted a
// prepare vote for in this instance. More than one distinct hash is
// equivocation.
func (l *Log) VotedHashes(workerID string) []string {
	var hashes []string
	for hash, entries := range l.prepares {
		for _, e := range entries {
			if e.WorkerID == workerID {
				hashes = append(hashes, hash)
				break
			}
		}
	}
	return hashes
}

func appendUnique(entries []SignedEntry, entry SignedEntry) []SignedEntry {
	for _, e := range entries {
		if e.WorkerID == entry.WorkerID {
			return entries
		}
	}
	return append(entries, entry)
}

// Primary returns the index into a size-N worker list that holds the
// primary role for view, using the standard round-robin rotation.
func Primary(view, n int) int {
	if n <= 0 {
		return 0
	}
	return view % n
}
