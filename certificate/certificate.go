// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package certificate produces and independently verifies the
// cryptographic proof that a PBFT round completed correctly: that 2f+1
// workers prepared and 2f+1 committed, every signature checks out against
// its worker's verify key, and the request/result hashes are consistent
// throughout.
package certificate

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/luxfi/bftgate/pbft"
	"github.com/luxfi/bftgate/signer"
)

// Certificate is the auditable artifact produced at the end of a
// consensus round. Each PrepareQuorum entry is a worker's direct
// signature over RequestHash and each CommitQuorum entry a direct
// signature over ResultHash, so a verifier needs only the two hashes and
// the workers' verify keys.
type Certificate struct {
	ViewNumber          int                `json:"view_number"`
	SequenceNumber      int                `json:"sequence_number"`
	RequestHash         string             `json:"request_hash"`
	PrePrepareSignature string             `json:"pre_prepare_signature"`
	PrepareQuorum       []pbft.SignedEntry `json:"prepare_quorum"`
	CommitQuorum        []pbft.SignedEntry `json:"commit_quorum"`
	ResultHash          string             `json:"result_hash"`
	Decision            string             `json:"decision"`
	Timestamp           string             `json:"timestamp"`
}

// New builds a Certificate from a completed round, stamping now as its
// creation time.
func New(view, sequence int, requestHash, prePrepareSig string, prepareQuorum, commitQuorum []pbft.SignedEntry, resultHash, decision string, now time.Time) Certificate {
	return Certificate{
		ViewNumber:          view,
		SequenceNumber:      sequence,
		RequestHash:         requestHash,
		PrePrepareSignature: prePrepareSig,
		PrepareQuorum:       prepareQuorum,
		CommitQuorum:        commitQuorum,
		ResultHash:          resultHash,
		Decision:            decision,
		Timestamp:           now.UTC().Format(time.RFC3339),
	}
}

// QuorumMet summarizes the prepare/commit participation counts, mirroring
// what an auditor dashboard would show.
func (c Certificate) QuorumMet() (prepare, commit int) {
	return len(c.PrepareQuorum), len(c.CommitQuorum)
}

// Report is the result of independently verifying a Certificate.
type Report struct {
	Valid          bool     `json:"valid"`
	ValidPrepares  int      `json:"valid_prepares"`
	ValidCommits   int      `json:"valid_commits"`
	QuorumRequired int      `json:"quorum_required"`
	Errors         []string `json:"errors"`
}

// Verify independently checks c's cryptographic integrity against the
// supplied verify keys: quorum sizes must meet 2f+1, and every signature
// must check out over the UTF-8 bytes of the hash it attests to — prepare
// entries sign the request hash, commit entries sign the result hash.
// A Certificate that fails any check is not valid even if most signatures
// check out; Non-goal: this never attempts to "repair" a bad certificate.
func Verify(c Certificate, verifyKeys map[string]ed25519.PublicKey, f int) Report {
	quorumSize := pbft.QuorumSize(f)
	var errs []string

	if len(c.PrepareQuorum) < quorumSize {
		errs = append(errs, fmt.Sprintf("prepare quorum too small: %d < %d", len(c.PrepareQuorum), quorumSize))
	}
	if len(c.CommitQuorum) < quorumSize {
		errs = append(errs, fmt.Sprintf("commit quorum too small: %d < %d", len(c.CommitQuorum), quorumSize))
	}

	validPrepares := 0
	for _, entry := range c.PrepareQuorum {
		vk, ok := verifyKeys[entry.WorkerID]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing verify key for %s", entry.WorkerID))
			continue
		}
		if err := signer.Verify(vk, c.RequestHash, entry.Signature); err != nil {
			errs = append(errs, fmt.Sprintf("invalid prepare signature from %s", entry.WorkerID))
			continue
		}
		validPrepares++
	}

	validCommits := 0
	for _, entry := range c.CommitQuorum {
		vk, ok := verifyKeys[entry.WorkerID]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing verify key for %s", entry.WorkerID))
			continue
		}
		if err := signer.Verify(vk, c.ResultHash, entry.Signature); err != nil {
			errs = append(errs, fmt.Sprintf("invalid commit signature from %s", entry.WorkerID))
			continue
		}
		validCommits++
	}

	valid := len(errs) == 0 && validPrepares >= quorumSize && validCommits >= quorumSize

	return Report{
		Valid:          valid,
		ValidPrepares:  validPrepares,
		ValidCommits:   validCommits,
		QuorumRequired: quorumSize,
		Errors:         errs,
	}
}
