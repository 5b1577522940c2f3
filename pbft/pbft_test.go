package pbft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuorumSize(t *testing.T) {
	require.Equal(t, 3, QuorumSize(1))
	require.Equal(t, 5, QuorumSize(2))
}

func TestPrimaryRotates(t *testing.T) {
	require.Equal(t, 0, Primary(0, 4))
	require.Equal(t, 1, Primary(1, 4))
	require.Equal(t, 0, Primary(4, 4))
}

func TestPrepareQuorumReachedAtThreshold(t *testing.T) {
	l := NewLog(0, 1, "req-hash", "sig0")

	l.AddPrepare("result-a", SignedEntry{WorkerID: "w0", Signature: "s0"})
	_, met := l.PrepareQuorum("result-a", 1)
	require.False(t, met)

	l.AddPrepare("result-a", SignedEntry{WorkerID: "w1", Signature: "s1"})
	l.AddPrepare("result-a", SignedEntry{WorkerID: "w2", Signature: "s2"})
	entries, met := l.PrepareQuorum("result-a", 1)
	require.True(t, met)
	require.Len(t, entries, 3)
}

func TestAddPrepareIsIdempotentPerWorker(t *testing.T) {
	l := NewLog(0, 1, "req-hash", "sig0")
	l.AddPrepare("result-a", SignedEntry{WorkerID: "w0", Signature: "s0"})
	l.AddPrepare("result-a", SignedEntry{WorkerID: "w0", Signature: "s0-dup"})
	entries, _ := l.PrepareQuorum("result-a", 1)
	require.Len(t, entries, 1)
}

func TestVotedHashesDetectsEquivocation(t *testing.T) {
	l := NewLog(0, 1, "req-hash", "sig0")
	l.AddPrepare("result-a", SignedEntry{WorkerID: "w0", Signature: "s0"})
	l.AddPrepare("result-b", SignedEntry{WorkerID: "w0", Signature: "s0b"})

	hashes := l.VotedHashes("w0")
	require.Len(t, hashes, 2)
}
