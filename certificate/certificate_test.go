package certificate

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/luxfi/bftgate/pbft"
	"github.com/luxfi/bftgate/signer"
	"github.com/stretchr/testify/require"
)

func makeIdentities(t *testing.T, n int) ([]signer.Identity, map[string]ed25519.PublicKey) {
	t.Helper()
	ids := make([]signer.Identity, n)
	keys := make(map[string]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		id, err := signer.New(string(rune('a' + i)))
		require.NoError(t, err)
		ids[i] = id
		keys[id.WorkerID] = id.VerifyKey
	}
	return ids, keys
}

func TestVerifyAcceptsWellFormedCertificate(t *testing.T) {
	ids, keys := makeIdentities(t, 4)
	requestHash := "aaaa"
	resultHash := "bbbb"

	var prepares, commits []pbft.SignedEntry
	for _, id := range ids[:3] {
		prepares = append(prepares, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: id.Sign(requestHash)})
		commits = append(commits, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: id.Sign(resultHash)})
	}

	cert := New(0, 1, requestHash, ids[0].Sign(requestHash), prepares, commits, resultHash, "APPROVE", time.Unix(0, 0))
	report := Verify(cert, keys, 1)

	require.True(t, report.Valid)
	require.Equal(t, 3, report.ValidPrepares)
	require.Equal(t, 3, report.ValidCommits)
}

func TestVerifyRejectsUndersizedQuorum(t *testing.T) {
	ids, keys := makeIdentities(t, 4)
	requestHash := "aaaa"
	resultHash := "bbbb"

	var prepares, commits []pbft.SignedEntry
	for _, id := range ids[:2] {
		prepares = append(prepares, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: id.Sign(requestHash)})
		commits = append(commits, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: id.Sign(resultHash)})
	}

	cert := New(0, 1, requestHash, ids[0].Sign(requestHash), prepares, commits, resultHash, "APPROVE", time.Unix(0, 0))
	report := Verify(cert, keys, 1)

	require.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
}

func TestVerifyRejectsForgedSignature(t *testing.T) {
	ids, keys := makeIdentities(t, 4)
	requestHash := "aaaa"
	resultHash := "bbbb"

	var prepares, commits []pbft.SignedEntry
	for i, id := range ids[:3] {
		sig := id.Sign(requestHash)
		if i == 0 {
			sig = ids[3].Sign(requestHash) // signed by a worker not claimed
		}
		prepares = append(prepares, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: sig})
		commits = append(commits, pbft.SignedEntry{WorkerID: id.WorkerID, Signature: id.Sign(resultHash)})
	}

	cert := New(0, 1, requestHash, ids[0].Sign(requestHash), prepares, commits, resultHash, "APPROVE", time.Unix(0, 0))
	report := Verify(cert, keys, 1)

	require.False(t, report.Valid)
}
