package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogExecutionAndHistory(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer a.Close()

	id, err := a.LogExecution(Record{
		IntentID:         "i1",
		RiskLevel:        "HIGH",
		ActionType:       "UPDATE",
		Target:           "inventory",
		ConsensusReached: true,
		Certificate:      map[string]string{"decision": "APPROVE"},
		SentryValid:      true,
	}, time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	history, err := a.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "i1", history[0].IntentID)
	require.Contains(t, history[0].ConsensusCert, "APPROVE")
}

func TestHistoryOrdersNewestFirst(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.LogExecution(Record{IntentID: "i1"}, time.Unix(0, 0))
	require.NoError(t, err)
	_, err = a.LogExecution(Record{IntentID: "i2"}, time.Unix(10, 0))
	require.NoError(t, err)

	history, err := a.History(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "i2", history[0].IntentID)
}

func TestLogExecutionWithoutCertificate(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.LogExecution(Record{IntentID: "i1", ConsensusReached: false}, time.Unix(0, 0))
	require.NoError(t, err)

	history, err := a.History(10)
	require.NoError(t, err)
	require.Empty(t, history[0].ConsensusCert)
}
