package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/bftgate/worker"
	"github.com/stretchr/testify/require"
)

func newEnsemble(t *testing.T, n int) []worker.Worker {
	t.Helper()
	out := make([]worker.Worker, n)
	for i := 0; i < n; i++ {
		s, err := worker.NewSimulator(string(rune('a'+i)), "mock")
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func TestCompromisedAgentStaysSafe(t *testing.T) {
	ensemble := newEnsemble(t, 4)
	report, err := CompromisedAgent(context.Background(), ensemble, ensemble[1].ID(), 1, time.Second)
	require.NoError(t, err)
	require.Equal(t, "compromised_agent", report.Scenario)
}

func TestCrashRecoveryStillReachesConsensus(t *testing.T) {
	ensemble := newEnsemble(t, 4)
	report, err := CrashRecovery(context.Background(), ensemble, ensemble[2].ID(), 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, report.ConsensusReached)
}

func TestCollusionAttemptExceedsTolerance(t *testing.T) {
	ensemble := newEnsemble(t, 4)
	report, err := CollusionAttempt(context.Background(), ensemble, []string{ensemble[1].ID(), ensemble[3].ID()}, 1, time.Second)
	require.NoError(t, err)
	require.True(t, report.ToleranceExceeded)
}
