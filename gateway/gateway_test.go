package gateway

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/bftgate/audit"
	"github.com/luxfi/bftgate/policy"
	"github.com/luxfi/bftgate/registry"
	"github.com/luxfi/bftgate/trust"
	"github.com/luxfi/bftgate/worker"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	dir := t.TempDir()

	workers := make([]worker.Worker, 4)
	for i := 0; i < 4; i++ {
		s, err := worker.NewSimulator(string(rune('a'+i)), "mock")
		require.NoError(t, err)
		workers[i] = s
	}

	pol, err := policy.New(filepath.Join(dir, "policies.yaml"), nil)
	require.NoError(t, err)
	tr := trust.New(filepath.Join(dir, "trust.json"), nil)
	aud, err := audit.Open(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { aud.Close() })

	return New(workers, 1, time.Second, true, pol, registry.New(), tr, aud, nil, nil, nil)
}

func TestSubmitBlocksCriticalProductionInStrictMode(t *testing.T) {
	g := newTestGateway(t)
	result, err := g.Submit(context.Background(), map[string]interface{}{
		"operation": "DELETE",
		"target":    "PRODUCTION-db",
	})
	require.NoError(t, err)
	require.Equal(t, StatusBlocked, result.Status)
}

func TestSubmitReachesConsensusForOrdinaryRequest(t *testing.T) {
	g := newTestGateway(t)
	result, err := g.Submit(context.Background(), map[string]interface{}{
		"operation": "READ",
		"target":    "inventory",
		"risk":      "LOW",
	})
	require.NoError(t, err)
	require.NotEqual(t, StatusBlocked, result.Status)
	require.Len(t, g.Registry.Catalog(), 4)
}

func TestInjectAndClearFault(t *testing.T) {
	g := newTestGateway(t)
	workerID := g.Workers[0].ID()

	require.True(t, g.InjectFault(workerID, worker.FaultConfig{Type: worker.FaultCrash}))
	entry, ok := g.Registry.Get(workerID)
	require.True(t, ok)
	require.Equal(t, registry.StatusFaulty, entry.Status)

	g.ClearFault(workerID)
	entry, ok = g.Registry.Get(workerID)
	require.True(t, ok)
	require.Equal(t, registry.StatusOnline, entry.Status)
}

func TestInjectFaultUnknownWorkerFails(t *testing.T) {
	g := newTestGateway(t)
	require.False(t, g.InjectFault("ghost", worker.FaultConfig{Type: worker.FaultCrash}))
}
