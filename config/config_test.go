package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("F_FAULTS")
	os.Unsetenv("CONSENSUS_TIMEOUT_SEC")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1, c.F)
	require.Equal(t, 4, c.N)
}

func TestLoadRejectsNegativeF(t *testing.T) {
	t.Setenv("F_FAULTS", "-1")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	t.Setenv("CONSENSUS_TIMEOUT_SEC", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadCollectsAllViolations(t *testing.T) {
	t.Setenv("F_FAULTS", "-1")
	t.Setenv("CONSENSUS_TIMEOUT_SEC", "0")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "F_FAULTS")
	require.Contains(t, err.Error(), "CONSENSUS_TIMEOUT_SEC")
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("F_FAULTS", "2")
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2, c.F)
	require.Equal(t, 7, c.N)
}
