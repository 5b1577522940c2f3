package intent

import (
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestClassifyRiskTiers(t *testing.T) {
	require.Equal(t, RiskCritical, ClassifyRisk("delete"))
	require.Equal(t, RiskHigh, ClassifyRisk("Modify"))
	require.Equal(t, RiskMedium, ClassifyRisk("UPLOAD"))
	require.Equal(t, RiskLow, ClassifyRisk("ping"))
	require.Equal(t, RiskUnknown, ClassifyRisk("FRY_EGGS"))
}

func TestBuildFillsDefaults(t *testing.T) {
	d := Build(map[string]interface{}{}, time.Unix(0, 0))
	require.Equal(t, "UNKNOWN", d.ActionType)
	require.Equal(t, "UNKNOWN", d.Target)
	require.NotEmpty(t, d.IntentID)
	require.Equal(t, RiskUnknown, d.RiskLevel)
}

func TestGuardrailsStrictBlocksCriticalProduction(t *testing.T) {
	d := Declaration{ActionType: "DELETE", Target: "production-database", RiskLevel: RiskCritical}
	allowed, bypassed := Guardrails(d, true, log.NewNoOpLogger())
	require.False(t, allowed)
	require.False(t, bypassed)
}

func TestGuardrailsNonStrictBypassesCriticalProduction(t *testing.T) {
	d := Declaration{ActionType: "DELETE", Target: "production-database", RiskLevel: RiskCritical}
	allowed, bypassed := Guardrails(d, false, log.NewNoOpLogger())
	require.True(t, allowed)
	require.True(t, bypassed)
}

func TestGuardrailsAllowsNonCriticalProduction(t *testing.T) {
	d := Declaration{ActionType: "READ", Target: "production-database", RiskLevel: RiskLow}
	allowed, bypassed := Guardrails(d, true, log.NewNoOpLogger())
	require.True(t, allowed)
	require.False(t, bypassed)
}
