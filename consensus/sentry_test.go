package consensus

import (
	"testing"

	"github.com/luxfi/bftgate/intent"
	"github.com/luxfi/bftgate/verdict"
	"github.com/stretchr/testify/require"
)

func TestValidateAlignmentPassesOnReject(t *testing.T) {
	d := intent.Declaration{Target: "inventory"}
	v := verdict.Verdict{Decision: verdict.Reject}
	require.True(t, ValidateAlignment(d, v, "something-else", nil))
}

func TestValidateAlignmentPassesOnMatchingTarget(t *testing.T) {
	d := intent.Declaration{Target: "inventory"}
	v := verdict.Verdict{Decision: verdict.Approve}
	require.True(t, ValidateAlignment(d, v, "inventory", nil))
}

func TestValidateAlignmentDetectsDrift(t *testing.T) {
	d := intent.Declaration{Target: "inventory"}
	v := verdict.Verdict{Decision: verdict.Approve}
	require.False(t, ValidateAlignment(d, v, "production-database", nil))
}
