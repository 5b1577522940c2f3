package verdict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerceValidPassesThrough(t *testing.T) {
	v := Verdict{ActionID: "a1", Decision: Approve, ReasonCode: Safe, Confidence: 0.9}
	got := Coerce("a1", v)
	require.Equal(t, v, got)
}

func TestCoerceInvalidDecisionFailsClosed(t *testing.T) {
	v := Verdict{ActionID: "a1", Decision: "MAYBE", ReasonCode: Safe, Confidence: 0.9}
	got := Coerce("a1", v)
	require.Equal(t, FailClosed("a1"), got)
}

func TestCoerceOutOfRangeConfidenceFailsClosed(t *testing.T) {
	v := Verdict{ActionID: "a1", Decision: Approve, ReasonCode: Safe, Confidence: 1.5}
	got := Coerce("a1", v)
	require.Equal(t, FailClosed("a1"), got)
}

func TestDecodeMalformedJSONFailsClosed(t *testing.T) {
	got := Decode("a1", []byte(`not json`))
	require.Equal(t, FailClosed("a1"), got)
}

func TestDecodeWellFormedConformant(t *testing.T) {
	got := Decode("a1", []byte(`{"action_id":"a1","decision":"REJECT","reason_code":"SAFE","confidence":0.4}`))
	require.True(t, got.Valid())
	require.Equal(t, Reject, got.Decision)
}
