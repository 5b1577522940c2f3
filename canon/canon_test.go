package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONDeterministic(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": "x", "c": []interface{}{3, 2, 1}}
	b := map[string]interface{}{"c": []interface{}{3, 2, 1}, "a": "x", "b": 1}

	ja, err := JSON(a)
	require.NoError(t, err)
	jb, err := JSON(b)
	require.NoError(t, err)

	require.Equal(t, string(ja), string(jb))
	require.Equal(t, `{"a":"x","b":1,"c":[3,2,1]}`, string(ja))
}

func TestHashDeterministic(t *testing.T) {
	v := map[string]interface{}{"operation": "PING", "target": "internal_service"}
	h1, err := Hash(v)
	require.NoError(t, err)
	h2, err := Hash(v)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}

func TestHashDiffersOnContent(t *testing.T) {
	h1 := MustHash(map[string]interface{}{"a": 1})
	h2 := MustHash(map[string]interface{}{"a": 2})
	require.NotEqual(t, h1, h2)
}
