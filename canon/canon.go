// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package canon provides canonical JSON serialization and SHA-256 hashing for
// any structured value that crosses a signature boundary in the gateway:
// requests, verdicts, and PBFT messages are all hashed the same way so that
// signer, pbft, and certificate agree on byte domain.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// JSON returns the canonical encoding of v: object keys sorted ascending
// lexicographically, no insignificant whitespace. v must be JSON-marshalable
// (a struct, or a map[string]any as used for raw request bodies).
func JSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return encode(generic)
}

// Hash returns the lowercase hex SHA-256 digest of the canonical JSON
// encoding of v.
func Hash(v interface{}) (string, error) {
	b, err := JSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is Hash but panics on encode failure; used for values whose
// shape is statically known to be JSON-encodable (our own structs), never
// for values parsed from an untrusted boundary.
func MustHash(v interface{}) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// encode re-serializes a decoded interface{} tree with sorted map keys and
// minimal separators. encoding/json already sorts map[string]interface{}
// keys and emits no whitespace via Marshal, but we route every value through
// an untyped round-trip first so that struct field order (which Marshal
// preserves, not sorts) never leaks into the canonical form.
func encode(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]byte, 0, 64)
		out = append(out, '{')
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := encode(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		out = append(out, '}')
		return out, nil
	case []interface{}:
		out := make([]byte, 0, 64)
		out = append(out, '[')
		for i, e := range t {
			if i > 0 {
				out = append(out, ',')
			}
			eb, err := encode(e)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
		}
		out = append(out, ']')
		return out, nil
	default:
		return json.Marshal(t)
	}
}
