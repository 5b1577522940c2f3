// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer provides Ed25519 worker identities. Identities are
// process-local and regenerated on startup; private keys are never
// persisted.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrVerifyFailed is returned by Verify for a structurally valid but
// cryptographically incorrect signature.
var ErrVerifyFailed = errors.New("signer: signature verification failed")

// Identity is a worker's Ed25519 keypair. The signing key exclusively owns
// signing; VerifyKey is safe to share with a third-party certificate
// verifier.
type Identity struct {
	WorkerID   string
	signingKey ed25519.PrivateKey
	VerifyKey  ed25519.PublicKey
}

// New generates a fresh Ed25519 identity for workerID.
func New(workerID string) (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("signer: generate key for %s: %w", workerID, err)
	}
	return Identity{WorkerID: workerID, signingKey: priv, VerifyKey: pub}, nil
}

// Sign signs the UTF-8 bytes of hexHash, the hex-encoded SHA-256 digest of a
// canonical JSON value. Signatures cover the hex string itself, not the raw
// digest bytes, so verifiers never need to re-derive byte layout from a
// decoded hash.
func (id Identity) Sign(hexHash string) string {
	sig := ed25519.Sign(id.signingKey, []byte(hexHash))
	return hex.EncodeToString(sig)
}

// Verify reports whether sigHex is a valid Ed25519 signature by verifyKey
// over the UTF-8 bytes of hexHash.
func Verify(verifyKey ed25519.PublicKey, hexHash string, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("signer: decode signature: %w", err)
	}
	if len(verifyKey) != ed25519.PublicKeySize {
		return fmt.Errorf("signer: invalid verify key size %d", len(verifyKey))
	}
	if !ed25519.Verify(verifyKey, []byte(hexHash), sig) {
		return ErrVerifyFailed
	}
	return nil
}
