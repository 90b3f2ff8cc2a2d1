// Package snapshot freezes read-model slices into hashed, HMAC-signed,
// hash-chained artifacts persisted beside independently stored metadata.
package snapshot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Genesis is the prev_hash of the first snapshot in a chain.
const Genesis = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrSigningKeyMissing is fatal at startup in production.
var ErrSigningKeyMissing = errors.New("snapshot signing key missing")

// devFallbackKey is only ever used when explicitly running outside
// production with the dev fallback enabled.
const devFallbackKey = "control-tower-dev-signing-key"

// Signer computes and verifies HMAC-SHA256 signatures over content hashes.
// The HMAC key is derived from the master key with HKDF so the raw
// environment secret is never used directly.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key from masterKey. An empty masterKey is
// rejected unless allowDevFallback is set, which must never be true in
// production.
func NewSigner(masterKey string, allowDevFallback bool) (*Signer, error) {
	if masterKey == "" {
		if !allowDevFallback {
			return nil, ErrSigningKeyMissing
		}
		masterKey = devFallbackKey
	}
	key, err := deriveKey(masterKey)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

func deriveKey(master string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(master), nil, []byte("snapshot-signing-v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// Sign returns the hex HMAC-SHA256 of the content hash hex string.
func (s *Signer) Sign(contentHashHex string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(contentHashHex))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time.
func (s *Signer) Verify(contentHashHex, signatureHex string) bool {
	expected, err := hex.DecodeString(s.Sign(contentHashHex))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}
