// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sealing provides the keyed hash primitive used across supercore.
//
// Transaction source proofs, application code hashes and shield seals
// are all HMAC-SHA256 digests under a single process-wide key, hex
// encoded. Callers treat the digest as opaque; only this package knows
// how to recompute and verify.
package sealing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// sealSeparator joins the digest and the payload in a sealed envelope.
const sealSeparator = "|"

// Sealer computes keyed digests and sealed envelopes.
//
// A Sealer is immutable after construction and safe for concurrent use.
type Sealer struct {
	key []byte
}

// New returns a Sealer bound to the given key. The key is copied.
func New(key string) *Sealer {
	return &Sealer{key: []byte(key)}
}

// Hash returns the hex-encoded HMAC-SHA256 of the concatenated parts.
//
// Each part is length-prefix framed before hashing so that ("ab","c")
// and ("a","bc") produce distinct digests.
func (s *Sealer) Hash(parts ...string) string {
	mac := hmac.New(sha256.New, s.key)
	for _, p := range parts {
		var frame [8]byte
		n := len(p)
		for i := 0; i < 8; i++ {
			frame[7-i] = byte(n >> (8 * i))
		}
		mac.Write(frame[:])
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// Seal wraps a payload in a verifiable envelope: "<digest>|<payload>".
func (s *Sealer) Seal(payload string) string {
	return s.Hash(payload) + sealSeparator + payload
}

// Verify checks a sealed envelope and returns the embedded payload.
//
// Returns ok=false if the envelope is malformed or the digest does not
// match a recomputation over the payload.
func (s *Sealer) Verify(sealed string) (payload string, ok bool) {
	digest, payload, found := strings.Cut(sealed, sealSeparator)
	if !found {
		return "", false
	}
	expected := s.Hash(payload)
	if !hmac.Equal([]byte(digest), []byte(expected)) {
		return "", false
	}
	return payload, true
}
