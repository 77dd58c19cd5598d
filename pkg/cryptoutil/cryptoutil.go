/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const tokenByteLen = 32

// Sha256Hex returns the lowercase hex encoding of the SHA-256 digest of s.
// Runner tokens and deletion confirmation tokens are stored only in this
// form; the plaintext never reaches the database.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewOpaqueToken generates a 32-byte cryptographically random token encoded
// as unpadded base64url.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, tokenByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConstantTimeEqual compares two strings in time dependent only on the
// length of the longer input. Both buffers are always touched to their full
// length so a mismatching prefix leaks nothing.
func ConstantTimeEqual(a, b string) bool {
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	ab := make([]byte, max)
	bb := make([]byte, max)
	copy(ab, a)
	copy(bb, b)
	return subtle.ConstantTimeCompare(ab, bb) == 1 && len(a) == len(b)
}
