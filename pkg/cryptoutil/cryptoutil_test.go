/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package cryptoutil

import (
	"encoding/base64"
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestSha256HexKnownVector(t *testing.T) {
	assert.Equal(t, Sha256Hex("abc"),
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
}

func TestNewOpaqueTokenShape(t *testing.T) {
	token, err := NewOpaqueToken()
	assert.NilError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	assert.NilError(t, err)
	assert.Equal(t, len(raw), 32)
	assert.Assert(t, !strings.ContainsAny(token, "+/="))
}

func TestNewOpaqueTokenIsRandom(t *testing.T) {
	a, err := NewOpaqueToken()
	assert.NilError(t, err)
	b, err := NewOpaqueToken()
	assert.NilError(t, err)
	assert.Assert(t, a != b)
}

func TestConstantTimeEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"", "", true},
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "ab", false},
		{"", "x", false},
		{"longer-token-value", "longer-token-value", true},
	}
	for _, tc := range cases {
		assert.Equal(t, ConstantTimeEqual(tc.a, tc.b), tc.want)
	}
}
