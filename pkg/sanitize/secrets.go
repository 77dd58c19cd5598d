/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sanitize

import (
	"fmt"
	"strings"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

// secretLikeKeyParts is the canonical substring list used to reject
// secret-bearing key names in plaintext metadata. Tests share this list;
// do not fork it elsewhere.
var secretLikeKeyParts = []string{
	"token",
	"secret",
	"password",
	"passwd",
	"credential",
	"apikey",
	"api_key",
	"value",
	"key",
	"private",
}

// IsSecretLikeKey reports whether a key name matches the canonical
// secret-like substring list, case-insensitively.
func IsSecretLikeKey(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range secretLikeKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// AssertNoSecretLikeKeys walks an arbitrary decoded JSON value and fails
// with conflict when any map key at any depth looks secret-like. Sensitive
// material must travel sealed, never in plaintext metadata fields.
func AssertNoSecretLikeKeys(value interface{}, path string) error {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			childPath := fmt.Sprintf("%s.%s", path, key)
			if IsSecretLikeKey(key) {
				return commonerrors.NewConflict(
					fmt.Sprintf("%s must not contain secret-like key %q; pass sensitive material as sealed input", path, key))
			}
			if err := AssertNoSecretLikeKeys(child, childPath); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, child := range v {
			if err := AssertNoSecretLikeKeys(child, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
