/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

const (
	maxStringArrayItems   = 200
	maxStringArrayItemLen = 256
)

var windowsDrivePattern = regexp.MustCompile(`^[a-zA-Z]:`)

// ValidateRepoPath normalizes and validates a repository-relative path for
// audit payloads. Backslashes are normalized to slashes; absolute paths,
// drive letters, parent traversal and control characters are rejected.
func ValidateRepoPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", commonerrors.NewConflict("path must not be empty")
	}
	if strings.ContainsAny(trimmed, "\x00\r\n") {
		return "", commonerrors.NewConflict("path must not contain control characters")
	}
	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	if strings.HasPrefix(normalized, "/") {
		return "", commonerrors.NewConflict("path must be repository-relative, not absolute")
	}
	if windowsDrivePattern.MatchString(normalized) {
		return "", commonerrors.NewConflict("path must not start with a drive letter")
	}
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", commonerrors.NewConflict("path must not contain parent traversal")
		}
	}
	return normalized, nil
}

// NormalizeStringArray validates a bounded string array from a decoded JSON
// payload: at most 200 items, each trimmed and capped at 256 characters,
// empty strings dropped. A non-array input fails with conflict.
func NormalizeStringArray(value interface{}) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case []string:
		raw = v
	case []interface{}:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, commonerrors.NewConflict(fmt.Sprintf("element %d is not a string", i))
			}
			raw = append(raw, s)
		}
	default:
		return nil, commonerrors.NewConflict("expected an array of strings")
	}

	result := make([]string, 0, len(raw))
	for _, item := range raw {
		if len(result) >= maxStringArrayItems {
			break
		}
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		trimmed = TruncateUTF8(trimmed, maxStringArrayItemLen)
		result = append(result, trimmed)
	}
	return result, nil
}
