/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"encoding/base64"
	"strings"
)

// Base64Encode encodes a string to base64 format.
func Base64Encode(inputString string) string {
	if inputString == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(inputString))
}

// Base64Decode decodes a base64 encoded string, returns empty string if decode fails.
func Base64Decode(inputString string) string {
	if inputString == "" {
		return ""
	}
	decodedBytes, err := base64.StdEncoding.DecodeString(inputString)
	if err != nil {
		return ""
	}
	return string(decodedBytes)
}

// Truncate shortens s to at most maxLen bytes, appending an ellipsis when
// truncation happens. maxLen must be at least the ellipsis length.
func Truncate(s string, maxLen int) string {
	const ellipsis = "..."
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return s[:maxLen]
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}

// RemoveBlank trims every element and drops the ones that are empty after
// trimming.
func RemoveBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}
