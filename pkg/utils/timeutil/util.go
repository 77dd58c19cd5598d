/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import "time"

// NowMs returns the current wall-clock time in milliseconds since the epoch.
// All persisted timestamps in the control plane use this resolution.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// ToMs converts a time.Time to epoch milliseconds.
func ToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMs converts epoch milliseconds to a UTC time.Time.
func FromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FormatRFC3339 formats a time in RFC3339 for log and view output.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
