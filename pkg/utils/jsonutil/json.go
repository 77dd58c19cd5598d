/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package jsonutil

import (
	"encoding/json"

	"k8s.io/klog/v2"
)

// MarshalSilently marshals data to JSON, logging instead of returning the
// error. Intended for log lines and audit payloads where a marshal failure
// must not fail the caller.
func MarshalSilently(data interface{}) []byte {
	result, err := json.Marshal(data)
	if err != nil {
		klog.Errorf("failed to marshal data, err: %v", err)
		return nil
	}
	return result
}
