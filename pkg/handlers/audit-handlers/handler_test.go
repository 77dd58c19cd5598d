/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package audit_handlers

import (
	"testing"

	"gotest.tools/assert"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

func TestNormalizeAuditDataPath(t *testing.T) {
	data, err := normalizeAuditData(map[string]interface{}{"path": `src\main.go`})
	assert.NilError(t, err)
	assert.Equal(t, data["path"], "src/main.go")

	_, err = normalizeAuditData(map[string]interface{}{"path": "/etc/passwd"})
	assert.Assert(t, commonerrors.IsConflict(err))

	_, err = normalizeAuditData(map[string]interface{}{"path": "a/../b"})
	assert.Assert(t, commonerrors.IsConflict(err))

	_, err = normalizeAuditData(map[string]interface{}{"path": 42})
	assert.Assert(t, commonerrors.IsConflict(err))
}

func TestNormalizeAuditDataPaths(t *testing.T) {
	data, err := normalizeAuditData(map[string]interface{}{
		"paths": []interface{}{" a.txt ", "dir/b.txt"},
	})
	assert.NilError(t, err)
	paths := data["paths"].([]string)
	assert.DeepEqual(t, paths, []string{"a.txt", "dir/b.txt"})

	_, err = normalizeAuditData(map[string]interface{}{
		"paths": []interface{}{"ok.txt", "../escape"},
	})
	assert.Assert(t, commonerrors.IsConflict(err))
}

func TestNormalizeAuditDataPassThrough(t *testing.T) {
	data, err := normalizeAuditData(map[string]interface{}{"count": 3})
	assert.NilError(t, err)
	assert.Equal(t, data["count"], 3)

	data, err = normalizeAuditData(nil)
	assert.NilError(t, err)
	assert.Assert(t, data == nil)
}
