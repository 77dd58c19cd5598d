/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

// RecordAudit appends an audit row for a privileged action. Audit failures
// are logged but never fail the caller's mutation.
func RecordAudit(ctx context.Context, db dbclient.Interface,
	userId, projectId, action, target string, data map[string]interface{}) {
	entry := &dbclient.AuditLog{
		Id:     uuid.NewString(),
		Ts:     timeutil.NowMs(),
		UserId: userId,
		Action: action,
	}
	if projectId != "" {
		entry.ProjectId = sql.NullString{String: projectId, Valid: true}
	}
	if target != "" {
		entry.Target = sql.NullString{String: target, Valid: true}
	}
	if len(data) > 0 {
		entry.Data = datatypes.JSON(jsonutil.MarshalSilently(data))
	}
	if err := db.InsertAuditLog(ctx, entry); err != nil {
		klog.ErrorS(err, "failed to append audit log", "action", action, "project", projectId)
	}
}
