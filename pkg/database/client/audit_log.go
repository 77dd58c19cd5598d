/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var insertAuditLogFormat = `INSERT INTO ` + TPAuditLog + ` (%s) VALUES (%s);`

// InsertAuditLog appends an audit entry. Audit rows are immutable once
// written; only the erasure machine and the retention sweeper remove them.
func (c *Client) InsertAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*entry, insertAuditLogFormat), entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit log to db: %v", err)
	}
	return nil
}

// SelectAuditLogsPage returns one page of a project's audit trail, newest
// first by ts with id as the tie breaker.
func (c *Client) SelectAuditLogsPage(ctx context.Context, projectId string, opts PageOpts, maxItems int) ([]*AuditLog, *PageResult, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, nil, err
	}
	numItems := clampNumItems(opts.NumItems, maxItems)
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPAuditLog).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("ts "+DESC, "id "+DESC).
		Limit(uint64(numItems) + 1)
	cursor, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		builder = builder.Where(sqrl.Expr("(ts, id) < (?, ?)", cursor.SortValue, cursor.Id))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build select audit logs query: %v", err)
	}
	var entries []*AuditLog
	if err = db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to select audit logs from db: %v", err)
	}
	result := &PageResult{IsDone: true}
	if len(entries) > numItems {
		entries = entries[:numItems]
		last := entries[len(entries)-1]
		result.ContinueCursor = encodeCursor(last.Ts, last.Id)
		result.IsDone = false
	}
	return entries, result, nil
}

// DeleteAuditLogsBatchByProject deletes up to limit audit rows of the
// project, oldest first.
func (c *Client) DeleteAuditLogsBatchByProject(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPAuditLog, projectId, "ts", limit)
}

// DeleteAuditLogsOlderThan deletes up to limit of the project's audit rows
// with ts strictly before the cutoff, oldest first.
func (c *Client) DeleteAuditLogsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE project_id = $1 AND ts < $2 ORDER BY ts LIMIT $3)`,
		TPAuditLog, TPAuditLog)
	result, err := db.ExecContext(ctx, query, projectId, cutoffMs, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired audit logs: %v", err)
	}
	return result.RowsAffected()
}
