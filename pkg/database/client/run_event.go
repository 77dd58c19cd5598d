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

var insertRunEventFormat = `INSERT INTO ` + TPRunEvent + ` (%s) VALUES (%s);`

// InsertRunEvents appends a batch of run events in one statement.
func (c *Client) InsertRunEvents(ctx context.Context, events []*RunEvent) error {
	if len(events) == 0 {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*events[0], insertRunEventFormat), events)
	if err != nil {
		return fmt.Errorf("failed to insert run events to db: %v", err)
	}
	return nil
}

// SelectRunEventsPage returns one page of a run's events, newest first by ts
// with id as the tie breaker.
func (c *Client) SelectRunEventsPage(ctx context.Context, runId string, opts PageOpts, maxItems int) ([]*RunEvent, *PageResult, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, nil, err
	}
	numItems := clampNumItems(opts.NumItems, maxItems)
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunEvent).
		Where(sqrl.Eq{"run_id": runId}).
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
		return nil, nil, fmt.Errorf("failed to build select run events query: %v", err)
	}
	var events []*RunEvent
	if err = db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to select run events from db: %v", err)
	}
	result := &PageResult{IsDone: true}
	if len(events) > numItems {
		events = events[:numItems]
		last := events[len(events)-1]
		result.ContinueCursor = encodeCursor(last.Ts, last.Id)
		result.IsDone = false
	}
	return events, result, nil
}

// DeleteRunEventsBatchByProject deletes up to limit run-event rows of the
// project, oldest first.
func (c *Client) DeleteRunEventsBatchByProject(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPRunEvent, projectId, "ts", limit)
}

// DeleteRunEventsOlderThan deletes up to limit of the project's run events
// with ts strictly before the cutoff, oldest first.
func (c *Client) DeleteRunEventsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE project_id = $1 AND ts < $2 ORDER BY ts LIMIT $3)`,
		TPRunEvent, TPRunEvent)
	result, err := db.ExecContext(ctx, query, projectId, cutoffMs, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired run events: %v", err)
	}
	return result.RowsAffected()
}

// DeleteRunEventsByRun deletes up to limit events of a single run, oldest
// first. Used to drain a run before deleting its row.
func (c *Client) DeleteRunEventsByRun(ctx context.Context, runId string, limit int) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE run_id = $1 ORDER BY ts LIMIT $2)`,
		TPRunEvent, TPRunEvent)
	result, err := db.ExecContext(ctx, query, runId, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to delete run events by run: %v", err)
	}
	return result.RowsAffected()
}
