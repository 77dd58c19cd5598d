/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var insertRunFormat = `INSERT INTO ` + TPRun + ` (%s) VALUES (%s);`

// InsertRun inserts a new run row.
func (c *Client) InsertRun(ctx context.Context, run *Run) error {
	if run == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*run, insertRunFormat), run)
	if err != nil {
		return fmt.Errorf("failed to insert run to db: %v", err)
	}
	return nil
}

// GetRun retrieves a run by id.
func (c *Client) GetRun(ctx context.Context, runId string) (*Run, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRun).
		Where(sqrl.Eq{"id": runId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select run query: %v", err)
	}
	var run Run
	if err = db.GetContext(ctx, &run, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("run not found")
		}
		return nil, fmt.Errorf("failed to select run from db: %v", err)
	}
	return &run, nil
}

// SelectRunsPage returns one page of the project's runs, newest first by
// started_at with id as the tie breaker.
func (c *Client) SelectRunsPage(ctx context.Context, projectId string, opts PageOpts, maxItems int) ([]*Run, *PageResult, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, nil, err
	}
	numItems := clampNumItems(opts.NumItems, maxItems)
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRun).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("started_at "+DESC, "id "+DESC).
		Limit(uint64(numItems) + 1)
	cursor, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		builder = builder.Where(
			sqrl.Expr("(started_at, id) < (?, ?)", cursor.SortValue, cursor.Id))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build select runs query: %v", err)
	}
	var runs []*Run
	if err = db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to select runs from db: %v", err)
	}
	result := &PageResult{IsDone: true}
	if len(runs) > numItems {
		runs = runs[:numItems]
		last := runs[len(runs)-1]
		result.ContinueCursor = encodeCursor(last.StartedAt, last.Id)
		result.IsDone = false
	}
	return runs, result, nil
}

// UpdateRunStatus transitions a run. finishedAt and errorMessage are written
// exactly as supplied; the handler layer owns the transition rules.
func (c *Client) UpdateRunStatus(ctx context.Context, runId, status string, finishedAt sql.NullInt64, errorMessage sql.NullString) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPRun).
		Set("status", status).
		Set("finished_at", finishedAt).
		Set("error_message", errorMessage).
		Where(sqrl.Eq{"id": runId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update run query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update run in db: %v", err)
	}
	return nil
}

// SelectTerminalRunsOlderThan returns up to limit terminal runs of the
// project that started before the cutoff, oldest first. Non-terminal runs
// are never returned regardless of age.
func (c *Client) SelectTerminalRunsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) ([]*Run, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRun).
		Where(sqrl.Eq{"project_id": projectId}).
		Where(sqrl.Lt{"started_at": cutoffMs}).
		Where(sqrl.Eq{"status": []string{RunStatusSucceeded, RunStatusFailed, RunStatusCanceled}}).
		OrderBy("started_at " + ASC).
		Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select expired runs query: %v", err)
	}
	var runs []*Run
	if err = db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select expired runs from db: %v", err)
	}
	return runs, nil
}

// DeleteRun deletes a single run row.
func (c *Client) DeleteRun(ctx context.Context, runId string) (int64, error) {
	return c.deleteWhere(ctx, TPRun, sqrl.Eq{"id": runId})
}

// DeleteRunsBatch deletes up to limit run rows of the project.
func (c *Client) DeleteRunsBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPRun, projectId, "started_at", limit)
}
