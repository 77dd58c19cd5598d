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
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var insertRunnerJobFormat = `INSERT INTO ` + TPRunnerJob + ` (%s) VALUES (%s);`

// InsertRunnerJob inserts a queue entry. New jobs arrive either queued or
// awaiting_input depending on whether the enqueue carried sealed material.
func (c *Client) InsertRunnerJob(ctx context.Context, job *RunnerJob) error {
	if job == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*job, insertRunnerJobFormat), job)
	if err != nil {
		return fmt.Errorf("failed to insert runner job to db: %v", err)
	}
	return nil
}

// GetRunnerJob retrieves a queue entry by id.
func (c *Client) GetRunnerJob(ctx context.Context, jobId string) (*RunnerJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunnerJob).
		Where(sqrl.Eq{"id": jobId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner job query: %v", err)
	}
	var job RunnerJob
	if err = db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("runner job not found")
		}
		return nil, fmt.Errorf("failed to select runner job from db: %v", err)
	}
	return &job, nil
}

// SelectRunnerJobsByRun lists the queue entries spawned by a run, oldest
// first.
func (c *Client) SelectRunnerJobsByRun(ctx context.Context, runId string) ([]*RunnerJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunnerJob).
		Where(sqrl.Eq{"run_id": runId}).
		OrderBy("created_at " + ASC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner jobs query: %v", err)
	}
	var jobs []*RunnerJob
	if err = db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select runner jobs from db: %v", err)
	}
	return jobs, nil
}

// FinalizeRunnerJobInput attaches the sealed input blob to an awaiting_input
// job and flips it to queued. The compare-and-set on status keeps a double
// finalize from clobbering a job already visible to runners.
func (c *Client) FinalizeRunnerJobInput(ctx context.Context, jobId string, sealedB64, alg, keyId string, updatedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPRunnerJob).
		Set("sealed_input_b64", sealedB64).
		Set("sealed_input_alg", alg).
		Set("sealed_input_key_id", keyId).
		Set("status", RunnerJobStatusQueued).
		Set("updated_at", updatedAt).
		Where(sqrl.Eq{"id": jobId, "status": RunnerJobStatusAwaitingInput}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build finalize runner job query: %v", err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finalize runner job in db: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finalize runner job in db: %v", err)
	}
	if affected == 0 {
		return commonerrors.NewConflict("job is not awaiting input")
	}
	return nil
}

// ClaimNextRunnerJob hands the oldest queued job targeting the runner to
// that runner. SKIP LOCKED lets concurrent claimers pass over a row already
// being handed out instead of serializing on it. Returns nil when the queue
// is empty.
func (c *Client) ClaimNextRunnerJob(ctx context.Context, runnerId string, now int64) (*RunnerJob, error) {
	gdb, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var claimed *RunnerJob
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job RunnerJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("target_runner_id = ? AND status = ?", runnerId, RunnerJobStatusQueued).
			Order("created_at asc").
			Take(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		job.Status = RunnerJobStatusClaimed
		job.ClaimedByRunnerId = sql.NullString{String: runnerId, Valid: true}
		job.ClaimedAt = sql.NullInt64{Int64: now, Valid: true}
		job.UpdatedAt = now
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim runner job: %v", err)
	}
	return claimed, nil
}

// CompleteRunnerJob records the result of a claimed job and moves it to a
// terminal status. Only the claiming runner may complete the job, and only
// from the claimed state.
func (c *Client) CompleteRunnerJob(ctx context.Context, jobId, runnerId, status string, result datatypes.JSON, updatedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPRunnerJob).
		Set("status", status).
		Set("result_json", result).
		Set("updated_at", updatedAt).
		Where(sqrl.Eq{
			"id":                   jobId,
			"status":               RunnerJobStatusClaimed,
			"claimed_by_runner_id": runnerId,
		}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build complete runner job query: %v", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to complete runner job in db: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete runner job in db: %v", err)
	}
	if affected == 0 {
		return commonerrors.NewConflict("job is not claimed by this runner")
	}
	return nil
}

// DeleteRunnerJobsByProject removes all queue entries of a project.
func (c *Client) DeleteRunnerJobsByProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPRunnerJob, sqrl.Eq{"project_id": projectId})
}
