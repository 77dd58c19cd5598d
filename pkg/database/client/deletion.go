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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var (
	insertDeletionTokenFormat = `INSERT INTO ` + TPProjectDeletionToken + ` (%s) VALUES (%s);`
	insertDeletionJobFormat   = `INSERT INTO ` + TPProjectDeletionJob + ` (%s) VALUES (%s);`
)

// InsertProjectDeletionToken stores the hash of a freshly minted deletion
// confirmation token.
func (c *Client) InsertProjectDeletionToken(ctx context.Context, token *ProjectDeletionToken) error {
	if token == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*token, insertDeletionTokenFormat), token)
	if err != nil {
		return fmt.Errorf("failed to insert deletion token to db: %v", err)
	}
	return nil
}

// SelectDeletionTokensByProject lists the confirmation tokens of a project,
// newest first. The caller matches the presented token against the stored
// hashes in constant time.
func (c *Client) SelectDeletionTokensByProject(ctx context.Context, projectId string) ([]*ProjectDeletionToken, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectDeletionToken).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("created_at " + DESC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select deletion tokens query: %v", err)
	}
	var tokens []*ProjectDeletionToken
	if err = db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select deletion tokens from db: %v", err)
	}
	return tokens, nil
}

// DeleteDeletionTokensByProject removes all confirmation tokens of a
// project. Called once the deletion is confirmed so a token never confirms
// twice.
func (c *Client) DeleteDeletionTokensByProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPProjectDeletionToken, sqrl.Eq{"project_id": projectId})
}

// DeleteDeletionTokensBatch deletes up to limit token rows of the project.
func (c *Client) DeleteDeletionTokensBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPProjectDeletionToken, projectId, "created_at", limit)
}

// InsertProjectDeletionJob creates an erasure job in the pending state.
func (c *Client) InsertProjectDeletionJob(ctx context.Context, job *ProjectDeletionJob) error {
	if job == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*job, insertDeletionJobFormat), job)
	if err != nil {
		return fmt.Errorf("failed to insert deletion job to db: %v", err)
	}
	return nil
}

// GetDeletionJob retrieves an erasure job by id.
func (c *Client) GetDeletionJob(ctx context.Context, jobId string) (*ProjectDeletionJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectDeletionJob).
		Where(sqrl.Eq{"id": jobId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select deletion job query: %v", err)
	}
	var job ProjectDeletionJob
	if err = db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("deletion job not found")
		}
		return nil, fmt.Errorf("failed to select deletion job from db: %v", err)
	}
	return &job, nil
}

// GetActiveDeletionJobByProject returns the project's non-terminal erasure
// job, nil when none is in flight. A project carries at most one at a time.
func (c *Client) GetActiveDeletionJobByProject(ctx context.Context, projectId string) (*ProjectDeletionJob, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectDeletionJob).
		Where(sqrl.Eq{"project_id": projectId}).
		Where(sqrl.Eq{"status": []string{DeletionJobStatusPending, DeletionJobStatusRunning}}).
		OrderBy("created_at " + DESC).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select active deletion job query: %v", err)
	}
	var job ProjectDeletionJob
	if err = db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select active deletion job from db: %v", err)
	}
	return &job, nil
}

// AcquireDeletionJobLease takes or renews the worker lease on an erasure
// job. The row is locked while the decision is made so two workers cannot
// both win. Acquisition fails without error when the job is terminal or a
// different worker holds an unexpired lease.
func (c *Client) AcquireDeletionJobLease(ctx context.Context, jobId, leaseId string, now, leaseMs int64) (*ProjectDeletionJob, bool, error) {
	gdb, err := c.getGorm()
	if err != nil {
		return nil, false, err
	}
	var acquired bool
	var job ProjectDeletionJob
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", jobId).
			Take(&job).Error
		if err != nil {
			return err
		}
		if IsTerminalDeletionJobStatus(job.Status) {
			return nil
		}
		if HasActiveLease(job.LeaseExpiresAt, now) && job.LeaseId.String != leaseId {
			return nil
		}
		job.Status = DeletionJobStatusRunning
		job.LeaseId = sql.NullString{String: leaseId, Valid: true}
		job.LeaseExpiresAt = sql.NullInt64{Int64: now + leaseMs, Valid: true}
		job.UpdatedAt = now
		acquired = true
		return tx.Save(&job).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, commonerrors.NewNotFound("deletion job not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire deletion job lease: %v", err)
	}
	return &job, acquired, nil
}

// UpdateDeletionJobProgress records stage and processed-count progress under
// the lease. Writes from a worker whose lease was taken over are dropped.
func (c *Client) UpdateDeletionJobProgress(ctx context.Context, jobId, leaseId, stage string, processed, updatedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPProjectDeletionJob).
		Set("stage", stage).
		Set("processed", processed).
		Set("updated_at", updatedAt).
		Where(sqrl.Eq{"id": jobId, "lease_id": leaseId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update deletion job query: %v", err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update deletion job in db: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update deletion job in db: %v", err)
	}
	if affected == 0 {
		return commonerrors.NewConflict("deletion job lease lost")
	}
	return nil
}

// CompleteDeletionJob moves the job to a terminal status and clears the
// lease. lastError is stored only on the failed path.
func (c *Client) CompleteDeletionJob(ctx context.Context, jobId, leaseId, status string, lastError sql.NullString, now int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPProjectDeletionJob).
		Set("status", status).
		Set("completed_at", now).
		Set("last_error", lastError).
		Set("lease_id", nil).
		Set("lease_expires_at", nil).
		Set("updated_at", now).
		Where(sqrl.Eq{"id": jobId, "lease_id": leaseId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build complete deletion job query: %v", err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to complete deletion job in db: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete deletion job in db: %v", err)
	}
	if affected == 0 {
		return commonerrors.NewConflict("deletion job lease lost")
	}
	return nil
}

// ReleaseDeletionJobLease clears the lease if this worker still holds it.
// Called between steps so a crashed worker only stalls the job for the
// lease TTL.
func (c *Client) ReleaseDeletionJobLease(ctx context.Context, jobId, leaseId string, now int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPProjectDeletionJob).
		Set("lease_id", nil).
		Set("lease_expires_at", nil).
		Set("updated_at", now).
		Where(sqrl.Eq{"id": jobId, "lease_id": leaseId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build release deletion job lease query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to release deletion job lease in db: %v", err)
	}
	return nil
}
