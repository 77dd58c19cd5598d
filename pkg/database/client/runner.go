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

// UpsertRunnerHeartbeat writes a heartbeat keyed by (projectId, runnerName)
// inside one transaction. The insert path creates the runner; the update
// path refreshes the mutable fields while keeping the original id. The
// stored row is returned either way.
func (c *Client) UpsertRunnerHeartbeat(ctx context.Context, runner *Runner) (*Runner, error) {
	if runner == nil {
		return nil, commonerrors.NewBadRequest("the input is empty")
	}
	gdb, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	stored := *runner
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Runner
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ? AND runner_name = ?", runner.ProjectId, runner.RunnerName).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&stored).Error
		}
		if err != nil {
			return err
		}
		stored = existing
		stored.LastSeenAt = runner.LastSeenAt
		stored.LastStatus = runner.LastStatus
		stored.UpdatedAt = runner.UpdatedAt
		if runner.Version.Valid {
			stored.Version = runner.Version
		}
		if len(runner.Capabilities) > 0 {
			stored.Capabilities = runner.Capabilities
		}
		if runner.SealedInputAlg.Valid {
			stored.SealedInputAlg = runner.SealedInputAlg
			stored.SealedInputKeyId = runner.SealedInputKeyId
			stored.SealedInputPubSpkiB64 = runner.SealedInputPubSpkiB64
		}
		return tx.Save(&stored).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert runner heartbeat: %v", err)
	}
	return &stored, nil
}

// GetRunner retrieves a runner by id.
func (c *Client) GetRunner(ctx context.Context, runnerId string) (*Runner, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunner).
		Where(sqrl.Eq{"id": runnerId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner query: %v", err)
	}
	var runner Runner
	if err = db.GetContext(ctx, &runner, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("runner not found")
		}
		return nil, fmt.Errorf("failed to select runner from db: %v", err)
	}
	return &runner, nil
}

// SelectRunnersByProject lists the runners of a project.
func (c *Client) SelectRunnersByProject(ctx context.Context, projectId string) ([]*Runner, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunner).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("runner_name " + ASC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runners query: %v", err)
	}
	var runners []*Runner
	if err = db.SelectContext(ctx, &runners, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select runners from db: %v", err)
	}
	return runners, nil
}

// DeleteRunnersByProject removes all runner rows of a project.
func (c *Client) DeleteRunnersByProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPRunner, sqrl.Eq{"project_id": projectId})
}
