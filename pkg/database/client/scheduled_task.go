/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

var insertScheduledTaskFormat = `INSERT INTO ` + TPScheduledTask + ` (%s) VALUES (%s);`

// InsertScheduledTask enqueues a durable deferred invocation. The task row
// survives restarts; the poll loop picks it up once due_at has passed.
func (c *Client) InsertScheduledTask(ctx context.Context, task *ScheduledTask) error {
	if task == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*task, insertScheduledTaskFormat), task)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled task to db: %v", err)
	}
	return nil
}

// ClaimDueScheduledTasks returns up to limit tasks whose due_at has passed,
// oldest first, pushing each claimed row's due_at forward by leaseMs inside
// the claiming transaction. The row stays in the table until the dispatcher
// acknowledges it with DeleteScheduledTask, so a crash mid-handler or a
// failed handler redelivers the task once the claim lease expires. Delivery
// is therefore at-least-once; handlers must be idempotent.
func (c *Client) ClaimDueScheduledTasks(ctx context.Context, now, leaseMs int64, limit int) ([]*ScheduledTask, error) {
	gdb, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var tasks []*ScheduledTask
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("due_at <= ?", now).
			Order("due_at asc").
			Limit(limit).
			Find(&tasks).Error
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		ids := make([]string, 0, len(tasks))
		for _, task := range tasks {
			ids = append(ids, task.Id)
		}
		return tx.Model(&ScheduledTask{}).
			Where("id IN ?", ids).
			Update("due_at", now+leaseMs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim scheduled tasks: %v", err)
	}
	return tasks, nil
}

// DeleteScheduledTask acknowledges a dispatched task, removing its row so it
// is not redelivered.
func (c *Client) DeleteScheduledTask(ctx context.Context, taskId string) error {
	_, err := c.deleteWhere(ctx, TPScheduledTask, sqrl.Eq{"id": taskId})
	return err
}
