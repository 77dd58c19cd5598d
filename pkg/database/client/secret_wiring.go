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

// UpsertSecretWirings replaces the wiring descriptors keyed by
// (projectId, hostName, secretName, scope) in one transaction. Descriptors
// only name which secrets a host expects; no secret material passes through
// here.
func (c *Client) UpsertSecretWirings(ctx context.Context, wirings []*SecretWiring) error {
	if len(wirings) == 0 {
		return commonerrors.NewBadRequest("the input is empty")
	}
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, wiring := range wirings {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "project_id"}, {Name: "host_name"},
					{Name: "secret_name"}, {Name: "scope"},
				},
				DoUpdates: clause.AssignmentColumns(
					[]string{"status", "required", "last_verified_at", "updated_at"}),
			}).Create(wiring).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert secret wirings: %v", err)
	}
	return nil
}

// SelectSecretWirings lists the wiring descriptors of a project, optionally
// narrowed to one host.
func (c *Client) SelectSecretWirings(ctx context.Context, projectId, hostName string) ([]*SecretWiring, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPSecretWiring).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("host_name "+ASC, "secret_name "+ASC)
	if hostName != "" {
		builder = builder.Where(sqrl.Eq{"host_name": hostName})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select secret wirings query: %v", err)
	}
	var wirings []*SecretWiring
	if err = db.SelectContext(ctx, &wirings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select secret wirings from db: %v", err)
	}
	return wirings, nil
}

// DeleteSecretWiringsByProject removes all wiring descriptors of a project.
func (c *Client) DeleteSecretWiringsByProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPSecretWiring, sqrl.Eq{"project_id": projectId})
}
