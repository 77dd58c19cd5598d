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
	"gorm.io/gorm/clause"
)

// GetProjectPolicy retrieves the retention policy of a project, nil when the
// project still runs on the default.
func (c *Client) GetProjectPolicy(ctx context.Context, projectId string) (*ProjectPolicy, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectPolicy).
		Where(sqrl.Eq{"project_id": projectId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project policy query: %v", err)
	}
	var policy ProjectPolicy
	if err = db.GetContext(ctx, &policy, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select project policy from db: %v", err)
	}
	return &policy, nil
}

// UpsertProjectPolicy writes the retention policy keyed by project id.
func (c *Client) UpsertProjectPolicy(ctx context.Context, policy *ProjectPolicy) error {
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"retention_days", "updated_at"}),
	}).Create(policy).Error
}

// SelectProjectPoliciesPage walks the policy listing in stable id order for
// the retention sweeper. Rows strictly after afterId are returned, at most
// limit of them.
func (c *Client) SelectProjectPoliciesPage(ctx context.Context, afterId string, limit int) ([]*ProjectPolicy, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	builder := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectPolicy).
		OrderBy("id " + ASC).
		Limit(uint64(limit))
	if afterId != "" {
		builder = builder.Where(sqrl.Gt{"id": afterId})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project policies query: %v", err)
	}
	var policies []*ProjectPolicy
	if err = db.SelectContext(ctx, &policies, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select project policies from db: %v", err)
	}
	return policies, nil
}

// DeleteProjectPoliciesBatch deletes up to limit policy rows of the project.
func (c *Client) DeleteProjectPoliciesBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPProjectPolicy, projectId, "id", limit)
}

// UpsertProjectConfig writes a config slot keyed by (projectId, type).
func (c *Client) UpsertProjectConfig(ctx context.Context, config *ProjectConfig) error {
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "config_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(config).Error
}

// SelectProjectConfigs lists the config slots of a project.
func (c *Client) SelectProjectConfigs(ctx context.Context, projectId string) ([]*ProjectConfig, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectConfig).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("config_type " + ASC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project configs query: %v", err)
	}
	var configs []*ProjectConfig
	if err = db.SelectContext(ctx, &configs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select project configs from db: %v", err)
	}
	return configs, nil
}

// DeleteProjectConfigsBatch deletes up to limit config rows of the project.
func (c *Client) DeleteProjectConfigsBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPProjectConfig, projectId, "config_type", limit)
}

// UpsertProvider writes a provider keyed by (projectId, providerType).
func (c *Client) UpsertProvider(ctx context.Context, provider *Provider) error {
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	return gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "provider_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(provider).Error
}

// SelectProviders lists the providers of a project.
func (c *Client) SelectProviders(ctx context.Context, projectId string) ([]*Provider, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProvider).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("provider_type " + ASC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select providers query: %v", err)
	}
	var providers []*Provider
	if err = db.SelectContext(ctx, &providers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select providers from db: %v", err)
	}
	return providers, nil
}

// DeleteProvidersBatch deletes up to limit provider rows of the project.
func (c *Client) DeleteProvidersBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPProvider, projectId, "provider_type", limit)
}
