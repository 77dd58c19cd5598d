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

var (
	insertProjectFormat       = `INSERT INTO ` + TPProject + ` (%s) VALUES (%s);`
	insertProjectMemberFormat = `INSERT INTO ` + TPProjectMember + ` (%s) VALUES (%s);`
)

// InsertProject inserts a new project row.
func (c *Client) InsertProject(ctx context.Context, project *Project) error {
	if project == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*project, insertProjectFormat), project)
	if err != nil {
		return fmt.Errorf("failed to insert project to db: %v", err)
	}
	return nil
}

// GetProject retrieves a project by id.
func (c *Client) GetProject(ctx context.Context, projectId string) (*Project, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProject).
		Where(sqrl.Eq{"id": projectId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project query: %v", err)
	}
	var project Project
	if err = db.GetContext(ctx, &project, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("project not found")
		}
		return nil, fmt.Errorf("failed to select project from db: %v", err)
	}
	return &project, nil
}

// SelectProjectsForUser lists the projects the user owns or is a member of,
// newest first.
func (c *Client) SelectProjectsForUser(ctx context.Context, userId string) ([]*Project, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	memberSub := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s m WHERE m.project_id = %s.id AND m.user_id = ?)",
		TPProjectMember, TPProject)
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProject).
		Where(sqrl.Or{sqrl.Eq{"owner_user_id": userId}, sqrl.Expr(memberSub, userId)}).
		OrderBy("created_at " + DESC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select projects query: %v", err)
	}
	var projects []*Project
	if err = db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select projects from db: %v", err)
	}
	return projects, nil
}

// UpdateProjectStatus transitions the project lifecycle status.
func (c *Client) UpdateProjectStatus(ctx context.Context, projectId, status string, updatedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPProject).
		Set("status", status).
		Set("updated_at", updatedAt).
		Where(sqrl.Eq{"id": projectId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update project query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update project in db: %v", err)
	}
	return nil
}

// DeleteProject deletes the project row itself. Only the erasure machine
// calls this, as its final stage.
func (c *Client) DeleteProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPProject, sqrl.Eq{"id": projectId})
}

// InsertProjectMember inserts a membership row.
func (c *Client) InsertProjectMember(ctx context.Context, member *ProjectMember) error {
	if member == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*member, insertProjectMemberFormat), member)
	if err != nil {
		return fmt.Errorf("failed to insert project member to db: %v", err)
	}
	return nil
}

// GetProjectMember retrieves a membership row, nil when absent.
func (c *Client) GetProjectMember(ctx context.Context, projectId, userId string) (*ProjectMember, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectMember).
		Where(sqrl.Eq{"project_id": projectId, "user_id": userId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project member query: %v", err)
	}
	var member ProjectMember
	if err = db.GetContext(ctx, &member, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select project member from db: %v", err)
	}
	return &member, nil
}

// SelectProjectMembers lists the members of a project.
func (c *Client) SelectProjectMembers(ctx context.Context, projectId string) ([]*ProjectMember, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPProjectMember).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("created_at " + ASC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select project members query: %v", err)
	}
	var members []*ProjectMember
	if err = db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select project members from db: %v", err)
	}
	return members, nil
}

// DeleteProjectMember removes a membership row.
func (c *Client) DeleteProjectMember(ctx context.Context, projectId, userId string) (int64, error) {
	return c.deleteWhere(ctx, TPProjectMember, sqrl.Eq{"project_id": projectId, "user_id": userId})
}

// DeleteProjectMembersBatch deletes up to limit membership rows of the
// project and returns the count deleted.
func (c *Client) DeleteProjectMembersBatch(ctx context.Context, projectId string, limit int) (int64, error) {
	return c.deleteBatchByProject(ctx, TPProjectMember, projectId, "user_id", limit)
}

// deleteWhere deletes all rows of a table matching the predicate, returning
// the number of rows removed.
func (c *Client) deleteWhere(ctx context.Context, table string, pred sqrl.Sqlizer) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Delete(table).Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete %s query: %v", table, err)
	}
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %v", table, err)
	}
	return result.RowsAffected()
}

// deleteBatchByProject deletes up to limit rows of the project from the
// given table, ordered by the secondary column for stable progress. The
// returned count drives the erasure machine's stage completion check.
func (c *Client) deleteBatchByProject(ctx context.Context, table, projectId, orderCol string, limit int) (int64, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (SELECT id FROM %s WHERE project_id = $1 ORDER BY %s LIMIT $2)`,
		table, table, orderCol)
	result, err := db.ExecContext(ctx, query, projectId, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to batch delete from %s: %v", table, err)
	}
	return result.RowsAffected()
}
