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

var insertRunnerTokenFormat = `INSERT INTO ` + TPRunnerToken + ` (%s) VALUES (%s);`

// InsertRunnerToken inserts a runner token row. The row carries only the
// sha-256 hash; the plaintext is returned to the caller exactly once and is
// never stored.
func (c *Client) InsertRunnerToken(ctx context.Context, token *RunnerToken) error {
	if token == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*token, insertRunnerTokenFormat), token)
	if err != nil {
		return fmt.Errorf("failed to insert runner token to db: %v", err)
	}
	return nil
}

// GetRunnerToken retrieves a runner token row by id.
func (c *Client) GetRunnerToken(ctx context.Context, tokenId string) (*RunnerToken, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunnerToken).
		Where(sqrl.Eq{"id": tokenId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner token query: %v", err)
	}
	var token RunnerToken
	if err = db.GetContext(ctx, &token, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("runner token not found")
		}
		return nil, fmt.Errorf("failed to select runner token from db: %v", err)
	}
	return &token, nil
}

// GetRunnerTokenByHash retrieves a runner token row by its stored hash, nil
// when absent.
func (c *Client) GetRunnerTokenByHash(ctx context.Context, tokenHash string) (*RunnerToken, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunnerToken).
		Where(sqrl.Eq{"token_hash": tokenHash}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner token query: %v", err)
	}
	var token RunnerToken
	if err = db.GetContext(ctx, &token, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select runner token from db: %v", err)
	}
	return &token, nil
}

// SelectRunnerTokensByProject lists the token rows of a project, newest
// first.
func (c *Client) SelectRunnerTokensByProject(ctx context.Context, projectId string) ([]*RunnerToken, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPRunnerToken).
		Where(sqrl.Eq{"project_id": projectId}).
		OrderBy("created_at " + DESC).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select runner tokens query: %v", err)
	}
	var tokens []*RunnerToken
	if err = db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select runner tokens from db: %v", err)
	}
	return tokens, nil
}

// RevokeRunnerToken marks a token revoked at the given time.
func (c *Client) RevokeRunnerToken(ctx context.Context, tokenId string, revokedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPRunnerToken).
		Set("revoked_at", revokedAt).
		Where(sqrl.Eq{"id": tokenId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke runner token query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to revoke runner token in db: %v", err)
	}
	return nil
}

// TouchRunnerToken updates the token's last-used timestamp.
func (c *Client) TouchRunnerToken(ctx context.Context, tokenId string, lastUsedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPRunnerToken).
		Set("last_used_at", lastUsedAt).
		Where(sqrl.Eq{"id": tokenId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build touch runner token query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch runner token in db: %v", err)
	}
	return nil
}

// DeleteRunnerTokensByProject removes all token rows of a project.
func (c *Client) DeleteRunnerTokensByProject(ctx context.Context, projectId string) (int64, error) {
	return c.deleteWhere(ctx, TPRunnerToken, sqrl.Eq{"project_id": projectId})
}
