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

var insertUserFormat = `INSERT INTO ` + TPUser + ` (%s) VALUES (%s);`

// InsertUser inserts a new user row.
func (c *Client) InsertUser(ctx context.Context, user *User) error {
	if user == nil {
		return commonerrors.NewBadRequest("the input is empty")
	}
	db, err := c.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, generateCommand(*user, insertUserFormat), user)
	if err != nil {
		return fmt.Errorf("failed to insert user to db: %v", err)
	}
	return nil
}

// GetUserByTokenIdentifier retrieves a user by its unique identity handle.
// Returns nil without error when no user exists yet.
func (c *Client) GetUserByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*User, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPUser).
		Where(sqrl.Eq{"token_identifier": tokenIdentifier}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select user query: %v", err)
	}
	var user User
	if err = db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select user from db: %v", err)
	}
	return &user, nil
}

// GetUserById retrieves a user by id.
func (c *Client) GetUserById(ctx context.Context, userId string) (*User, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("*").From(TPUser).
		Where(sqrl.Eq{"id": userId}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select user query: %v", err)
	}
	var user User
	if err = db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commonerrors.NewNotFound("user not found")
		}
		return nil, fmt.Errorf("failed to select user from db: %v", err)
	}
	return &user, nil
}

// CountUsers counts all users. The first-ever user is promoted to admin.
func (c *Client) CountUsers(ctx context.Context) (int, error) {
	db, err := c.getDB()
	if err != nil {
		return 0, err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Select("COUNT(*)").From(TPUser).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count users query: %v", err)
	}
	var count int
	if err = db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count users from db: %v", err)
	}
	return count, nil
}

// UpdateUserProfile refreshes the mutable identity fields from the identity
// payload.
func (c *Client) UpdateUserProfile(ctx context.Context, userId string, name, email, pictureUrl sql.NullString, updatedAt int64) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	query, args, err := sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar).
		Update(TPUser).
		Set("name", name).
		Set("email", email).
		Set("picture_url", pictureUrl).
		Set("updated_at", updatedAt).
		Where(sqrl.Eq{"id": userId}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update user query: %v", err)
	}
	if _, err = db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update user in db: %v", err)
	}
	return nil
}
