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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrInitRetentionSweep loads the singleton sweeper coordinator row,
// creating it on first use.
func (c *Client) GetOrInitRetentionSweep(ctx context.Context, now int64) (*RetentionSweep, error) {
	gdb, err := c.getGorm()
	if err != nil {
		return nil, err
	}
	var sweep RetentionSweep
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("key = ?", RetentionSweepKey).Take(&sweep).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sweep = RetentionSweep{Key: RetentionSweepKey, UpdatedAt: now}
			return tx.Create(&sweep).Error
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load retention sweep row: %v", err)
	}
	return &sweep, nil
}

// AcquireRetentionLease takes or renews the sweeper lease. The holder of
// the previous lease may renew with its own leaseId even past expiry; any
// worker may take over once the lease has lapsed. Returns the row and
// whether this caller now holds the lease.
func (c *Client) AcquireRetentionLease(ctx context.Context, leaseId string, now, leaseMs int64) (*RetentionSweep, bool, error) {
	gdb, err := c.getGorm()
	if err != nil {
		return nil, false, err
	}
	var acquired bool
	var sweep RetentionSweep
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", RetentionSweepKey).
			Take(&sweep).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sweep = RetentionSweep{
				Key:            RetentionSweepKey,
				LeaseId:        sql.NullString{String: leaseId, Valid: true},
				LeaseExpiresAt: sql.NullInt64{Int64: now + leaseMs, Valid: true},
				UpdatedAt:      now,
			}
			acquired = true
			return tx.Create(&sweep).Error
		}
		if err != nil {
			return err
		}
		if HasActiveLease(sweep.LeaseExpiresAt, now) && sweep.LeaseId.String != leaseId {
			return nil
		}
		sweep.LeaseId = sql.NullString{String: leaseId, Valid: true}
		sweep.LeaseExpiresAt = sql.NullInt64{Int64: now + leaseMs, Valid: true}
		sweep.UpdatedAt = now
		acquired = true
		return tx.Save(&sweep).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire retention lease: %v", err)
	}
	return &sweep, acquired, nil
}

// UpdateRetentionCursor stores the sweeper's project-listing position under
// the lease. A lost lease drops the write silently; the new holder owns the
// cursor now.
func (c *Client) UpdateRetentionCursor(ctx context.Context, leaseId string, cursor sql.NullString, now int64) error {
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	err = gdb.WithContext(ctx).Model(&RetentionSweep{}).
		Where("key = ? AND lease_id = ?", RetentionSweepKey, leaseId).
		Updates(map[string]interface{}{
			"cursor":     cursor,
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update retention cursor: %v", err)
	}
	return nil
}

// ReleaseRetentionLease clears the lease if this caller still holds it.
func (c *Client) ReleaseRetentionLease(ctx context.Context, leaseId string, now int64) error {
	gdb, err := c.getGorm()
	if err != nil {
		return err
	}
	err = gdb.WithContext(ctx).Model(&RetentionSweep{}).
		Where("key = ? AND lease_id = ?", RetentionSweepKey, leaseId).
		Updates(map[string]interface{}{
			"lease_id":         nil,
			"lease_expires_at": nil,
			"updated_at":       now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release retention lease: %v", err)
	}
	return nil
}
