/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TakeRateLimitToken consumes one token from the fixed-window bucket named
// by key. The bucket row is locked for the duration of the transaction so
// concurrent takers observe a consistent count. When the stored window is
// stale the bucket resets to the current window before counting.
//
// Returns allowed=false with the epoch-ms instant the next window opens when
// the bucket is exhausted.
func (c *Client) TakeRateLimitToken(ctx context.Context, key string, limit int, windowMs, now int64) (allowed bool, retryAt int64, err error) {
	gdb, err := c.getGorm()
	if err != nil {
		return false, 0, err
	}
	windowStart := now / windowMs * windowMs
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bucket RateLimitBucket
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).
			Take(&bucket).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			allowed = true
			return tx.Create(&RateLimitBucket{Key: key, WindowStart: windowStart, Count: 1}).Error
		}
		if err != nil {
			return err
		}
		if bucket.WindowStart != windowStart {
			bucket.WindowStart = windowStart
			bucket.Count = 1
			allowed = true
			return tx.Save(&bucket).Error
		}
		if bucket.Count >= limit {
			allowed = false
			retryAt = windowStart + windowMs
			return nil
		}
		bucket.Count++
		allowed = true
		return tx.Save(&bucket).Error
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to take rate limit token: %v", err)
	}
	return allowed, retryAt, nil
}
