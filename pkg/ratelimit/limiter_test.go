/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package ratelimit

import (
	"context"
	"testing"

	"gotest.tools/assert"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

type fakeTaker struct {
	key      string
	limit    int
	windowMs int64
	allowed  bool
	retryAt  int64
}

func (f *fakeTaker) TakeRateLimitToken(_ context.Context, key string, limit int, windowMs, _ int64) (bool, int64, error) {
	f.key = key
	f.limit = limit
	f.windowMs = windowMs
	return f.allowed, f.retryAt, nil
}

func TestTakeAllowed(t *testing.T) {
	taker := &fakeTaker{allowed: true}
	limiter := NewLimiter(taker)
	err := limiter.Take(context.Background(), RuleAuditAppend, "user-1")
	assert.NilError(t, err)
	assert.Equal(t, taker.key, "auditLogs.append:user-1")
	assert.Equal(t, taker.limit, 120)
	assert.Equal(t, taker.windowMs, int64(60_000))
}

func TestTakeExhausted(t *testing.T) {
	taker := &fakeTaker{allowed: false, retryAt: 1_755_993_660_000}
	limiter := NewLimiter(taker)
	err := limiter.Take(context.Background(), RuleDeleteStart, "user-1")
	assert.Assert(t, commonerrors.IsRateLimited(err))
	apiErr := commonerrors.AsApiError(err)
	assert.Equal(t, apiErr.Data["retryAt"], int64(1_755_993_660_000))
}
