/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"
	"testing"

	"gotest.tools/assert"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

func TestInsertRejectsEmptyInput(t *testing.T) {
	c := &Client{}
	ctx := context.Background()
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertUser(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertProject(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertProjectMember(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertRun(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertRunEvents(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertRunnerToken(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertRunnerJob(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.UpsertSecretWirings(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertAuditLog(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertProjectDeletionToken(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertProjectDeletionJob(ctx, nil)))
	assert.Assert(t, commonerrors.IsBadRequest(c.InsertScheduledTask(ctx, nil)))
}

func TestGetDBWithoutInit(t *testing.T) {
	c := &Client{}
	_, err := c.getDB()
	assert.Assert(t, err != nil)
	_, err = c.getGorm()
	assert.Assert(t, err != nil)
}

func TestGenerateInsertCommand(t *testing.T) {
	cmd := generateCommand(RateLimitBucket{}, `INSERT INTO `+TPRateLimitBucket+` (%s) VALUES (%s);`)
	assert.Equal(t, cmd,
		`INSERT INTO rate_limit_buckets (key, window_start, count) VALUES (:key, :window_start, :count);`)
}

func TestPageCursorRoundTrip(t *testing.T) {
	encoded := encodeCursor(1755993600000, "run-42")
	decoded, err := decodeCursor(encoded)
	assert.NilError(t, err)
	assert.Equal(t, decoded.SortValue, int64(1755993600000))
	assert.Equal(t, decoded.Id, "run-42")
}

func TestPageCursorEmpty(t *testing.T) {
	decoded, err := decodeCursor("")
	assert.NilError(t, err)
	assert.Assert(t, decoded == nil)
}

func TestPageCursorInvalid(t *testing.T) {
	_, err := decodeCursor("not base64url!!!")
	assert.Assert(t, commonerrors.IsBadRequest(err))
	// valid base64 wrapping junk bytes
	_, err = decodeCursor("bm90LWpzb24")
	assert.Assert(t, commonerrors.IsBadRequest(err))
}

func TestClampNumItems(t *testing.T) {
	assert.Equal(t, clampNumItems(0, 50), 50)
	assert.Equal(t, clampNumItems(-3, 50), 50)
	assert.Equal(t, clampNumItems(200, 50), 50)
	assert.Equal(t, clampNumItems(10, 50), 10)
}

func TestHasActiveLease(t *testing.T) {
	now := int64(1_000_000)
	assert.Assert(t, !HasActiveLease(sql.NullInt64{}, now))
	assert.Assert(t, !HasActiveLease(sql.NullInt64{Int64: now, Valid: true}, now))
	assert.Assert(t, !HasActiveLease(sql.NullInt64{Int64: now - 1, Valid: true}, now))
	assert.Assert(t, HasActiveLease(sql.NullInt64{Int64: now + 1, Valid: true}, now))
}

func TestRunnerTokenIsValid(t *testing.T) {
	now := int64(2_000_000)
	token := &RunnerToken{}
	assert.Assert(t, token.IsValid(now))

	token = &RunnerToken{ExpiresAt: sql.NullInt64{Int64: now + 60_000, Valid: true}}
	assert.Assert(t, token.IsValid(now))

	token = &RunnerToken{ExpiresAt: sql.NullInt64{Int64: now, Valid: true}}
	assert.Assert(t, !token.IsValid(now))

	token = &RunnerToken{
		ExpiresAt: sql.NullInt64{Int64: now + 60_000, Valid: true},
		RevokedAt: sql.NullInt64{Int64: now - 1, Valid: true},
	}
	assert.Assert(t, !token.IsValid(now))
}

func TestTerminalStatuses(t *testing.T) {
	assert.Assert(t, !IsTerminalRunStatus(RunStatusRunning))
	assert.Assert(t, IsTerminalRunStatus(RunStatusSucceeded))
	assert.Assert(t, IsTerminalRunStatus(RunStatusFailed))
	assert.Assert(t, IsTerminalRunStatus(RunStatusCanceled))
	assert.Assert(t, !IsTerminalRunStatus("unknown"))

	assert.Assert(t, !IsTerminalDeletionJobStatus(DeletionJobStatusPending))
	assert.Assert(t, !IsTerminalDeletionJobStatus(DeletionJobStatusRunning))
	assert.Assert(t, IsTerminalDeletionJobStatus(DeletionJobStatusCompleted))
	assert.Assert(t, IsTerminalDeletionJobStatus(DeletionJobStatusFailed))
}
