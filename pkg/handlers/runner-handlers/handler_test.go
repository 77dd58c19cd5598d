/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runner_handlers

import (
	"database/sql"
	"testing"

	"gotest.tools/assert"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
)

func TestTokenInfoOmitsHash(t *testing.T) {
	now := int64(1_700_000_000_000)
	token := &dbclient.RunnerToken{
		Id:         "t1",
		ProjectId:  "p1",
		RunnerId:   "r1",
		TokenHash:  "deadbeef",
		CreatedAt:  now,
		ExpiresAt:  sql.NullInt64{Int64: now + RunnerTokenTTLMs, Valid: true},
		LastUsedAt: sql.NullInt64{Int64: now + 1, Valid: true},
	}
	info := tokenInfo(token)
	assert.Equal(t, info.TokenId, "t1")
	assert.Equal(t, info.ProjectId, "p1")
	assert.Equal(t, info.RunnerId, "r1")
	assert.Equal(t, *info.ExpiresAt, now+RunnerTokenTTLMs)
	assert.Equal(t, *info.LastUsedAt, now+1)
	assert.Assert(t, info.RevokedAt == nil)
}

func TestSecretWiringEnums(t *testing.T) {
	assert.Assert(t, contains(dbclient.SecretWiringScopes, "bootstrap"))
	assert.Assert(t, contains(dbclient.SecretWiringStatuses, "configured"))
	assert.Assert(t, !contains(dbclient.SecretWiringScopes, "everything"))
	assert.Assert(t, !contains(dbclient.SecretWiringStatuses, "unknown"))
}
