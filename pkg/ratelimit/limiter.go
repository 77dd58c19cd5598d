/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package ratelimit

import (
	"context"
	"fmt"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const minuteMs = 60_000

// Rule names one rate-limited endpoint and its fixed-window budget.
type Rule struct {
	Name     string
	Limit    int
	WindowMs int64
}

// Per-endpoint budgets. Buckets are keyed "<name>:<userId>" so one noisy
// caller cannot starve the rest.
var (
	RuleRunCreate          = Rule{Name: "runs.create", Limit: 30, WindowMs: minuteMs}
	RuleRunEventsAppend    = Rule{Name: "runEvents.appendBatch", Limit: 240, WindowMs: minuteMs}
	RuleRunnerHeartbeat    = Rule{Name: "runners.upsertHeartbeat", Limit: 240, WindowMs: minuteMs}
	RuleRunnerTokenCreate  = Rule{Name: "runnerTokens.create", Limit: 20, WindowMs: minuteMs}
	RuleRunnerTokenRevoke  = Rule{Name: "runnerTokens.revoke", Limit: 30, WindowMs: minuteMs}
	RuleSecretWiringUpsert = Rule{Name: "secretWiring.upsertMany", Limit: 120, WindowMs: minuteMs}
	RuleDeleteStart        = Rule{Name: "projects.deleteStart", Limit: 10, WindowMs: minuteMs}
	RuleDeleteConfirm      = Rule{Name: "projects.deleteConfirm", Limit: 10, WindowMs: minuteMs}
	RuleAuditAppend        = Rule{Name: "auditLogs.append", Limit: 120, WindowMs: minuteMs}
	RuleJobEnqueue         = Rule{Name: "runnerJobs.enqueue", Limit: 30, WindowMs: minuteMs}
	RuleJobFinalize        = Rule{Name: "runnerJobs.finalize", Limit: 60, WindowMs: minuteMs}
)

// tokenTaker is the slice of the database client the limiter needs.
type tokenTaker interface {
	TakeRateLimitToken(ctx context.Context, key string, limit int, windowMs, now int64) (bool, int64, error)
}

// Limiter enforces fixed-window budgets on top of the bucket table.
type Limiter struct {
	db tokenTaker
}

// NewLimiter creates a Limiter over the given bucket store.
func NewLimiter(db tokenTaker) *Limiter {
	return &Limiter{db: db}
}

// Take consumes one token for the rule on behalf of the subject, failing
// with rate_limited and a retryAt hint when the window is exhausted.
func (l *Limiter) Take(ctx context.Context, rule Rule, subject string) error {
	key := fmt.Sprintf("%s:%s", rule.Name, subject)
	allowed, retryAt, err := l.db.TakeRateLimitToken(ctx, key, rule.Limit, rule.WindowMs, timeutil.NowMs())
	if err != nil {
		return err
	}
	if !allowed {
		return commonerrors.NewTooManyRequests(
			fmt.Sprintf("rate limit exceeded for %s", rule.Name), retryAt)
	}
	return nil
}
