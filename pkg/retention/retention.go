/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package retention implements the budgeted retention sweeper: an hourly,
// lease-guarded walk over project policies that deletes expired run events,
// audit logs and terminal runs in bounded batches, resuming through a
// persistent cursor when the budgets run out.
package retention

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const (
	MaxProjectsPerSweep    = 25
	GlobalDeleteBudget     = 1000
	PerProjectDeleteBudget = 200
	SweepBatchSize         = 200
	ContinueDelayMs        = 5_000
	LeaseTTLMs             = 60_000

	DefaultRetentionDays = 30
	MinRetentionDays     = 1
	MaxRetentionDays     = 365

	dayMs = 86_400_000
)

// TaskRunRetentionSweep is the scheduler handler name for one sweep
// invocation.
const TaskRunRetentionSweep = "retention.runSweep"

// NormalizeRetentionDays clamps a caller-supplied retention period into
// [1, 365] days, truncating fractional values. nil means the default.
func NormalizeRetentionDays(days *float64) int {
	if days == nil {
		return DefaultRetentionDays
	}
	d := int(*days)
	if d < MinRetentionDays {
		return MinRetentionDays
	}
	if d > MaxRetentionDays {
		return MaxRetentionDays
	}
	return d
}

// SweepReport summarizes one sweep invocation.
type SweepReport struct {
	Acquired        bool
	ProjectsVisited int
	Deleted         int64
	Continued       bool
	Finished        bool
}

type sweepPayload struct {
	Reason  string `json:"reason"`
	LeaseId string `json:"leaseId,omitempty"`
}

// Sweeper runs the retention machine against the database and re-schedules
// continuations through the durable scheduler.
type Sweeper struct {
	db    dbclient.Interface
	sched *scheduler.Scheduler
}

// NewSweeper creates a Sweeper and registers its scheduler handler.
func NewSweeper(db dbclient.Interface, sched *scheduler.Scheduler) *Sweeper {
	s := &Sweeper{db: db, sched: sched}
	sched.Register(TaskRunRetentionSweep, s.handleSweep)
	return s
}

// Kick schedules a sweep to run immediately. Wired to the hourly cron.
func (s *Sweeper) Kick(ctx context.Context, reason string) error {
	return s.sched.RunAfter(ctx, 0, TaskRunRetentionSweep, sweepPayload{Reason: reason})
}

func (s *Sweeper) handleSweep(ctx context.Context, payload []byte) error {
	var p sweepPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad retention sweep payload: %v", err)
	}
	report, err := s.RunSweep(ctx, p.Reason, p.LeaseId)
	if err != nil {
		return err
	}
	klog.V(4).Infof("retention sweep reason=%s acquired=%t projects=%d deleted=%d continued=%t",
		p.Reason, report.Acquired, report.ProjectsVisited, report.Deleted, report.Continued)
	return nil
}

// RunSweep executes one budgeted sweep invocation. A carried leaseId marks
// a continuation of an earlier invocation and lets it renew its own lease;
// with an empty leaseId a fresh one is minted. When another worker's lease
// is active the sweep returns zero progress.
func (s *Sweeper) RunSweep(ctx context.Context, reason, leaseId string) (*SweepReport, error) {
	now := timeutil.NowMs()
	if _, err := s.db.GetOrInitRetentionSweep(ctx, now); err != nil {
		return nil, err
	}
	if leaseId == "" {
		var err error
		leaseId, err = cryptoutil.NewOpaqueToken()
		if err != nil {
			return nil, err
		}
	}
	sweep, acquired, err := s.db.AcquireRetentionLease(ctx, leaseId, now, LeaseTTLMs)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return &SweepReport{}, nil
	}

	report := &SweepReport{Acquired: true}
	afterId := sweep.Cursor.String
	policies, err := s.db.SelectProjectPoliciesPage(ctx, afterId, MaxProjectsPerSweep)
	if err != nil {
		return nil, err
	}

	globalLeft := int64(GlobalDeleteBudget)
	cursorId := afterId
	exhausted := false
	for _, policy := range policies {
		if globalLeft <= 0 {
			exhausted = true
			break
		}
		budget := int64(PerProjectDeleteBudget)
		if budget > globalLeft {
			budget = globalLeft
		}
		cutoff := now - int64(clampDays(policy.RetentionDays))*dayMs
		deleted, err := s.sweepProject(ctx, policy.ProjectId, cutoff, budget)
		if err != nil {
			// one project's failure must not stall the rest
			klog.ErrorS(err, "retention sweep failed for project", "project", policy.ProjectId)
		}
		report.ProjectsVisited++
		report.Deleted += deleted
		globalLeft -= deleted
		if deleted >= budget {
			// budget spent, the project may hold more expired rows; leave
			// the cursor before it so the continuation revisits it
			exhausted = true
			break
		}
		cursorId = policy.Id
	}

	now = timeutil.NowMs()
	finished := !exhausted && len(policies) < MaxProjectsPerSweep
	if finished {
		if err := s.db.UpdateRetentionCursor(ctx, leaseId, sql.NullString{}, now); err != nil {
			return nil, err
		}
		if err := s.db.ReleaseRetentionLease(ctx, leaseId, now); err != nil {
			return nil, err
		}
		report.Finished = true
		return report, nil
	}
	cursor := sql.NullString{String: cursorId, Valid: cursorId != ""}
	if err := s.db.UpdateRetentionCursor(ctx, leaseId, cursor, now); err != nil {
		return nil, err
	}
	err = s.sched.RunAfter(ctx, ContinueDelayMs, TaskRunRetentionSweep,
		sweepPayload{Reason: "continue", LeaseId: leaseId})
	if err != nil {
		return nil, err
	}
	report.Continued = true
	return report, nil
}

// sweepProject deletes expired rows of one project in a fixed order,
// stopping as soon as the budget is spent: run events first, then audit
// logs, then terminal runs with their events drained before the run row.
func (s *Sweeper) sweepProject(ctx context.Context, projectId string, cutoff, budget int64) (int64, error) {
	var deleted int64

	for deleted < budget {
		limit := batchLimit(budget - deleted)
		n, err := s.db.DeleteRunEventsOlderThan(ctx, projectId, cutoff, limit)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if n < int64(limit) {
			break
		}
	}
	for deleted < budget {
		limit := batchLimit(budget - deleted)
		n, err := s.db.DeleteAuditLogsOlderThan(ctx, projectId, cutoff, limit)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if n < int64(limit) {
			break
		}
	}
	for deleted < budget {
		limit := batchLimit(budget - deleted)
		runs, err := s.db.SelectTerminalRunsOlderThan(ctx, projectId, cutoff, limit)
		if err != nil {
			return deleted, err
		}
		if len(runs) == 0 {
			break
		}
		for _, run := range runs {
			if deleted >= budget {
				return deleted, nil
			}
			for {
				eventLimit := batchLimit(budget - deleted)
				n, err := s.db.DeleteRunEventsByRun(ctx, run.Id, eventLimit)
				if err != nil {
					return deleted, err
				}
				deleted += n
				if n < int64(eventLimit) {
					break
				}
				if deleted >= budget {
					return deleted, nil
				}
			}
			if deleted >= budget {
				return deleted, nil
			}
			n, err := s.db.DeleteRun(ctx, run.Id)
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if len(runs) < limit {
			break
		}
	}
	return deleted, nil
}

func batchLimit(remaining int64) int {
	if remaining > SweepBatchSize {
		return SweepBatchSize
	}
	if remaining < 1 {
		return 1
	}
	return int(remaining)
}

func clampDays(days int) int {
	if days < MinRetentionDays {
		return MinRetentionDays
	}
	if days > MaxRetentionDays {
		return MaxRetentionDays
	}
	return days
}
