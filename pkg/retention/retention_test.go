/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package retention

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gotest.tools/assert"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
)

type fakeProject struct {
	oldRunEvents int64
	oldAuditLogs int64
	oldRuns      []*fakeRun
}

type fakeRun struct {
	id     string
	events int64
}

// fakeStore is an in-memory stand-in for the database client covering the
// sweeper's surface.
type fakeStore struct {
	dbclient.Interface

	sweep    *dbclient.RetentionSweep
	policies []*dbclient.ProjectPolicy
	projects map[string]*fakeProject
	tasks    []*dbclient.ScheduledTask

	leaseDenied bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: map[string]*fakeProject{}}
}

func (f *fakeStore) GetOrInitRetentionSweep(_ context.Context, now int64) (*dbclient.RetentionSweep, error) {
	if f.sweep == nil {
		f.sweep = &dbclient.RetentionSweep{Key: dbclient.RetentionSweepKey, UpdatedAt: now}
	}
	return f.sweep, nil
}

func (f *fakeStore) AcquireRetentionLease(_ context.Context, leaseId string, now, leaseMs int64) (*dbclient.RetentionSweep, bool, error) {
	if f.leaseDenied {
		copied := *f.sweep
		return &copied, false, nil
	}
	f.sweep.LeaseId = sql.NullString{String: leaseId, Valid: true}
	f.sweep.LeaseExpiresAt = sql.NullInt64{Int64: now + leaseMs, Valid: true}
	copied := *f.sweep
	return &copied, true, nil
}

func (f *fakeStore) UpdateRetentionCursor(_ context.Context, leaseId string, cursor sql.NullString, now int64) error {
	if f.sweep.LeaseId.String == leaseId {
		f.sweep.Cursor = cursor
		f.sweep.UpdatedAt = now
	}
	return nil
}

func (f *fakeStore) ReleaseRetentionLease(_ context.Context, leaseId string, _ int64) error {
	if f.sweep.LeaseId.String == leaseId {
		f.sweep.LeaseId = sql.NullString{}
		f.sweep.LeaseExpiresAt = sql.NullInt64{}
	}
	return nil
}

func (f *fakeStore) SelectProjectPoliciesPage(_ context.Context, afterId string, limit int) ([]*dbclient.ProjectPolicy, error) {
	var out []*dbclient.ProjectPolicy
	for _, policy := range f.policies {
		if afterId != "" && policy.Id <= afterId {
			continue
		}
		out = append(out, policy)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func drain(counter *int64, limit int) int64 {
	n := *counter
	if n > int64(limit) {
		n = int64(limit)
	}
	*counter -= n
	return n
}

func (f *fakeStore) DeleteRunEventsOlderThan(_ context.Context, projectId string, _ int64, limit int) (int64, error) {
	return drain(&f.projects[projectId].oldRunEvents, limit), nil
}

func (f *fakeStore) DeleteAuditLogsOlderThan(_ context.Context, projectId string, _ int64, limit int) (int64, error) {
	return drain(&f.projects[projectId].oldAuditLogs, limit), nil
}

func (f *fakeStore) SelectTerminalRunsOlderThan(_ context.Context, projectId string, _ int64, limit int) ([]*dbclient.Run, error) {
	var out []*dbclient.Run
	for _, run := range f.projects[projectId].oldRuns {
		out = append(out, &dbclient.Run{Id: run.id, ProjectId: projectId, Status: dbclient.RunStatusSucceeded})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteRunEventsByRun(_ context.Context, runId string, limit int) (int64, error) {
	for _, project := range f.projects {
		for _, run := range project.oldRuns {
			if run.id == runId {
				return drain(&run.events, limit), nil
			}
		}
	}
	return 0, nil
}

func (f *fakeStore) DeleteRun(_ context.Context, runId string) (int64, error) {
	for _, project := range f.projects {
		for i, run := range project.oldRuns {
			if run.id == runId {
				project.oldRuns = append(project.oldRuns[:i], project.oldRuns[i+1:]...)
				return 1, nil
			}
		}
	}
	return 0, nil
}

func (f *fakeStore) InsertScheduledTask(_ context.Context, task *dbclient.ScheduledTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeStore) ClaimDueScheduledTasks(_ context.Context, _, _ int64, _ int) ([]*dbclient.ScheduledTask, error) {
	return nil, nil
}

func (f *fakeStore) DeleteScheduledTask(_ context.Context, _ string) error {
	return nil
}

func newTestSweeper(store *fakeStore) *Sweeper {
	sched := scheduler.NewScheduler(store, time.Hour)
	return NewSweeper(store, sched)
}

func TestNormalizeRetentionDays(t *testing.T) {
	assert.Equal(t, NormalizeRetentionDays(nil), 30)
	zero := 0.0
	assert.Equal(t, NormalizeRetentionDays(&zero), 1)
	over := 366.0
	assert.Equal(t, NormalizeRetentionDays(&over), 365)
	fractional := 90.8
	assert.Equal(t, NormalizeRetentionDays(&fractional), 90)
}

func TestSweepDeniedByForeignLease(t *testing.T) {
	store := newFakeStore()
	store.leaseDenied = true
	store.sweep = &dbclient.RetentionSweep{Key: dbclient.RetentionSweepKey}
	sweeper := newTestSweeper(store)

	report, err := sweeper.RunSweep(context.Background(), "cron.hourly", "")
	assert.NilError(t, err)
	assert.Assert(t, !report.Acquired)
	assert.Equal(t, report.Deleted, int64(0))
}

func TestSweepHonorsPerProjectBudget(t *testing.T) {
	store := newFakeStore()
	store.policies = []*dbclient.ProjectPolicy{{Id: "pol-1", ProjectId: "p1", RetentionDays: 7}}
	store.projects["p1"] = &fakeProject{oldRunEvents: 2500}
	sweeper := newTestSweeper(store)

	report, err := sweeper.RunSweep(context.Background(), "cron.hourly", "")
	assert.NilError(t, err)
	assert.Assert(t, report.Acquired)
	assert.Equal(t, report.Deleted, int64(PerProjectDeleteBudget))
	assert.Equal(t, store.projects["p1"].oldRunEvents, int64(2300))
	// continuation scheduled, revisiting the same project
	assert.Assert(t, report.Continued)
	assert.Equal(t, len(store.tasks), 1)
	assert.Equal(t, store.tasks[0].FnName, TaskRunRetentionSweep)
}

func TestSweepDrainsAcrossContinuations(t *testing.T) {
	store := newFakeStore()
	store.policies = []*dbclient.ProjectPolicy{{Id: "pol-1", ProjectId: "p1", RetentionDays: 7}}
	store.projects["p1"] = &fakeProject{oldRunEvents: 2500}
	sweeper := newTestSweeper(store)
	ctx := context.Background()

	leaseId := ""
	var report *SweepReport
	var err error
	for i := 0; i < 20; i++ {
		report, err = sweeper.RunSweep(ctx, "continue", leaseId)
		assert.NilError(t, err)
		leaseId = store.sweep.LeaseId.String
		if report.Finished {
			break
		}
	}
	assert.Assert(t, report.Finished)
	assert.Equal(t, store.projects["p1"].oldRunEvents, int64(0))
	assert.Assert(t, !store.sweep.Cursor.Valid)
	assert.Assert(t, !store.sweep.LeaseId.Valid)
}

func TestSweepDeletesTerminalRunsWithEvents(t *testing.T) {
	store := newFakeStore()
	store.policies = []*dbclient.ProjectPolicy{{Id: "pol-1", ProjectId: "p1", RetentionDays: 30}}
	store.projects["p1"] = &fakeProject{
		oldRuns: []*fakeRun{{id: "r1", events: 5}, {id: "r2", events: 0}},
	}
	sweeper := newTestSweeper(store)

	report, err := sweeper.RunSweep(context.Background(), "cron.hourly", "")
	assert.NilError(t, err)
	// 5 events + 2 run rows
	assert.Equal(t, report.Deleted, int64(7))
	assert.Equal(t, len(store.projects["p1"].oldRuns), 0)
	assert.Assert(t, report.Finished)
}

func TestSweepVisitsMultipleProjects(t *testing.T) {
	store := newFakeStore()
	store.policies = []*dbclient.ProjectPolicy{
		{Id: "pol-1", ProjectId: "p1", RetentionDays: 7},
		{Id: "pol-2", ProjectId: "p2", RetentionDays: 7},
	}
	store.projects["p1"] = &fakeProject{oldRunEvents: 10}
	store.projects["p2"] = &fakeProject{oldAuditLogs: 4}
	sweeper := newTestSweeper(store)

	report, err := sweeper.RunSweep(context.Background(), "cron.hourly", "")
	assert.NilError(t, err)
	assert.Equal(t, report.ProjectsVisited, 2)
	assert.Equal(t, report.Deleted, int64(14))
	assert.Assert(t, report.Finished)
}
