/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package erasure

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

// fakeStore is an in-memory stand-in for the database client. Only the
// methods the erasure machine touches are implemented; anything else
// panics through the embedded nil interface.
type fakeStore struct {
	dbclient.Interface

	tokens    []*dbclient.ProjectDeletionToken
	jobs      map[string]*dbclient.ProjectDeletionJob
	remaining map[string]int64
	tasks     []*dbclient.ScheduledTask
	activeJob *dbclient.ProjectDeletionJob

	projectDeleted bool
	insertedJobs   []*dbclient.ProjectDeletionJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      map[string]*dbclient.ProjectDeletionJob{},
		remaining: map[string]int64{},
	}
}

func (f *fakeStore) InsertProjectDeletionToken(_ context.Context, token *dbclient.ProjectDeletionToken) error {
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeStore) SelectDeletionTokensByProject(_ context.Context, projectId string) ([]*dbclient.ProjectDeletionToken, error) {
	var out []*dbclient.ProjectDeletionToken
	for _, token := range f.tokens {
		if token.ProjectId == projectId {
			out = append(out, token)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteDeletionTokensByProject(_ context.Context, projectId string) (int64, error) {
	var kept []*dbclient.ProjectDeletionToken
	var n int64
	for _, token := range f.tokens {
		if token.ProjectId == projectId {
			n++
			continue
		}
		kept = append(kept, token)
	}
	f.tokens = kept
	return n, nil
}

func (f *fakeStore) GetActiveDeletionJobByProject(_ context.Context, _ string) (*dbclient.ProjectDeletionJob, error) {
	return f.activeJob, nil
}

func (f *fakeStore) InsertProjectDeletionJob(_ context.Context, job *dbclient.ProjectDeletionJob) error {
	copied := *job
	f.jobs[job.Id] = &copied
	f.insertedJobs = append(f.insertedJobs, &copied)
	return nil
}

func (f *fakeStore) GetDeletionJob(_ context.Context, jobId string) (*dbclient.ProjectDeletionJob, error) {
	job, ok := f.jobs[jobId]
	if !ok {
		return nil, commonerrors.NewNotFound("deletion job not found")
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) AcquireDeletionJobLease(_ context.Context, jobId, leaseId string, now, leaseMs int64) (*dbclient.ProjectDeletionJob, bool, error) {
	job := f.jobs[jobId]
	if dbclient.IsTerminalDeletionJobStatus(job.Status) {
		copied := *job
		return &copied, false, nil
	}
	if dbclient.HasActiveLease(job.LeaseExpiresAt, now) && job.LeaseId.String != leaseId {
		copied := *job
		return &copied, false, nil
	}
	job.Status = dbclient.DeletionJobStatusRunning
	job.LeaseId = sql.NullString{String: leaseId, Valid: true}
	job.LeaseExpiresAt = sql.NullInt64{Int64: now + leaseMs, Valid: true}
	copied := *job
	return &copied, true, nil
}

func (f *fakeStore) UpdateDeletionJobProgress(_ context.Context, jobId, leaseId, stage string, processed, updatedAt int64) error {
	job := f.jobs[jobId]
	if job.LeaseId.String != leaseId {
		return commonerrors.NewConflict("deletion job lease lost")
	}
	job.Stage = stage
	job.Processed = processed
	job.UpdatedAt = updatedAt
	return nil
}

func (f *fakeStore) CompleteDeletionJob(_ context.Context, jobId, leaseId, status string, lastError sql.NullString, now int64) error {
	job := f.jobs[jobId]
	if job.LeaseId.String != leaseId {
		return commonerrors.NewConflict("deletion job lease lost")
	}
	job.Status = status
	job.CompletedAt = sql.NullInt64{Int64: now, Valid: true}
	job.LastError = lastError
	job.LeaseId = sql.NullString{}
	job.LeaseExpiresAt = sql.NullInt64{}
	return nil
}

func (f *fakeStore) ReleaseDeletionJobLease(_ context.Context, jobId, leaseId string, _ int64) error {
	job := f.jobs[jobId]
	if job.LeaseId.String == leaseId {
		job.LeaseId = sql.NullString{}
		job.LeaseExpiresAt = sql.NullInt64{}
	}
	return nil
}

func (f *fakeStore) drain(table string, limit int) int64 {
	n := f.remaining[table]
	if n > int64(limit) {
		n = int64(limit)
	}
	f.remaining[table] -= n
	return n
}

func (f *fakeStore) DeleteRunEventsBatchByProject(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPRunEvent, limit), nil
}

func (f *fakeStore) DeleteRunsBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPRun, limit), nil
}

func (f *fakeStore) DeleteProvidersBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPProvider, limit), nil
}

func (f *fakeStore) DeleteProjectConfigsBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPProjectConfig, limit), nil
}

func (f *fakeStore) DeleteProjectMembersBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPProjectMember, limit), nil
}

func (f *fakeStore) DeleteAuditLogsBatchByProject(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPAuditLog, limit), nil
}

func (f *fakeStore) DeleteProjectPoliciesBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPProjectPolicy, limit), nil
}

func (f *fakeStore) DeleteDeletionTokensBatch(_ context.Context, _ string, limit int) (int64, error) {
	return f.drain(dbclient.TPProjectDeletionToken, limit), nil
}

func (f *fakeStore) DeleteSecretWiringsByProject(_ context.Context, _ string) (int64, error) {
	return f.drain(dbclient.TPSecretWiring, 1<<30), nil
}

func (f *fakeStore) DeleteRunnerJobsByProject(_ context.Context, _ string) (int64, error) {
	return f.drain(dbclient.TPRunnerJob, 1<<30), nil
}

func (f *fakeStore) DeleteRunnerTokensByProject(_ context.Context, _ string) (int64, error) {
	return f.drain(dbclient.TPRunnerToken, 1<<30), nil
}

func (f *fakeStore) DeleteRunnersByProject(_ context.Context, _ string) (int64, error) {
	return f.drain(dbclient.TPRunner, 1<<30), nil
}

func (f *fakeStore) DeleteProject(_ context.Context, _ string) (int64, error) {
	f.projectDeleted = true
	return 1, nil
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

func newTestMachine(store *fakeStore) *Machine {
	sched := scheduler.NewScheduler(store, time.Hour)
	return NewMachine(store, sched)
}

func TestNextStage(t *testing.T) {
	stage := StageRunEvents
	var visited []string
	for stage != StageDone {
		visited = append(visited, stage)
		stage = NextStage(stage)
	}
	assert.DeepEqual(t, visited, []string{
		StageRunEvents, StageRuns, StageProviders, StageProjectConfigs,
		StageProjectMembers, StageAuditLogs, StageProjectPolicies,
		StageProjectDeletionTokens, StageProject,
	})
	assert.Equal(t, NextStage(StageDone), StageDone)
}

func TestStartDeletionReplacesTokens(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()

	_, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	token, expiresAt, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)

	assert.Equal(t, len(store.tokens), 1)
	assert.Equal(t, store.tokens[0].TokenHash, cryptoutil.Sha256Hex(token))
	assert.Assert(t, expiresAt > timeutil.NowMs())
}

func TestConfirmDeletionWrongPhrase(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	project := &dbclient.Project{Id: "p1", Name: "alpha"}

	token, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	_, err = machine.ConfirmDeletion(ctx, project, token, "delete wrong")
	assert.Assert(t, commonerrors.IsConflict(err))
	assert.Equal(t, len(store.insertedJobs), 0)
}

func TestConfirmDeletionBadToken(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	project := &dbclient.Project{Id: "p1", Name: "alpha"}

	_, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	_, err = machine.ConfirmDeletion(ctx, project, "not-the-token", "delete alpha")
	assert.Assert(t, commonerrors.IsConflict(err))
}

func TestConfirmDeletionAlreadyRunning(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	project := &dbclient.Project{Id: "p1", Name: "alpha"}
	store.activeJob = &dbclient.ProjectDeletionJob{Id: "j0", Status: dbclient.DeletionJobStatusRunning}

	token, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	_, err = machine.ConfirmDeletion(ctx, project, token, "delete alpha")
	assert.Assert(t, commonerrors.IsConflict(err))
}

func TestConfirmDeletionCreatesJobAndSchedules(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	project := &dbclient.Project{Id: "p1", Name: "alpha"}

	token, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	jobId, err := machine.ConfirmDeletion(ctx, project, "  "+token+" ", " delete alpha ")
	assert.NilError(t, err)

	job := store.jobs[jobId]
	assert.Equal(t, job.Status, dbclient.DeletionJobStatusPending)
	assert.Equal(t, job.Stage, StageRunEvents)
	assert.Equal(t, len(store.tokens), 0)
	assert.Equal(t, len(store.tasks), 1)
	assert.Equal(t, store.tasks[0].FnName, TaskRunDeletionJobStep)
}

func TestRunStepWalksAllStages(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	project := &dbclient.Project{Id: "p1", Name: "alpha"}

	store.remaining[dbclient.TPRunEvent] = 500
	store.remaining[dbclient.TPRun] = 3
	store.remaining[dbclient.TPProjectMember] = 2
	store.remaining[dbclient.TPAuditLog] = 10
	store.remaining[dbclient.TPProjectPolicy] = 1

	token, _, err := machine.StartDeletion(ctx, "p1", "u1")
	assert.NilError(t, err)
	jobId, err := machine.ConfirmDeletion(ctx, project, token, "delete alpha")
	assert.NilError(t, err)

	var report *StepReport
	for i := 0; i < 50; i++ {
		report, err = machine.RunStep(ctx, jobId)
		assert.NilError(t, err)
		if report.Status == dbclient.DeletionJobStatusCompleted {
			break
		}
	}
	assert.Equal(t, report.Status, dbclient.DeletionJobStatusCompleted)
	assert.Equal(t, report.Stage, StageDone)
	assert.Assert(t, store.projectDeleted)
	// 500 events + 3 runs + 2 members + 10 audit logs + 1 policy + 1 project
	assert.Equal(t, store.jobs[jobId].Processed, int64(517))
	for table, left := range store.remaining {
		assert.Equal(t, left, int64(0), table)
	}
}

func TestRunStepRespectsForeignLease(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	ctx := context.Background()
	now := timeutil.NowMs()
	store.jobs["j1"] = &dbclient.ProjectDeletionJob{
		Id:             "j1",
		ProjectId:      "p1",
		Status:         dbclient.DeletionJobStatusRunning,
		Stage:          StageRunEvents,
		LeaseId:        sql.NullString{String: "other", Valid: true},
		LeaseExpiresAt: sql.NullInt64{Int64: now + 30_000, Valid: true},
	}

	report, err := machine.RunStep(ctx, "j1")
	assert.NilError(t, err)
	assert.Equal(t, report.Status, dbclient.DeletionJobStatusRunning)
	assert.Equal(t, report.Deleted, int64(0))
	assert.Equal(t, store.jobs["j1"].LeaseId.String, "other")
	// a follow-up step is queued so the job is re-examined once the
	// foreign lease expires
	assert.Equal(t, len(store.tasks), 1)
	assert.Equal(t, store.tasks[0].FnName, TaskRunDeletionJobStep)
}

func TestRunStepTerminalIsSticky(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	store.jobs["j1"] = &dbclient.ProjectDeletionJob{
		Id: "j1", Status: dbclient.DeletionJobStatusFailed, Stage: StageRuns,
	}

	report, err := machine.RunStep(context.Background(), "j1")
	assert.NilError(t, err)
	assert.Equal(t, report.Status, dbclient.DeletionJobStatusFailed)
	assert.Equal(t, report.Stage, StageRuns)
}

func TestRunStepMissingJob(t *testing.T) {
	store := newFakeStore()
	machine := newTestMachine(store)
	report, err := machine.RunStep(context.Background(), "nope")
	assert.NilError(t, err)
	assert.Equal(t, report.Status, dbclient.DeletionJobStatusFailed)
	assert.Equal(t, report.Stage, StageDone)
}
