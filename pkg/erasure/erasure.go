/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package erasure drives the project-erasure state machine: a confirmed
// deletion walks the project's tables stage by stage, removing rows in
// small batches under a worker lease, until nothing references the project.
package erasure

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/sanitize"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const (
	BatchSize          = 200
	StepDelayMs        = 500
	LeaseTTLMs         = 60_000
	DeletionTokenTTLMs = 15 * 60 * 1000
)

// TaskRunDeletionJobStep is the scheduler handler name for one erasure step.
const TaskRunDeletionJobStep = "erasure.runDeletionJobStep"

// Stages, in execution order. The final "project" stage also drains the
// runner-side tables (wirings, jobs, tokens, runners) before removing the
// project row so no project-indexed table keeps orphans.
const (
	StageRunEvents             = "runEvents"
	StageRuns                  = "runs"
	StageProviders             = "providers"
	StageProjectConfigs        = "projectConfigs"
	StageProjectMembers        = "projectMembers"
	StageAuditLogs             = "auditLogs"
	StageProjectPolicies       = "projectPolicies"
	StageProjectDeletionTokens = "projectDeletionTokens"
	StageProject               = "project"
	StageDone                  = "done"
)

var stageOrder = []string{
	StageRunEvents, StageRuns, StageProviders, StageProjectConfigs,
	StageProjectMembers, StageAuditLogs, StageProjectPolicies,
	StageProjectDeletionTokens, StageProject, StageDone,
}

// NextStage returns the stage following the given one; done is a fixed
// point.
func NextStage(stage string) string {
	for i, s := range stageOrder {
		if s == stage && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return StageDone
}

// ConfirmationPhrase is the exact string the caller must type to confirm
// erasure of the named project.
func ConfirmationPhrase(projectName string) string {
	return "delete " + projectName
}

// StepReport summarizes one erasure step for logs and the scheduler.
type StepReport struct {
	Status  string
	Stage   string
	Deleted int64
}

type stepPayload struct {
	JobId string `json:"jobId"`
}

// Machine executes the erasure protocol against the database and
// re-schedules itself through the durable scheduler.
type Machine struct {
	db    dbclient.Interface
	sched *scheduler.Scheduler
}

// NewMachine creates an erasure Machine and registers its scheduler
// handler.
func NewMachine(db dbclient.Interface, sched *scheduler.Scheduler) *Machine {
	m := &Machine{db: db, sched: sched}
	sched.Register(TaskRunDeletionJobStep, m.handleStep)
	return m
}

// StartDeletion mints a one-shot confirmation token for the project,
// replacing any earlier unused tokens. The plaintext is returned exactly
// once; only its hash is stored.
func (m *Machine) StartDeletion(ctx context.Context, projectId, userId string) (token string, expiresAt int64, err error) {
	if _, err = m.db.DeleteDeletionTokensByProject(ctx, projectId); err != nil {
		return "", 0, err
	}
	token, err = cryptoutil.NewOpaqueToken()
	if err != nil {
		return "", 0, err
	}
	now := timeutil.NowMs()
	expiresAt = now + DeletionTokenTTLMs
	err = m.db.InsertProjectDeletionToken(ctx, &dbclient.ProjectDeletionToken{
		Id:              uuid.NewString(),
		ProjectId:       projectId,
		TokenHash:       cryptoutil.Sha256Hex(token),
		CreatedByUserId: userId,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		return "", 0, err
	}
	return token, expiresAt, nil
}

// ConfirmDeletion validates the confirmation phrase and token, creates the
// pending erasure job, consumes the project's tokens and schedules the
// first step. Fails conflict on a wrong phrase, an unknown or expired
// token, or an erasure already in flight.
func (m *Machine) ConfirmDeletion(ctx context.Context, project *dbclient.Project, token, confirmation string) (jobId string, err error) {
	if strings.TrimSpace(confirmation) != ConfirmationPhrase(project.Name) {
		return "", commonerrors.NewConflict("confirmation text does not match")
	}
	now := timeutil.NowMs()
	if !m.matchToken(ctx, project.Id, token, now) {
		return "", commonerrors.NewConflict("invalid or expired deletion token")
	}
	active, err := m.db.GetActiveDeletionJobByProject(ctx, project.Id)
	if err != nil {
		return "", err
	}
	if active != nil {
		return "", commonerrors.NewConflict("project deletion already running")
	}
	jobId = uuid.NewString()
	err = m.db.InsertProjectDeletionJob(ctx, &dbclient.ProjectDeletionJob{
		Id:        jobId,
		ProjectId: project.Id,
		Status:    dbclient.DeletionJobStatusPending,
		Stage:     StageRunEvents,
		Processed: 0,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", err
	}
	if _, err = m.db.DeleteDeletionTokensByProject(ctx, project.Id); err != nil {
		return "", err
	}
	if err = m.ScheduleStep(ctx, jobId); err != nil {
		return "", err
	}
	return jobId, nil
}

// matchToken compares the presented token against every stored hash in
// constant time, ignoring expired rows.
func (m *Machine) matchToken(ctx context.Context, projectId, token string, now int64) bool {
	stored, err := m.db.SelectDeletionTokensByProject(ctx, projectId)
	if err != nil {
		klog.ErrorS(err, "failed to load deletion tokens", "project", projectId)
		return false
	}
	presented := cryptoutil.Sha256Hex(strings.TrimSpace(token))
	matched := false
	for _, row := range stored {
		if cryptoutil.ConstantTimeEqual(presented, row.TokenHash) && row.ExpiresAt > now {
			matched = true
		}
	}
	return matched
}

// ScheduleStep enqueues the next erasure step after the inter-step delay.
func (m *Machine) ScheduleStep(ctx context.Context, jobId string) error {
	return m.sched.RunAfter(ctx, StepDelayMs, TaskRunDeletionJobStep, stepPayload{JobId: jobId})
}

func (m *Machine) handleStep(ctx context.Context, payload []byte) error {
	var p stepPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("bad erasure step payload: %v", err)
	}
	report, err := m.RunStep(ctx, p.JobId)
	if err != nil {
		return err
	}
	klog.V(4).Infof("erasure step job=%s status=%s stage=%s deleted=%d",
		p.JobId, report.Status, report.Stage, report.Deleted)
	return nil
}

// RunStep executes one bounded erasure step: acquire the lease, delete one
// batch for the current stage, record progress and re-schedule. Errors
// inside the stage are recorded on the job instead of propagating so later
// polls observe the failure.
func (m *Machine) RunStep(ctx context.Context, jobId string) (*StepReport, error) {
	job, err := m.db.GetDeletionJob(ctx, jobId)
	if commonerrors.IsNotFound(err) {
		return &StepReport{Status: dbclient.DeletionJobStatusFailed, Stage: StageDone}, nil
	}
	if err != nil {
		return nil, err
	}
	if dbclient.IsTerminalDeletionJobStatus(job.Status) {
		return &StepReport{Status: job.Status, Stage: job.Stage}, nil
	}
	now := timeutil.NowMs()
	if dbclient.HasActiveLease(job.LeaseExpiresAt, now) {
		// another worker holds the lease; check the job again after the
		// delay so a crashed holder cannot strand it
		if err = m.ScheduleStep(ctx, jobId); err != nil {
			return nil, err
		}
		return &StepReport{Status: dbclient.DeletionJobStatusRunning, Stage: job.Stage}, nil
	}
	leaseId, err := cryptoutil.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	job, acquired, err := m.db.AcquireDeletionJobLease(ctx, jobId, leaseId, now, LeaseTTLMs)
	if err != nil {
		return nil, err
	}
	if !acquired {
		if !dbclient.IsTerminalDeletionJobStatus(job.Status) {
			if err = m.ScheduleStep(ctx, jobId); err != nil {
				return nil, err
			}
		}
		return &StepReport{Status: job.Status, Stage: job.Stage}, nil
	}

	deleted, complete, stageErr := m.runStageBatch(ctx, job.ProjectId, job.Stage)
	if stageErr != nil {
		msg := sanitize.SanitizeErrorMessage(stageErr.Error())
		lastError := sql.NullString{String: msg, Valid: true}
		if err := m.db.CompleteDeletionJob(ctx, jobId, leaseId, dbclient.DeletionJobStatusFailed, lastError, timeutil.NowMs()); err != nil {
			klog.ErrorS(err, "failed to record erasure failure", "job", jobId)
		}
		return &StepReport{Status: dbclient.DeletionJobStatusFailed, Stage: job.Stage}, nil
	}

	processed := job.Processed + deleted
	stage := job.Stage
	if complete {
		stage = NextStage(stage)
	}
	now = timeutil.NowMs()
	if stage == StageDone {
		if err = m.db.UpdateDeletionJobProgress(ctx, jobId, leaseId, StageDone, processed, now); err != nil {
			return nil, err
		}
		err = m.db.CompleteDeletionJob(ctx, jobId, leaseId, dbclient.DeletionJobStatusCompleted, sql.NullString{}, now)
		if err != nil {
			return nil, err
		}
		return &StepReport{Status: dbclient.DeletionJobStatusCompleted, Stage: StageDone, Deleted: deleted}, nil
	}
	if err = m.db.UpdateDeletionJobProgress(ctx, jobId, leaseId, stage, processed, now); err != nil {
		return nil, err
	}
	if err = m.db.ReleaseDeletionJobLease(ctx, jobId, leaseId, now); err != nil {
		return nil, err
	}
	if err = m.ScheduleStep(ctx, jobId); err != nil {
		return nil, err
	}
	return &StepReport{Status: dbclient.DeletionJobStatusRunning, Stage: stage, Deleted: deleted}, nil
}

// runStageBatch deletes one bounded batch for the stage and reports whether
// the stage finished. Batch stages finish when a batch comes back short;
// the project stage always finishes in one step.
func (m *Machine) runStageBatch(ctx context.Context, projectId, stage string) (deleted int64, complete bool, err error) {
	switch stage {
	case StageRunEvents:
		deleted, err = m.db.DeleteRunEventsBatchByProject(ctx, projectId, BatchSize)
	case StageRuns:
		deleted, err = m.db.DeleteRunsBatch(ctx, projectId, BatchSize)
	case StageProviders:
		deleted, err = m.db.DeleteProvidersBatch(ctx, projectId, BatchSize)
	case StageProjectConfigs:
		deleted, err = m.db.DeleteProjectConfigsBatch(ctx, projectId, BatchSize)
	case StageProjectMembers:
		deleted, err = m.db.DeleteProjectMembersBatch(ctx, projectId, BatchSize)
	case StageAuditLogs:
		deleted, err = m.db.DeleteAuditLogsBatchByProject(ctx, projectId, BatchSize)
	case StageProjectPolicies:
		deleted, err = m.db.DeleteProjectPoliciesBatch(ctx, projectId, BatchSize)
	case StageProjectDeletionTokens:
		deleted, err = m.db.DeleteDeletionTokensBatch(ctx, projectId, BatchSize)
	case StageProject:
		return m.deleteProjectStage(ctx, projectId)
	default:
		return 0, false, fmt.Errorf("unknown erasure stage %q", stage)
	}
	if err != nil {
		return 0, false, err
	}
	return deleted, deleted < BatchSize, nil
}

// deleteProjectStage drains the runner-side tables and removes the project
// row itself.
func (m *Machine) deleteProjectStage(ctx context.Context, projectId string) (int64, bool, error) {
	var total int64
	steps := []func(context.Context, string) (int64, error){
		m.db.DeleteSecretWiringsByProject,
		m.db.DeleteRunnerJobsByProject,
		m.db.DeleteRunnerTokensByProject,
		m.db.DeleteRunnersByProject,
		m.db.DeleteProject,
	}
	for _, step := range steps {
		n, err := step(ctx, projectId)
		if err != nil {
			return total, false, err
		}
		total += n
	}
	return total, true, nil
}
