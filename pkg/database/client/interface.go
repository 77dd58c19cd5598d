/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"context"
	"database/sql"

	"gorm.io/datatypes"
)

// Interface is the database surface consumed by the handler and machine
// layers. Tests substitute fakes for it; production wires the singleton
// Client.
type Interface interface {
	// users
	InsertUser(ctx context.Context, user *User) error
	GetUserByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*User, error)
	GetUserById(ctx context.Context, userId string) (*User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUserProfile(ctx context.Context, userId string, name, email, pictureUrl sql.NullString, updatedAt int64) error

	// projects and membership
	InsertProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, projectId string) (*Project, error)
	SelectProjectsForUser(ctx context.Context, userId string) ([]*Project, error)
	UpdateProjectStatus(ctx context.Context, projectId, status string, updatedAt int64) error
	DeleteProject(ctx context.Context, projectId string) (int64, error)
	InsertProjectMember(ctx context.Context, member *ProjectMember) error
	GetProjectMember(ctx context.Context, projectId, userId string) (*ProjectMember, error)
	SelectProjectMembers(ctx context.Context, projectId string) ([]*ProjectMember, error)
	DeleteProjectMember(ctx context.Context, projectId, userId string) (int64, error)
	DeleteProjectMembersBatch(ctx context.Context, projectId string, limit int) (int64, error)

	// policies, configs, providers
	GetProjectPolicy(ctx context.Context, projectId string) (*ProjectPolicy, error)
	UpsertProjectPolicy(ctx context.Context, policy *ProjectPolicy) error
	SelectProjectPoliciesPage(ctx context.Context, afterId string, limit int) ([]*ProjectPolicy, error)
	DeleteProjectPoliciesBatch(ctx context.Context, projectId string, limit int) (int64, error)
	UpsertProjectConfig(ctx context.Context, config *ProjectConfig) error
	SelectProjectConfigs(ctx context.Context, projectId string) ([]*ProjectConfig, error)
	DeleteProjectConfigsBatch(ctx context.Context, projectId string, limit int) (int64, error)
	UpsertProvider(ctx context.Context, provider *Provider) error
	SelectProviders(ctx context.Context, projectId string) ([]*Provider, error)
	DeleteProvidersBatch(ctx context.Context, projectId string, limit int) (int64, error)

	// runs and run events
	InsertRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runId string) (*Run, error)
	SelectRunsPage(ctx context.Context, projectId string, opts PageOpts, maxItems int) ([]*Run, *PageResult, error)
	UpdateRunStatus(ctx context.Context, runId, status string, finishedAt sql.NullInt64, errorMessage sql.NullString) error
	SelectTerminalRunsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, runId string) (int64, error)
	DeleteRunsBatch(ctx context.Context, projectId string, limit int) (int64, error)
	InsertRunEvents(ctx context.Context, events []*RunEvent) error
	SelectRunEventsPage(ctx context.Context, runId string, opts PageOpts, maxItems int) ([]*RunEvent, *PageResult, error)
	DeleteRunEventsBatchByProject(ctx context.Context, projectId string, limit int) (int64, error)
	DeleteRunEventsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) (int64, error)
	DeleteRunEventsByRun(ctx context.Context, runId string, limit int) (int64, error)

	// runners, tokens, jobs
	UpsertRunnerHeartbeat(ctx context.Context, runner *Runner) (*Runner, error)
	GetRunner(ctx context.Context, runnerId string) (*Runner, error)
	SelectRunnersByProject(ctx context.Context, projectId string) ([]*Runner, error)
	DeleteRunnersByProject(ctx context.Context, projectId string) (int64, error)
	InsertRunnerToken(ctx context.Context, token *RunnerToken) error
	GetRunnerToken(ctx context.Context, tokenId string) (*RunnerToken, error)
	GetRunnerTokenByHash(ctx context.Context, tokenHash string) (*RunnerToken, error)
	SelectRunnerTokensByProject(ctx context.Context, projectId string) ([]*RunnerToken, error)
	RevokeRunnerToken(ctx context.Context, tokenId string, revokedAt int64) error
	TouchRunnerToken(ctx context.Context, tokenId string, lastUsedAt int64) error
	DeleteRunnerTokensByProject(ctx context.Context, projectId string) (int64, error)
	InsertRunnerJob(ctx context.Context, job *RunnerJob) error
	GetRunnerJob(ctx context.Context, jobId string) (*RunnerJob, error)
	SelectRunnerJobsByRun(ctx context.Context, runId string) ([]*RunnerJob, error)
	FinalizeRunnerJobInput(ctx context.Context, jobId string, sealedB64, alg, keyId string, updatedAt int64) error
	ClaimNextRunnerJob(ctx context.Context, runnerId string, now int64) (*RunnerJob, error)
	CompleteRunnerJob(ctx context.Context, jobId, runnerId, status string, result datatypes.JSON, updatedAt int64) error
	DeleteRunnerJobsByProject(ctx context.Context, projectId string) (int64, error)

	// secret wiring
	UpsertSecretWirings(ctx context.Context, wirings []*SecretWiring) error
	SelectSecretWirings(ctx context.Context, projectId, hostName string) ([]*SecretWiring, error)
	DeleteSecretWiringsByProject(ctx context.Context, projectId string) (int64, error)

	// audit
	InsertAuditLog(ctx context.Context, entry *AuditLog) error
	SelectAuditLogsPage(ctx context.Context, projectId string, opts PageOpts, maxItems int) ([]*AuditLog, *PageResult, error)
	DeleteAuditLogsBatchByProject(ctx context.Context, projectId string, limit int) (int64, error)
	DeleteAuditLogsOlderThan(ctx context.Context, projectId string, cutoffMs int64, limit int) (int64, error)

	// rate limiting
	TakeRateLimitToken(ctx context.Context, key string, limit int, windowMs, now int64) (bool, int64, error)

	// project erasure
	InsertProjectDeletionToken(ctx context.Context, token *ProjectDeletionToken) error
	SelectDeletionTokensByProject(ctx context.Context, projectId string) ([]*ProjectDeletionToken, error)
	DeleteDeletionTokensByProject(ctx context.Context, projectId string) (int64, error)
	DeleteDeletionTokensBatch(ctx context.Context, projectId string, limit int) (int64, error)
	InsertProjectDeletionJob(ctx context.Context, job *ProjectDeletionJob) error
	GetDeletionJob(ctx context.Context, jobId string) (*ProjectDeletionJob, error)
	GetActiveDeletionJobByProject(ctx context.Context, projectId string) (*ProjectDeletionJob, error)
	AcquireDeletionJobLease(ctx context.Context, jobId, leaseId string, now, leaseMs int64) (*ProjectDeletionJob, bool, error)
	UpdateDeletionJobProgress(ctx context.Context, jobId, leaseId, stage string, processed, updatedAt int64) error
	CompleteDeletionJob(ctx context.Context, jobId, leaseId, status string, lastError sql.NullString, now int64) error
	ReleaseDeletionJobLease(ctx context.Context, jobId, leaseId string, now int64) error

	// retention sweeper coordination
	GetOrInitRetentionSweep(ctx context.Context, now int64) (*RetentionSweep, error)
	AcquireRetentionLease(ctx context.Context, leaseId string, now, leaseMs int64) (*RetentionSweep, bool, error)
	UpdateRetentionCursor(ctx context.Context, leaseId string, cursor sql.NullString, now int64) error
	ReleaseRetentionLease(ctx context.Context, leaseId string, now int64) error

	// durable scheduler
	InsertScheduledTask(ctx context.Context, task *ScheduledTask) error
	ClaimDueScheduledTasks(ctx context.Context, now, leaseMs int64, limit int) ([]*ScheduledTask, error)
	DeleteScheduledTask(ctx context.Context, taskId string) error
}

var _ Interface = (*Client)(nil)
