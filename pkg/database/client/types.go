/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"database/sql"

	"gorm.io/datatypes"
)

// Table names. The gorm naming strategy is singular, so every row struct
// pins its table through TableName() to keep sqlx and gorm aligned.
const (
	TPUser                 = "users"
	TPProject              = "projects"
	TPProjectMember        = "project_members"
	TPProjectPolicy        = "project_policies"
	TPProjectConfig        = "project_configs"
	TPProvider             = "providers"
	TPRun                  = "runs"
	TPRunEvent             = "run_events"
	TPRunner               = "runners"
	TPRunnerToken          = "runner_tokens"
	TPRunnerJob            = "runner_jobs"
	TPSecretWiring         = "secret_wirings"
	TPAuditLog             = "audit_logs"
	TPRateLimitBucket      = "rate_limit_buckets"
	TPProjectDeletionToken = "project_deletion_tokens"
	TPProjectDeletionJob   = "project_deletion_jobs"
	TPRetentionSweep       = "retention_sweeps"
	TPScheduledTask        = "scheduled_tasks"
)

const (
	DESC = "desc"
	ASC  = "asc"
)

// Project lifecycle statuses.
const (
	ProjectStatusCreating = "creating"
	ProjectStatusReady    = "ready"
	ProjectStatusError    = "error"
)

// Run statuses. A run transitions exactly once from running to a terminal
// status.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// IsTerminalRunStatus reports whether a run status admits no further
// transitions.
func IsTerminalRunStatus(status string) bool {
	switch status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// Runner last-seen statuses.
const (
	RunnerStatusOnline  = "online"
	RunnerStatusOffline = "offline"
)

// Secret-wiring scopes and statuses (closed enums; unrecognized values are
// rejected with conflict at the API boundary).
var (
	SecretWiringScopes   = []string{"bootstrap", "updates", "openclaw"}
	SecretWiringStatuses = []string{"configured", "missing", "placeholder", "warn"}
)

// Project-deletion job statuses.
const (
	DeletionJobStatusPending   = "pending"
	DeletionJobStatusRunning   = "running"
	DeletionJobStatusCompleted = "completed"
	DeletionJobStatusFailed    = "failed"
)

// IsTerminalDeletionJobStatus reports whether the job state is sticky.
func IsTerminalDeletionJobStatus(status string) bool {
	return status == DeletionJobStatusCompleted || status == DeletionJobStatusFailed
}

// Runner-job queue statuses.
const (
	RunnerJobStatusAwaitingInput = "awaiting_input"
	RunnerJobStatusQueued        = "queued"
	RunnerJobStatusClaimed       = "claimed"
	RunnerJobStatusCompleted     = "completed"
	RunnerJobStatusFailed        = "failed"
)

// RetentionSweepKey is the key of the singleton retention coordinator row.
const RetentionSweepKey = "default"

// HasActiveLease reports whether a lease expiry is present and still in the
// future. Expired leases are ignored and may be overwritten.
func HasActiveLease(leaseExpiresAt sql.NullInt64, now int64) bool {
	return leaseExpiresAt.Valid && leaseExpiresAt.Int64 > now
}

type User struct {
	Id              string         `db:"id" gorm:"column:id;primaryKey"`
	TokenIdentifier string         `db:"token_identifier" gorm:"column:token_identifier"`
	Name            sql.NullString `db:"name" gorm:"column:name"`
	Email           sql.NullString `db:"email" gorm:"column:email"`
	PictureUrl      sql.NullString `db:"picture_url" gorm:"column:picture_url"`
	Role            string         `db:"role" gorm:"column:role"`
	CreatedAt       int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt       int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string { return TPUser }

type Project struct {
	Id             string         `db:"id" gorm:"column:id;primaryKey"`
	Name           string         `db:"name" gorm:"column:name"`
	Status         string         `db:"status" gorm:"column:status"`
	OwnerUserId    string         `db:"owner_user_id" gorm:"column:owner_user_id"`
	RunnerRepoPath sql.NullString `db:"runner_repo_path" gorm:"column:runner_repo_path"`
	CreatedAt      int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (Project) TableName() string { return TPProject }

type ProjectMember struct {
	Id        string `db:"id" gorm:"column:id;primaryKey"`
	ProjectId string `db:"project_id" gorm:"column:project_id"`
	UserId    string `db:"user_id" gorm:"column:user_id"`
	Role      string `db:"role" gorm:"column:role"`
	CreatedAt int64  `db:"created_at" gorm:"column:created_at"`
}

func (ProjectMember) TableName() string { return TPProjectMember }

type ProjectPolicy struct {
	Id            string `db:"id" gorm:"column:id;primaryKey"`
	ProjectId     string `db:"project_id" gorm:"column:project_id"`
	RetentionDays int    `db:"retention_days" gorm:"column:retention_days"`
	CreatedAt     int64  `db:"created_at" gorm:"column:created_at"`
	UpdatedAt     int64  `db:"updated_at" gorm:"column:updated_at"`
}

func (ProjectPolicy) TableName() string { return TPProjectPolicy }

type ProjectConfig struct {
	Id         string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId  string         `db:"project_id" gorm:"column:project_id"`
	ConfigType string         `db:"config_type" gorm:"column:config_type"`
	Payload    datatypes.JSON `db:"payload" gorm:"column:payload"`
	CreatedAt  int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt  int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (ProjectConfig) TableName() string { return TPProjectConfig }

type Provider struct {
	Id           string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId    string         `db:"project_id" gorm:"column:project_id"`
	ProviderType string         `db:"provider_type" gorm:"column:provider_type"`
	Settings     datatypes.JSON `db:"settings" gorm:"column:settings"`
	CreatedAt    int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt    int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (Provider) TableName() string { return TPProvider }

type Run struct {
	Id                string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId         string         `db:"project_id" gorm:"column:project_id"`
	Kind              string         `db:"kind" gorm:"column:kind"`
	Status            string         `db:"status" gorm:"column:status"`
	Title             sql.NullString `db:"title" gorm:"column:title"`
	Host              sql.NullString `db:"host" gorm:"column:host"`
	InitiatedByUserId string         `db:"initiated_by_user_id" gorm:"column:initiated_by_user_id"`
	StartedAt         int64          `db:"started_at" gorm:"column:started_at"`
	FinishedAt        sql.NullInt64  `db:"finished_at" gorm:"column:finished_at"`
	ErrorMessage      sql.NullString `db:"error_message" gorm:"column:error_message"`
}

func (Run) TableName() string { return TPRun }

type RunEvent struct {
	Id        string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId string         `db:"project_id" gorm:"column:project_id"`
	RunId     string         `db:"run_id" gorm:"column:run_id"`
	Ts        int64          `db:"ts" gorm:"column:ts"`
	Level     string         `db:"level" gorm:"column:level"`
	Message   string         `db:"message" gorm:"column:message"`
	Data      datatypes.JSON `db:"data" gorm:"column:data"`
	Redacted  bool           `db:"redacted" gorm:"column:redacted"`
}

func (RunEvent) TableName() string { return TPRunEvent }

type Runner struct {
	Id                    string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId             string         `db:"project_id" gorm:"column:project_id"`
	RunnerName            string         `db:"runner_name" gorm:"column:runner_name"`
	LastSeenAt            int64          `db:"last_seen_at" gorm:"column:last_seen_at"`
	LastStatus            string         `db:"last_status" gorm:"column:last_status"`
	Version               sql.NullString `db:"version" gorm:"column:version"`
	Capabilities          datatypes.JSON `db:"capabilities" gorm:"column:capabilities"`
	SealedInputAlg        sql.NullString `db:"sealed_input_alg" gorm:"column:sealed_input_alg"`
	SealedInputKeyId      sql.NullString `db:"sealed_input_key_id" gorm:"column:sealed_input_key_id"`
	SealedInputPubSpkiB64 sql.NullString `db:"sealed_input_pub_spki_b64" gorm:"column:sealed_input_pub_spki_b64"`
	CreatedAt             int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt             int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (Runner) TableName() string { return TPRunner }

type RunnerToken struct {
	Id              string        `db:"id" gorm:"column:id;primaryKey"`
	ProjectId       string        `db:"project_id" gorm:"column:project_id"`
	RunnerId        string        `db:"runner_id" gorm:"column:runner_id"`
	TokenHash       string        `db:"token_hash" gorm:"column:token_hash"`
	CreatedByUserId string        `db:"created_by_user_id" gorm:"column:created_by_user_id"`
	CreatedAt       int64         `db:"created_at" gorm:"column:created_at"`
	ExpiresAt       sql.NullInt64 `db:"expires_at" gorm:"column:expires_at"`
	RevokedAt       sql.NullInt64 `db:"revoked_at" gorm:"column:revoked_at"`
	LastUsedAt      sql.NullInt64 `db:"last_used_at" gorm:"column:last_used_at"`
}

func (RunnerToken) TableName() string { return TPRunnerToken }

// IsValid reports whether the token is usable at the given time: not
// revoked, and either unexpiring or not yet expired.
func (t *RunnerToken) IsValid(now int64) bool {
	if t.RevokedAt.Valid {
		return false
	}
	return !t.ExpiresAt.Valid || t.ExpiresAt.Int64 > now
}

type RunnerJob struct {
	Id                string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId         string         `db:"project_id" gorm:"column:project_id"`
	RunId             string         `db:"run_id" gorm:"column:run_id"`
	TargetRunnerId    string         `db:"target_runner_id" gorm:"column:target_runner_id"`
	Kind              string         `db:"kind" gorm:"column:kind"`
	Status            string         `db:"status" gorm:"column:status"`
	PayloadMeta       datatypes.JSON `db:"payload_meta" gorm:"column:payload_meta"`
	SealedInputB64    sql.NullString `db:"sealed_input_b64" gorm:"column:sealed_input_b64"`
	SealedInputAlg    sql.NullString `db:"sealed_input_alg" gorm:"column:sealed_input_alg"`
	SealedInputKeyId  sql.NullString `db:"sealed_input_key_id" gorm:"column:sealed_input_key_id"`
	ResultJson        datatypes.JSON `db:"result_json" gorm:"column:result_json"`
	ClaimedByRunnerId sql.NullString `db:"claimed_by_runner_id" gorm:"column:claimed_by_runner_id"`
	ClaimedAt         sql.NullInt64  `db:"claimed_at" gorm:"column:claimed_at"`
	CreatedAt         int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt         int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (RunnerJob) TableName() string { return TPRunnerJob }

type SecretWiring struct {
	Id             string        `db:"id" gorm:"column:id;primaryKey"`
	ProjectId      string        `db:"project_id" gorm:"column:project_id"`
	HostName       string        `db:"host_name" gorm:"column:host_name"`
	SecretName     string        `db:"secret_name" gorm:"column:secret_name"`
	Scope          string        `db:"scope" gorm:"column:scope"`
	Status         string        `db:"status" gorm:"column:status"`
	Required       bool          `db:"required" gorm:"column:required"`
	LastVerifiedAt sql.NullInt64 `db:"last_verified_at" gorm:"column:last_verified_at"`
	CreatedAt      int64         `db:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64         `db:"updated_at" gorm:"column:updated_at"`
}

func (SecretWiring) TableName() string { return TPSecretWiring }

type AuditLog struct {
	Id        string         `db:"id" gorm:"column:id;primaryKey"`
	Ts        int64          `db:"ts" gorm:"column:ts"`
	UserId    string         `db:"user_id" gorm:"column:user_id"`
	ProjectId sql.NullString `db:"project_id" gorm:"column:project_id"`
	Action    string         `db:"action" gorm:"column:action"`
	Target    sql.NullString `db:"target" gorm:"column:target"`
	Data      datatypes.JSON `db:"data" gorm:"column:data"`
}

func (AuditLog) TableName() string { return TPAuditLog }

type RateLimitBucket struct {
	Key         string `db:"key" gorm:"column:key;primaryKey"`
	WindowStart int64  `db:"window_start" gorm:"column:window_start"`
	Count       int    `db:"count" gorm:"column:count"`
}

func (RateLimitBucket) TableName() string { return TPRateLimitBucket }

type ProjectDeletionToken struct {
	Id              string `db:"id" gorm:"column:id;primaryKey"`
	ProjectId       string `db:"project_id" gorm:"column:project_id"`
	TokenHash       string `db:"token_hash" gorm:"column:token_hash"`
	CreatedByUserId string `db:"created_by_user_id" gorm:"column:created_by_user_id"`
	CreatedAt       int64  `db:"created_at" gorm:"column:created_at"`
	ExpiresAt       int64  `db:"expires_at" gorm:"column:expires_at"`
}

func (ProjectDeletionToken) TableName() string { return TPProjectDeletionToken }

type ProjectDeletionJob struct {
	Id             string         `db:"id" gorm:"column:id;primaryKey"`
	ProjectId      string         `db:"project_id" gorm:"column:project_id"`
	Status         string         `db:"status" gorm:"column:status"`
	Stage          string         `db:"stage" gorm:"column:stage"`
	Processed      int64          `db:"processed" gorm:"column:processed"`
	CreatedAt      int64          `db:"created_at" gorm:"column:created_at"`
	UpdatedAt      int64          `db:"updated_at" gorm:"column:updated_at"`
	CompletedAt    sql.NullInt64  `db:"completed_at" gorm:"column:completed_at"`
	LastError      sql.NullString `db:"last_error" gorm:"column:last_error"`
	LeaseId        sql.NullString `db:"lease_id" gorm:"column:lease_id"`
	LeaseExpiresAt sql.NullInt64  `db:"lease_expires_at" gorm:"column:lease_expires_at"`
}

func (ProjectDeletionJob) TableName() string { return TPProjectDeletionJob }

type RetentionSweep struct {
	Key            string         `db:"key" gorm:"column:key;primaryKey"`
	Cursor         sql.NullString `db:"cursor" gorm:"column:cursor"`
	LeaseId        sql.NullString `db:"lease_id" gorm:"column:lease_id"`
	LeaseExpiresAt sql.NullInt64  `db:"lease_expires_at" gorm:"column:lease_expires_at"`
	UpdatedAt      int64          `db:"updated_at" gorm:"column:updated_at"`
}

func (RetentionSweep) TableName() string { return TPRetentionSweep }

type ScheduledTask struct {
	Id        string         `db:"id" gorm:"column:id;primaryKey"`
	FnName    string         `db:"fn_name" gorm:"column:fn_name"`
	Payload   datatypes.JSON `db:"payload" gorm:"column:payload"`
	DueAt     int64          `db:"due_at" gorm:"column:due_at"`
	CreatedAt int64          `db:"created_at" gorm:"column:created_at"`
}

func (ScheduledTask) TableName() string { return TPScheduledTask }
