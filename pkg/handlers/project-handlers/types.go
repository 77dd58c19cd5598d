/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package project_handlers

// CreateProjectRequest creates a new project owned by the caller.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest adds a user to a project with a role.
type AddMemberRequest struct {
	UserId string `json:"userId"`
	Role   string `json:"role"`
}

// SetPolicyRequest sets the project retention policy. A nil retentionDays
// selects the default.
type SetPolicyRequest struct {
	RetentionDays *float64 `json:"retentionDays"`
}

// PolicyResponse is the effective retention policy of a project.
type PolicyResponse struct {
	ProjectId     string `json:"projectId"`
	RetentionDays int    `json:"retentionDays"`
}

// UpsertConfigRequest writes a project config slot keyed by type.
type UpsertConfigRequest struct {
	ConfigType string                 `json:"configType"`
	Payload    map[string]interface{} `json:"payload"`
}

// SetProjectStatusRequest reports the outcome of the project-init run on
// the internal surface.
type SetProjectStatusRequest struct {
	Status string `json:"status"`
}

// UpsertProviderRequest creates or replaces a provider of a project.
type UpsertProviderRequest struct {
	ProviderType string                 `json:"providerType"`
	Settings     map[string]interface{} `json:"settings"`
}

// DeleteStartResponse carries the one-shot confirmation token. The token is
// returned exactly once and only its hash is stored.
type DeleteStartResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// DeleteConfirmRequest confirms a pending project deletion.
type DeleteConfirmRequest struct {
	Token        string `json:"token"`
	Confirmation string `json:"confirmation"`
}

// DeletionStatusResponse is the live view of a deletion job.
type DeletionStatusResponse struct {
	JobId       string `json:"jobId"`
	ProjectId   string `json:"projectId"`
	Status      string `json:"status"`
	Stage       string `json:"stage"`
	Processed   int64  `json:"processed"`
	UpdatedAt   int64  `json:"updatedAt"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}
