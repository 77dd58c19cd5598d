/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package common

const (
	// FleetRouterRootPath is the root path prefix for all public API routes.
	FleetRouterRootPath = "/api/v1"
	// FleetRouterInternalPath is the root path prefix for internal service routes.
	FleetRouterInternalPath = "/internal"

	JsonContentType = "application/json"
)

// Context keys set by the authorize middleware and read by handlers.
const (
	UserId    = "userId"
	UserName  = "userName"
	UserEmail = "userEmail"
	UserRole  = "userRole"

	// RunnerId identifies the runner authenticated by a runner token on
	// internal routes.
	RunnerId = "runnerId"
	// RunnerProjectId is the project the authenticated runner belongs to.
	RunnerProjectId = "runnerProjectId"
)

// Route parameter names.
const (
	ParamProjectId = "projectId"
	ParamRunId     = "runId"
	ParamJobId     = "jobId"
	ParamTokenId   = "tokenId"
	ParamUserId    = "userId"
)

// Roles a user may hold, both globally and per project.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Header carrying the caller's bearer identity.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	RunnerTokenHeader   = "X-Runner-Token"
	ServiceTokenHeader  = "X-Service-Token"
)
