/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package project_handlers serves the project surface: CRUD, membership,
// retention policy, providers and the deletion protocol.
package project_handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/erasure"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/ratelimit"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/retention"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/sanitize"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const maxProjectNameLen = 128

type handleFunc func(c *gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Handler serves the project routes.
type Handler struct {
	dbClient dbclient.Interface
	auth     *authority.Authority
	limiter  *ratelimit.Limiter
	eraser   *erasure.Machine
}

// NewHandler creates a project Handler.
func NewHandler(dbClient dbclient.Interface, auth *authority.Authority,
	limiter *ratelimit.Limiter, eraser *erasure.Machine) *Handler {
	return &Handler{dbClient: dbClient, auth: auth, limiter: limiter, eraser: eraser}
}

// ListProjects returns the projects the caller owns or is a member of.
func (h *Handler) ListProjects(c *gin.Context) { handle(c, h.listProjects) }

func (h *Handler) listProjects(c *gin.Context) (interface{}, error) {
	return h.dbClient.SelectProjectsForUser(c.Request.Context(), c.GetString(common.UserId))
}

// CreateProject creates a project owned by the caller, starting in the
// creating status.
func (h *Handler) CreateProject(c *gin.Context) { handle(c, h.createProject) }

func (h *Handler) createProject(c *gin.Context) (interface{}, error) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, commonerrors.NewConflict("project name must not be empty")
	}
	if len(name) > maxProjectNameLen {
		return nil, commonerrors.NewConflict("project name is too long")
	}
	userId := c.GetString(common.UserId)
	now := timeutil.NowMs()
	project := &dbclient.Project{
		Id:          uuid.NewString(),
		Name:        name,
		Status:      dbclient.ProjectStatusCreating,
		OwnerUserId: userId,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.dbClient.InsertProject(c.Request.Context(), project); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(c.Request.Context(), h.dbClient, userId, project.Id,
		"projects.create", name, nil)
	return project, nil
}

// GetProject returns one project the caller can access.
func (h *Handler) GetProject(c *gin.Context) { handle(c, h.getProject) }

func (h *Handler) getProject(c *gin.Context) (interface{}, error) {
	project, _, err := h.auth.ResolveProjectAccess(c.Request.Context(),
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return project, nil
}

// AddMember adds a user to the project. Admin only.
func (h *Handler) AddMember(c *gin.Context) { handle(c, h.addMember) }

func (h *Handler) addMember(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	var req AddMemberRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if req.Role != common.RoleAdmin && req.Role != common.RoleViewer {
		return nil, commonerrors.NewConflict("role must be admin or viewer")
	}
	if _, err = h.dbClient.GetUserById(ctx, req.UserId); err != nil {
		return nil, err
	}
	member := &dbclient.ProjectMember{
		Id:        uuid.NewString(),
		ProjectId: project.Id,
		UserId:    req.UserId,
		Role:      req.Role,
		CreatedAt: timeutil.NowMs(),
	}
	if err = h.dbClient.InsertProjectMember(ctx, member); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id,
		"members.add", req.UserId, map[string]interface{}{"role": req.Role})
	return member, nil
}

// RemoveMember removes a user from the project. Admin only.
func (h *Handler) RemoveMember(c *gin.Context) { handle(c, h.removeMember) }

func (h *Handler) removeMember(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	memberUserId := c.Param(common.ParamUserId)
	deleted, err := h.dbClient.DeleteProjectMember(ctx, project.Id, memberUserId)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, commonerrors.NewNotFound("member not found")
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id, "members.remove", memberUserId, nil)
	return gin.H{"removed": memberUserId}, nil
}

// ListMembers returns the project's membership rows.
func (h *Handler) ListMembers(c *gin.Context) { handle(c, h.listMembers) }

func (h *Handler) listMembers(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return h.dbClient.SelectProjectMembers(ctx, project.Id)
}

// GetPolicy returns the effective retention policy, with the default when
// none was ever set.
func (h *Handler) GetPolicy(c *gin.Context) { handle(c, h.getPolicy) }

func (h *Handler) getPolicy(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	policy, err := h.dbClient.GetProjectPolicy(ctx, project.Id)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return &PolicyResponse{ProjectId: project.Id, RetentionDays: retention.DefaultRetentionDays}, nil
	}
	return &PolicyResponse{ProjectId: project.Id, RetentionDays: policy.RetentionDays}, nil
}

// SetPolicy sets the retention policy. Admin only; the retention period is
// clamped into [1, 365] days.
func (h *Handler) SetPolicy(c *gin.Context) { handle(c, h.setPolicy) }

func (h *Handler) setPolicy(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	var req SetPolicyRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	days := retention.NormalizeRetentionDays(req.RetentionDays)
	now := timeutil.NowMs()
	policy := &dbclient.ProjectPolicy{
		Id:            uuid.NewString(),
		ProjectId:     project.Id,
		RetentionDays: days,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = h.dbClient.UpsertProjectPolicy(ctx, policy); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id,
		"policy.set", "", map[string]interface{}{"retentionDays": days})
	return &PolicyResponse{ProjectId: project.Id, RetentionDays: days}, nil
}

// ListProviders returns the providers configured on the project.
func (h *Handler) ListProviders(c *gin.Context) { handle(c, h.listProviders) }

func (h *Handler) listProviders(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return h.dbClient.SelectProviders(ctx, project.Id)
}

// UpsertProvider creates or replaces a provider. Admin only.
func (h *Handler) UpsertProvider(c *gin.Context) { handle(c, h.upsertProvider) }

func (h *Handler) upsertProvider(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	var req UpsertProviderRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	providerType := strings.TrimSpace(req.ProviderType)
	if providerType == "" {
		return nil, commonerrors.NewConflict("providerType must not be empty")
	}
	now := timeutil.NowMs()
	provider := &dbclient.Provider{
		Id:           uuid.NewString(),
		ProjectId:    project.Id,
		ProviderType: providerType,
		Settings:     datatypes.JSON(jsonutil.MarshalSilently(req.Settings)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = h.dbClient.UpsertProvider(ctx, provider); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id, "providers.upsert", providerType, nil)
	return provider, nil
}

// ListConfigs returns the project's config slots.
func (h *Handler) ListConfigs(c *gin.Context) { handle(c, h.listConfigs) }

func (h *Handler) listConfigs(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return h.dbClient.SelectProjectConfigs(ctx, project.Id)
}

// UpsertConfig writes a config slot keyed by (project, configType). Admin
// only; the payload must not carry secret-like keys.
func (h *Handler) UpsertConfig(c *gin.Context) { handle(c, h.upsertConfig) }

func (h *Handler) upsertConfig(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	var req UpsertConfigRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	configType := strings.TrimSpace(req.ConfigType)
	if configType == "" {
		return nil, commonerrors.NewConflict("configType must not be empty")
	}
	if err = sanitize.AssertNoSecretLikeKeys(req.Payload, "payload"); err != nil {
		return nil, err
	}
	now := timeutil.NowMs()
	config := &dbclient.ProjectConfig{
		Id:         uuid.NewString(),
		ProjectId:  project.Id,
		ConfigType: configType,
		Payload:    datatypes.JSON(jsonutil.MarshalSilently(req.Payload)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = h.dbClient.UpsertProjectConfig(ctx, config); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id, "configs.upsert", configType, nil)
	return config, nil
}

// SetProjectStatus records the outcome of the project-init run on the
// internal surface, moving the project out of creating.
func (h *Handler) SetProjectStatus(c *gin.Context) { handle(c, h.setProjectStatus) }

func (h *Handler) setProjectStatus(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, err := h.dbClient.GetProject(ctx, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	var req SetProjectStatusRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if req.Status != dbclient.ProjectStatusReady && req.Status != dbclient.ProjectStatusError {
		return nil, commonerrors.NewConflict("status must be ready or error")
	}
	if err = h.dbClient.UpdateProjectStatus(ctx, project.Id, req.Status, timeutil.NowMs()); err != nil {
		return nil, err
	}
	return gin.H{"projectId": project.Id, "status": req.Status}, nil
}

// DeleteStart issues the one-shot deletion confirmation token. Admin only,
// rate-limited.
func (h *Handler) DeleteStart(c *gin.Context) { handle(c, h.deleteStart) }

func (h *Handler) deleteStart(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleDeleteStart, userId); err != nil {
		return nil, err
	}
	token, expiresAt, err := h.eraser.StartDeletion(ctx, project.Id, userId)
	if err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id, "projects.deleteStart", project.Name, nil)
	return &DeleteStartResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// DeleteConfirm validates the confirmation phrase and token and starts the
// erasure job. Admin only, rate-limited.
func (h *Handler) DeleteConfirm(c *gin.Context) { handle(c, h.deleteConfirm) }

func (h *Handler) deleteConfirm(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleDeleteConfirm, userId); err != nil {
		return nil, err
	}
	var req DeleteConfirmRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	jobId, err := h.eraser.ConfirmDeletion(ctx, project, req.Token, req.Confirmation)
	if err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id,
		"projects.deleteConfirm", project.Name, map[string]interface{}{"jobId": jobId})
	return gin.H{"jobId": jobId}, nil
}

// DeleteStatus returns the live state of a deletion job to any project
// member.
func (h *Handler) DeleteStatus(c *gin.Context) { handle(c, h.deleteStatus) }

func (h *Handler) deleteStatus(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	job, err := h.dbClient.GetDeletionJob(ctx, c.Param(common.ParamJobId))
	if err != nil {
		return nil, err
	}
	// membership check runs against the project row, which is gone once the
	// job completes; a finished job stays visible to authenticated callers
	if _, _, err = h.auth.ResolveProjectAccess(ctx, c.GetString(common.UserId), job.ProjectId); err != nil {
		if !commonerrors.IsNotFound(err) {
			return nil, err
		}
	}
	resp := &DeletionStatusResponse{
		JobId:     job.Id,
		ProjectId: job.ProjectId,
		Status:    job.Status,
		Stage:     job.Stage,
		Processed: job.Processed,
		UpdatedAt: job.UpdatedAt,
		LastError: job.LastError.String,
	}
	if job.CompletedAt.Valid {
		resp.CompletedAt = &job.CompletedAt.Int64
	}
	return resp, nil
}
