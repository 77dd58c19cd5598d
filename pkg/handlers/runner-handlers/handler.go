/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package runner_handlers serves the runner surface: heartbeats, token
// issuance, secret-wiring reporting, the runner-command queue, and the
// internal routes runners and sibling services call back on.
package runner_handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/ratelimit"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/runnerq"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const (
	// RunnerTokenTTLMs is the fixed 30-day lifetime of an issued token.
	RunnerTokenTTLMs = 30 * 24 * 60 * 60 * 1000

	maxRunnerNameLen      = 128
	maxVersionLen         = 128
	maxSecretNameLen      = 256
	maxHostNameLen        = 256
	maxCapabilitiesBytes  = 16 * 1024
	maxWiringEntriesBatch = 500
)

type handleFunc func(c *gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Handler serves the runner routes.
type Handler struct {
	dbClient dbclient.Interface
	auth     *authority.Authority
	limiter  *ratelimit.Limiter
	queue    *runnerq.Service
}

// NewHandler creates a runner Handler.
func NewHandler(dbClient dbclient.Interface, auth *authority.Authority,
	limiter *ratelimit.Limiter, queue *runnerq.Service) *Handler {
	return &Handler{dbClient: dbClient, auth: auth, limiter: limiter, queue: queue}
}

// UpsertHeartbeat records a runner heartbeat. Admin only, rate-limited.
func (h *Handler) UpsertHeartbeat(c *gin.Context) { handle(c, h.upsertHeartbeat) }

func (h *Handler) upsertHeartbeat(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleRunnerHeartbeat, userId); err != nil {
		return nil, err
	}
	var req HeartbeatRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	runnerName := strings.TrimSpace(req.RunnerName)
	if runnerName == "" {
		return nil, commonerrors.NewConflict("runnerName must not be empty")
	}
	if len(runnerName) > maxRunnerNameLen {
		return nil, commonerrors.NewConflict("runnerName is too long")
	}
	if len(req.Version) > maxVersionLen {
		return nil, commonerrors.NewConflict("version is too long")
	}
	// offline only when the client explicitly reports it
	lastStatus := dbclient.RunnerStatusOnline
	if req.Status == dbclient.RunnerStatusOffline {
		lastStatus = dbclient.RunnerStatusOffline
	}
	now := timeutil.NowMs()
	runner := &dbclient.Runner{
		Id:         uuid.NewString(),
		ProjectId:  project.Id,
		RunnerName: runnerName,
		LastSeenAt: now,
		LastStatus: lastStatus,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if version := strings.TrimSpace(req.Version); version != "" {
		runner.Version = sql.NullString{String: version, Valid: true}
	}
	if len(req.Capabilities) > 0 {
		capabilities := jsonutil.MarshalSilently(req.Capabilities)
		if len(capabilities) > maxCapabilitiesBytes {
			return nil, commonerrors.NewConflict("capabilities exceed size limit")
		}
		runner.Capabilities = datatypes.JSON(capabilities)
	}
	if req.SealedInputAlg != "" {
		if req.SealedInputKeyId == "" || req.SealedInputPubSpkiB64 == "" {
			return nil, commonerrors.NewConflict(
				"sealed-input advertisement requires sealedInputAlg, sealedInputKeyId and sealedInputPubSpkiB64")
		}
		runner.SealedInputAlg = sql.NullString{String: req.SealedInputAlg, Valid: true}
		runner.SealedInputKeyId = sql.NullString{String: req.SealedInputKeyId, Valid: true}
		runner.SealedInputPubSpkiB64 = sql.NullString{String: req.SealedInputPubSpkiB64, Valid: true}
	}
	stored, err := h.dbClient.UpsertRunnerHeartbeat(ctx, runner)
	if err != nil {
		return nil, err
	}
	return gin.H{"runnerId": stored.Id}, nil
}

// ListRunners lists the runners of a project.
func (h *Handler) ListRunners(c *gin.Context) { handle(c, h.listRunners) }

func (h *Handler) listRunners(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return h.dbClient.SelectRunnersByProject(ctx, project.Id)
}

// CreateToken issues a runner token, returning the plaintext exactly once.
// Admin only, rate-limited.
func (h *Handler) CreateToken(c *gin.Context) { handle(c, h.createToken) }

func (h *Handler) createToken(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleRunnerTokenCreate, userId); err != nil {
		return nil, err
	}
	var req CreateTokenRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	runnerName := strings.TrimSpace(req.RunnerName)
	runners, err := h.dbClient.SelectRunnersByProject(ctx, project.Id)
	if err != nil {
		return nil, err
	}
	var runner *dbclient.Runner
	for _, r := range runners {
		if r.RunnerName == runnerName {
			runner = r
			break
		}
	}
	if runner == nil {
		return nil, commonerrors.NewNotFound(fmt.Sprintf("runner %q not found", runnerName))
	}
	plaintext, err := cryptoutil.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	now := timeutil.NowMs()
	token := &dbclient.RunnerToken{
		Id:              uuid.NewString(),
		ProjectId:       project.Id,
		RunnerId:        runner.Id,
		TokenHash:       cryptoutil.Sha256Hex(plaintext),
		CreatedByUserId: userId,
		CreatedAt:       now,
		ExpiresAt:       sql.NullInt64{Int64: now + RunnerTokenTTLMs, Valid: true},
	}
	if err = h.dbClient.InsertRunnerToken(ctx, token); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id, "runnerTokens.create", runner.Id, nil)
	return &CreateTokenResponse{
		TokenId:   token.Id,
		RunnerId:  runner.Id,
		Token:     plaintext,
		ExpiresAt: token.ExpiresAt.Int64,
	}, nil
}

// ListTokens lists the project's runner tokens without their hashes.
func (h *Handler) ListTokens(c *gin.Context) { handle(c, h.listTokens) }

func (h *Handler) listTokens(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	tokens, err := h.dbClient.SelectRunnerTokensByProject(ctx, project.Id)
	if err != nil {
		return nil, err
	}
	infos := make([]*TokenInfo, 0, len(tokens))
	for _, t := range tokens {
		infos = append(infos, tokenInfo(t))
	}
	return infos, nil
}

// RevokeToken revokes a runner token. Admin on the token's project,
// rate-limited.
func (h *Handler) RevokeToken(c *gin.Context) { handle(c, h.revokeToken) }

func (h *Handler) revokeToken(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	token, err := h.dbClient.GetRunnerToken(ctx, c.Param(common.ParamTokenId))
	if err != nil {
		return nil, err
	}
	if _, err = h.auth.RequireProjectAdmin(ctx, userId, token.ProjectId); err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleRunnerTokenRevoke, userId); err != nil {
		return nil, err
	}
	if err = h.dbClient.RevokeRunnerToken(ctx, token.Id, timeutil.NowMs()); err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, token.ProjectId, "runnerTokens.revoke", token.Id, nil)
	return gin.H{"revoked": token.Id}, nil
}

// UpsertSecretWiring replaces the wiring rows reported for one host. Admin
// only, rate-limited; scope and status must come from the closed enums.
func (h *Handler) UpsertSecretWiring(c *gin.Context) { handle(c, h.upsertSecretWiring) }

func (h *Handler) upsertSecretWiring(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleSecretWiringUpsert, userId); err != nil {
		return nil, err
	}
	var req UpsertWiringRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	hostName := strings.TrimSpace(req.HostName)
	if hostName == "" || len(hostName) > maxHostNameLen {
		return nil, commonerrors.NewConflict("hostName must be non-empty and within length bounds")
	}
	if len(req.Entries) > maxWiringEntriesBatch {
		return nil, commonerrors.NewConflict("too many wiring entries in one call")
	}
	now := timeutil.NowMs()
	wirings := make([]*dbclient.SecretWiring, 0, len(req.Entries))
	for _, entry := range req.Entries {
		secretName := strings.TrimSpace(entry.SecretName)
		if secretName == "" || len(secretName) > maxSecretNameLen {
			return nil, commonerrors.NewConflict("secretName must be non-empty and within length bounds")
		}
		if !contains(dbclient.SecretWiringScopes, entry.Scope) {
			return nil, commonerrors.NewConflict(fmt.Sprintf("unrecognized scope %q", entry.Scope))
		}
		if !contains(dbclient.SecretWiringStatuses, entry.Status) {
			return nil, commonerrors.NewConflict(fmt.Sprintf("unrecognized status %q", entry.Status))
		}
		wirings = append(wirings, &dbclient.SecretWiring{
			Id:         uuid.NewString(),
			ProjectId:  project.Id,
			HostName:   hostName,
			SecretName: secretName,
			Scope:      entry.Scope,
			Status:     entry.Status,
			Required:   entry.Required,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err = h.dbClient.UpsertSecretWirings(ctx, wirings); err != nil {
		return nil, err
	}
	return gin.H{"updated": len(wirings)}, nil
}

// ListSecretWiring lists the wiring rows, optionally filtered by host.
func (h *Handler) ListSecretWiring(c *gin.Context) { handle(c, h.listSecretWiring) }

func (h *Handler) listSecretWiring(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	return h.dbClient.SelectSecretWirings(ctx, project.Id, c.Query("host"))
}

// EnqueueJob reserves a runner command. Admin only, rate-limited.
func (h *Handler) EnqueueJob(c *gin.Context) { handle(c, h.enqueueJob) }

func (h *Handler) enqueueJob(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleJobEnqueue, userId); err != nil {
		return nil, err
	}
	var req EnqueueJobRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if strings.TrimSpace(req.Kind) == "" {
		return nil, commonerrors.NewConflict("kind must not be empty")
	}
	result, err := h.queue.Enqueue(ctx, userId, &runnerq.EnqueueInput{
		ProjectId:      project.Id,
		TargetRunnerId: req.TargetRunnerId,
		Kind:           req.Kind,
		PayloadMeta:    req.PayloadMeta,
		WantsSealed:    req.WantsSealed,
	})
	if err != nil {
		return nil, err
	}
	apiutils.RecordAudit(ctx, h.dbClient, userId, project.Id,
		"runnerJobs.enqueue", result.JobId, map[string]interface{}{"kind": req.Kind})
	return result, nil
}

// FinalizeJob attaches the sealed payload to a reserved job. Admin only,
// rate-limited.
func (h *Handler) FinalizeJob(c *gin.Context) { handle(c, h.finalizeJob) }

func (h *Handler) finalizeJob(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleJobFinalize, userId); err != nil {
		return nil, err
	}
	var req FinalizeJobRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	jobId := c.Param(common.ParamJobId)
	err = h.queue.Finalize(ctx, &runnerq.FinalizeInput{
		ProjectId:        project.Id,
		JobId:            jobId,
		SealedInputB64:   req.SealedInputB64,
		SealedInputAlg:   req.SealedInputAlg,
		SealedInputKeyId: req.SealedInputKeyId,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"jobId": jobId, "status": dbclient.RunnerJobStatusQueued}, nil
}

// LookupToken resolves a token hash on the internal service surface.
func (h *Handler) LookupToken(c *gin.Context) { handle(c, h.lookupToken) }

func (h *Handler) lookupToken(c *gin.Context) (interface{}, error) {
	var req LookupTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	token, err := h.dbClient.GetRunnerTokenByHash(c.Request.Context(), req.TokenHash)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, commonerrors.NewNotFound("runner token not found")
	}
	return tokenInfo(token), nil
}

// TouchToken updates a token's lastUsedAt on the internal service surface.
func (h *Handler) TouchToken(c *gin.Context) { handle(c, h.touchToken) }

func (h *Handler) touchToken(c *gin.Context) (interface{}, error) {
	var req TouchTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if err := h.dbClient.TouchRunnerToken(c.Request.Context(), req.TokenId, timeutil.NowMs()); err != nil {
		return nil, err
	}
	return gin.H{"touched": req.TokenId}, nil
}

// ClaimJob hands the authenticated runner its oldest queued job, or a null
// job when the queue is empty.
func (h *Handler) ClaimJob(c *gin.Context) { handle(c, h.claimJob) }

func (h *Handler) claimJob(c *gin.Context) (interface{}, error) {
	job, err := h.queue.Claim(c.Request.Context(), c.GetString(common.RunnerId))
	if err != nil {
		return nil, err
	}
	return gin.H{"job": job}, nil
}

// TakeJobResult stores the authenticated runner's result for its claimed
// job and drives the backing run terminal.
func (h *Handler) TakeJobResult(c *gin.Context) { handle(c, h.takeJobResult) }

func (h *Handler) takeJobResult(c *gin.Context) (interface{}, error) {
	var req JobResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	jobId := c.Param(common.ParamJobId)
	err := h.queue.TakeRunResult(c.Request.Context(), c.GetString(common.RunnerId), &runnerq.ResultInput{
		JobId:        jobId,
		Status:       req.Status,
		ResultJson:   req.ResultJson,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"jobId": jobId}, nil
}

func tokenInfo(t *dbclient.RunnerToken) *TokenInfo {
	info := &TokenInfo{
		TokenId:   t.Id,
		ProjectId: t.ProjectId,
		RunnerId:  t.RunnerId,
		CreatedAt: t.CreatedAt,
	}
	if t.ExpiresAt.Valid {
		info.ExpiresAt = &t.ExpiresAt.Int64
	}
	if t.RevokedAt.Valid {
		info.RevokedAt = &t.RevokedAt.Int64
	}
	if t.LastUsedAt.Valid {
		info.LastUsedAt = &t.LastUsedAt.Int64
	}
	return info
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
