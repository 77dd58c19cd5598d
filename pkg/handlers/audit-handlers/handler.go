/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package audit_handlers serves the audit-log surface: guarded append and
// paginated per-project listing.
package audit_handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/ratelimit"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/sanitize"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/jsonutil"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

const maxAuditPageItems = 200

// AppendRequest appends one audit entry. A project-scoped entry requires
// admin on that project.
type AppendRequest struct {
	ProjectId string                 `json:"projectId"`
	Action    string                 `json:"action"`
	Target    string                 `json:"target"`
	Data      map[string]interface{} `json:"data"`
}

// PageResponse is one page of a descending keyset scan.
type PageResponse struct {
	Items          interface{} `json:"items"`
	ContinueCursor string      `json:"continueCursor,omitempty"`
	IsDone         bool        `json:"isDone"`
}

type handleFunc func(c *gin.Context) (interface{}, error)

func handle(c *gin.Context, fn handleFunc) {
	response, err := fn(c)
	if err != nil {
		apiutils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Handler serves the audit routes.
type Handler struct {
	dbClient dbclient.Interface
	auth     *authority.Authority
	limiter  *ratelimit.Limiter
}

// NewHandler creates an audit Handler.
func NewHandler(dbClient dbclient.Interface, auth *authority.Authority, limiter *ratelimit.Limiter) *Handler {
	return &Handler{dbClient: dbClient, auth: auth, limiter: limiter}
}

// Append appends one audit entry, rate-limited per user.
func (h *Handler) Append(c *gin.Context) { handle(c, h.append) }

func (h *Handler) append(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	if err := h.limiter.Take(ctx, ratelimit.RuleAuditAppend, userId); err != nil {
		return nil, err
	}
	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, commonerrors.NewConflict("action must not be empty")
	}
	if req.ProjectId != "" {
		if _, err := h.auth.RequireProjectAdmin(ctx, userId, req.ProjectId); err != nil {
			return nil, err
		}
	}
	data, err := normalizeAuditData(req.Data)
	if err != nil {
		return nil, err
	}
	entry := &dbclient.AuditLog{
		Id:     uuid.NewString(),
		Ts:     timeutil.NowMs(),
		UserId: userId,
		Action: action,
	}
	if req.ProjectId != "" {
		entry.ProjectId = sql.NullString{String: req.ProjectId, Valid: true}
	}
	if target := strings.TrimSpace(req.Target); target != "" {
		entry.Target = sql.NullString{String: target, Valid: true}
	}
	if len(data) > 0 {
		entry.Data = datatypes.JSON(jsonutil.MarshalSilently(data))
	}
	if err = h.dbClient.InsertAuditLog(ctx, entry); err != nil {
		return nil, err
	}
	return gin.H{"id": entry.Id}, nil
}

// ListByProjectPage returns one page of the project's audit log, newest
// first.
func (h *Handler) ListByProjectPage(c *gin.Context) { handle(c, h.listByProjectPage) }

func (h *Handler) listByProjectPage(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	numItems, _ := strconv.Atoi(c.Query("numItems"))
	opts := dbclient.PageOpts{Cursor: c.Query("cursor"), NumItems: numItems}
	entries, page, err := h.dbClient.SelectAuditLogsPage(ctx, project.Id, opts, maxAuditPageItems)
	if err != nil {
		return nil, err
	}
	return &PageResponse{Items: entries, ContinueCursor: page.ContinueCursor, IsDone: page.IsDone}, nil
}

// normalizeAuditData validates the path-bearing fields of an audit payload:
// "path" must be a repository-relative path, "paths" a bounded string array
// of them. All other fields pass through untouched.
func normalizeAuditData(data map[string]interface{}) (map[string]interface{}, error) {
	if len(data) == 0 {
		return data, nil
	}
	if raw, ok := data["path"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, commonerrors.NewConflict("path must be a string")
		}
		normalized, err := sanitize.ValidateRepoPath(s)
		if err != nil {
			return nil, err
		}
		data["path"] = normalized
	}
	if raw, ok := data["paths"]; ok {
		items, err := sanitize.NormalizeStringArray(raw)
		if err != nil {
			return nil, err
		}
		normalized := make([]string, 0, len(items))
		for _, item := range items {
			p, err := sanitize.ValidateRepoPath(item)
			if err != nil {
				return nil, err
			}
			normalized = append(normalized, p)
		}
		data["paths"] = normalized
	}
	return data, nil
}
