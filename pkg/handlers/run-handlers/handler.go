/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package run_handlers serves runs and run events: creation, status
// transitions, batched event append and keyset-paginated listing.
package run_handlers

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

const (
	// MaxEventsPerBatch bounds one appendBatch call; excess events are
	// silently sliced off.
	MaxEventsPerBatch = 200
	// MaxMessageLen bounds a stored event message. Longer messages are
	// truncated with a trailing ellipsis.
	MaxMessageLen = 4000

	maxRunPageItems   = 200
	maxEventPageItems = 500

	defaultEventLevel = "info"
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

// Handler serves the run routes.
type Handler struct {
	dbClient dbclient.Interface
	auth     *authority.Authority
	limiter  *ratelimit.Limiter
}

// NewHandler creates a run Handler.
func NewHandler(dbClient dbclient.Interface, auth *authority.Authority, limiter *ratelimit.Limiter) *Handler {
	return &Handler{dbClient: dbClient, auth: auth, limiter: limiter}
}

// pageOpts reads the cursor and numItems query parameters.
func pageOpts(c *gin.Context) dbclient.PageOpts {
	numItems, _ := strconv.Atoi(c.Query("numItems"))
	return dbclient.PageOpts{Cursor: c.Query("cursor"), NumItems: numItems}
}

// CreateRun creates a run on the project. Admin only, rate-limited per
// user.
func (h *Handler) CreateRun(c *gin.Context) { handle(c, h.createRun) }

func (h *Handler) createRun(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	project, err := h.auth.RequireProjectAdmin(ctx, userId, c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleRunCreate, userId); err != nil {
		return nil, err
	}
	var req CreateRunRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		return nil, commonerrors.NewConflict("kind must not be empty")
	}
	run := &dbclient.Run{
		Id:                uuid.NewString(),
		ProjectId:         project.Id,
		Kind:              kind,
		Status:            dbclient.RunStatusRunning,
		InitiatedByUserId: userId,
		StartedAt:         timeutil.NowMs(),
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		run.Title = sql.NullString{String: title, Valid: true}
	}
	if host := strings.TrimSpace(req.Host); host != "" {
		run.Host = sql.NullString{String: host, Valid: true}
	}
	if err = h.dbClient.InsertRun(ctx, run); err != nil {
		return nil, err
	}
	return gin.H{"runId": run.Id}, nil
}

// GetRun returns one run the caller can access.
func (h *Handler) GetRun(c *gin.Context) { handle(c, h.getRun) }

func (h *Handler) getRun(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	run, err := h.dbClient.GetRun(ctx, c.Param(common.ParamRunId))
	if err != nil {
		return nil, err
	}
	if _, _, err = h.auth.ResolveProjectAccess(ctx, c.GetString(common.UserId), run.ProjectId); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRunsByProject returns one page of the project's runs, newest first.
func (h *Handler) ListRunsByProject(c *gin.Context) { handle(c, h.listRunsByProject) }

func (h *Handler) listRunsByProject(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	project, _, err := h.auth.ResolveProjectAccess(ctx,
		c.GetString(common.UserId), c.Param(common.ParamProjectId))
	if err != nil {
		return nil, err
	}
	runs, page, err := h.dbClient.SelectRunsPage(ctx, project.Id, pageOpts(c), maxRunPageItems)
	if err != nil {
		return nil, err
	}
	return &PageResponse{Items: runs, ContinueCursor: page.ContinueCursor, IsDone: page.IsDone}, nil
}

// SetRunStatus transitions a run from running to a terminal status, setting
// finishedAt and the sanitized error message.
func (h *Handler) SetRunStatus(c *gin.Context) { handle(c, h.setRunStatus) }

func (h *Handler) setRunStatus(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	run, err := h.dbClient.GetRun(ctx, c.Param(common.ParamRunId))
	if err != nil {
		return nil, err
	}
	if _, _, err = h.auth.ResolveProjectAccess(ctx, c.GetString(common.UserId), run.ProjectId); err != nil {
		return nil, err
	}
	var req SetRunStatusRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	if !dbclient.IsTerminalRunStatus(req.Status) {
		return nil, commonerrors.NewConflict("status must be succeeded, failed or canceled")
	}
	if run.Status != dbclient.RunStatusRunning {
		return nil, commonerrors.NewConflict("run is already finished")
	}
	errorMessage := sql.NullString{}
	if message := strings.TrimSpace(req.ErrorMessage); message != "" {
		errorMessage = sql.NullString{String: sanitize.SanitizeErrorMessage(message), Valid: true}
	}
	finishedAt := sql.NullInt64{Int64: timeutil.NowMs(), Valid: true}
	if err = h.dbClient.UpdateRunStatus(ctx, run.Id, req.Status, finishedAt, errorMessage); err != nil {
		return nil, err
	}
	return gin.H{"runId": run.Id, "status": req.Status}, nil
}

// AppendEvents appends up to 200 events to a run. Admin only, rate-limited
// per user. Empty-after-trim messages are dropped; long messages are
// truncated.
func (h *Handler) AppendEvents(c *gin.Context) { handle(c, h.appendEvents) }

func (h *Handler) appendEvents(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	userId := c.GetString(common.UserId)
	run, err := h.dbClient.GetRun(ctx, c.Param(common.ParamRunId))
	if err != nil {
		return nil, err
	}
	if _, err = h.auth.RequireProjectAdmin(ctx, userId, run.ProjectId); err != nil {
		return nil, err
	}
	if err = h.limiter.Take(ctx, ratelimit.RuleRunEventsAppend, userId); err != nil {
		return nil, err
	}
	var req AppendEventsRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	inputs := req.Events
	if len(inputs) > MaxEventsPerBatch {
		inputs = inputs[:MaxEventsPerBatch]
	}
	now := timeutil.NowMs()
	var events []*dbclient.RunEvent
	for _, in := range inputs {
		message := NormalizeEventMessage(in.Message)
		if message == "" {
			continue
		}
		level := strings.TrimSpace(in.Level)
		if level == "" {
			level = defaultEventLevel
		}
		ts := in.Ts
		if ts == 0 {
			ts = now
		}
		event := &dbclient.RunEvent{
			Id:        uuid.NewString(),
			ProjectId: run.ProjectId,
			RunId:     run.Id,
			Ts:        ts,
			Level:     level,
			Message:   message,
			Redacted:  in.Redacted,
		}
		if len(in.Data) > 0 {
			event.Data = datatypes.JSON(jsonutil.MarshalSilently(in.Data))
		}
		events = append(events, event)
	}
	if len(events) > 0 {
		if err = h.dbClient.InsertRunEvents(ctx, events); err != nil {
			return nil, err
		}
	}
	return gin.H{"appended": len(events)}, nil
}

// PageEventsByRun returns one page of a run's events, newest first.
func (h *Handler) PageEventsByRun(c *gin.Context) { handle(c, h.pageEventsByRun) }

func (h *Handler) pageEventsByRun(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	run, err := h.dbClient.GetRun(ctx, c.Param(common.ParamRunId))
	if err != nil {
		return nil, err
	}
	if _, _, err = h.auth.ResolveProjectAccess(ctx, c.GetString(common.UserId), run.ProjectId); err != nil {
		return nil, err
	}
	events, page, err := h.dbClient.SelectRunEventsPage(ctx, run.Id, pageOpts(c), maxEventPageItems)
	if err != nil {
		return nil, err
	}
	return &PageResponse{Items: events, ContinueCursor: page.ContinueCursor, IsDone: page.IsDone}, nil
}

// ListJobsByRun returns the runner-command queue entries spawned by a run,
// oldest first.
func (h *Handler) ListJobsByRun(c *gin.Context) { handle(c, h.listJobsByRun) }

func (h *Handler) listJobsByRun(c *gin.Context) (interface{}, error) {
	ctx := c.Request.Context()
	run, err := h.dbClient.GetRun(ctx, c.Param(common.ParamRunId))
	if err != nil {
		return nil, err
	}
	if _, _, err = h.auth.ResolveProjectAccess(ctx, c.GetString(common.UserId), run.ProjectId); err != nil {
		return nil, err
	}
	return h.dbClient.SelectRunnerJobsByRun(ctx, run.Id)
}

// NormalizeEventMessage trims an event message and truncates it to the
// stored bound, marking truncation with a trailing ellipsis. Truncation
// never splits a multi-byte rune. Returns the empty string for messages
// that vanish after trimming.
func NormalizeEventMessage(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > MaxMessageLen {
		return sanitize.TruncateUTF8(trimmed, MaxMessageLen-3) + "..."
	}
	return trimmed
}
