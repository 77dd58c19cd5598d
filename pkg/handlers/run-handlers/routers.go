/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package run_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/middleware"
)

// InitRunRouters registers the run and run-event API routes.
func InitRunRouters(e *gin.Engine, h *Handler) {
	group := e.Group(common.FleetRouterRootPath, middleware.Authorize())
	{
		group.GET("/projects/:projectId/runs", h.ListRunsByProject)
		group.POST("/projects/:projectId/runs", h.CreateRun)
		group.GET("/runs/:runId", h.GetRun)
		group.POST("/runs/:runId/status", h.SetRunStatus)
		group.GET("/runs/:runId/events", h.PageEventsByRun)
		group.POST("/runs/:runId/events", h.AppendEvents)
		group.GET("/runs/:runId/jobs", h.ListJobsByRun)
	}
}
