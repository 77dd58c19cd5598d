/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package runner_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/middleware"
)

// InitRunnerRouters registers the runner API routes.
func InitRunnerRouters(e *gin.Engine, h *Handler) {
	group := e.Group(common.FleetRouterRootPath, middleware.Authorize())
	{
		group.POST("/projects/:projectId/runners/heartbeat", h.UpsertHeartbeat)
		group.GET("/projects/:projectId/runners", h.ListRunners)
		group.POST("/projects/:projectId/runner-tokens", h.CreateToken)
		group.GET("/projects/:projectId/runner-tokens", h.ListTokens)
		group.POST("/runner-tokens/:tokenId/revoke", h.RevokeToken)
		group.POST("/projects/:projectId/secret-wiring", h.UpsertSecretWiring)
		group.GET("/projects/:projectId/secret-wiring", h.ListSecretWiring)
		group.POST("/projects/:projectId/runner-jobs", h.EnqueueJob)
		group.POST("/projects/:projectId/runner-jobs/:jobId/finalize", h.FinalizeJob)
	}

	// service-to-service routes guarded by the shared service token
	service := e.Group(common.FleetRouterInternalPath, middleware.ServiceAuthorize())
	{
		service.POST("/runner-tokens/lookup", h.LookupToken)
		service.POST("/runner-tokens/touch", h.TouchToken)
	}

	// runner callback routes guarded by runner tokens
	runner := e.Group(common.FleetRouterInternalPath, middleware.RunnerAuthorize())
	{
		runner.POST("/runner-jobs/claim", h.ClaimJob)
		runner.POST("/runner-jobs/:jobId/result", h.TakeJobResult)
	}
}
