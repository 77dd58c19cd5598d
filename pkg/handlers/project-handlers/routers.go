/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package project_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/middleware"
)

// InitProjectRouters registers the project API routes.
func InitProjectRouters(e *gin.Engine, h *Handler) {
	group := e.Group(common.FleetRouterRootPath, middleware.Authorize())
	{
		group.GET("/projects", h.ListProjects)
		group.POST("/projects", h.CreateProject)
		group.GET("/projects/:projectId", h.GetProject)
		group.GET("/projects/:projectId/members", h.ListMembers)
		group.POST("/projects/:projectId/members", h.AddMember)
		group.DELETE("/projects/:projectId/members/:userId", h.RemoveMember)
		group.GET("/projects/:projectId/policy", h.GetPolicy)
		group.PUT("/projects/:projectId/policy", h.SetPolicy)
		group.GET("/projects/:projectId/providers", h.ListProviders)
		group.PUT("/projects/:projectId/providers", h.UpsertProvider)
		group.GET("/projects/:projectId/configs", h.ListConfigs)
		group.PUT("/projects/:projectId/configs", h.UpsertConfig)
		group.POST("/projects/:projectId/delete/start", h.DeleteStart)
		group.POST("/projects/:projectId/delete/confirm", h.DeleteConfirm)
		group.GET("/deletion-jobs/:jobId", h.DeleteStatus)
	}

	serviceGroup := e.Group(common.FleetRouterInternalPath, middleware.ServiceAuthorize())
	{
		serviceGroup.POST("/projects/:projectId/status", h.SetProjectStatus)
	}
}
