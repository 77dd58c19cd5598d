/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package audit_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/middleware"
)

// InitAuditRouters registers the audit-log API routes.
func InitAuditRouters(e *gin.Engine, h *Handler) {
	group := e.Group(common.FleetRouterRootPath, middleware.Authorize())
	{
		group.POST("/audit-logs", h.Append)
		group.GET("/projects/:projectId/audit-logs", h.ListByProjectPage)
	}
}
