/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sso_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
)

// InitSSORouters registers the unauthenticated SSO login routes.
func InitSSORouters(e *gin.Engine, h *Handler) {
	group := e.Group(common.FleetRouterRootPath)
	{
		group.GET("/auth/sso/url", h.AuthURL)
		group.POST("/auth/sso/login", h.Login)
	}
}
