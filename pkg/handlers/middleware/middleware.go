/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package middleware carries the gin middlewares guarding the public and
// internal route groups.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
)

// Authorize authenticates the caller's bearer identity and stores the
// materialized user on the request context.
func Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := authority.Instance()
		if auth == nil {
			apiutils.AbortWithApiError(c, commonerrors.NewInternalError("authority is not initialized"))
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), c.GetHeader(common.AuthorizationHeader))
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		c.Set(common.UserId, user.Id)
		c.Set(common.UserName, user.Name.String)
		c.Set(common.UserEmail, user.Email.String)
		c.Set(common.UserRole, user.Role)
		c.Next()
	}
}

// RunnerAuthorize authenticates internal runner routes by runner token and
// stores the runner identity on the request context.
func RunnerAuthorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := authority.Instance()
		if auth == nil {
			apiutils.AbortWithApiError(c, commonerrors.NewInternalError("authority is not initialized"))
			return
		}
		token, err := auth.AuthenticateRunner(c.Request.Context(), c.GetHeader(common.RunnerTokenHeader))
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		c.Set(common.RunnerId, token.RunnerId)
		c.Set(common.RunnerProjectId, token.ProjectId)
		c.Next()
	}
}

// ServiceAuthorize authenticates internal service routes by the shared
// service token.
func ServiceAuthorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := authority.Instance()
		if auth == nil {
			apiutils.AbortWithApiError(c, commonerrors.NewInternalError("authority is not initialized"))
			return
		}
		if err := auth.VerifyServiceToken(c.GetHeader(common.ServiceTokenHeader)); err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		c.Next()
	}
}
