/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers wires the HTTP surface of the control plane: the gin
// engine, the auth middleware and every per-domain route group.
package handlers

import (
	"github.com/gin-gonic/gin"

	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/erasure"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	audit_handlers "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/audit-handlers"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	project_handlers "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/project-handlers"
	run_handlers "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/run-handlers"
	runner_handlers "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/runner-handlers"
	sso_handlers "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/sso-handlers"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/ratelimit"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/runnerq"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/scheduler"
)

// InitHttpHandlers builds the gin engine with logging, recovery, the
// unified not-found response and all API route groups. The erasure machine
// registers its scheduler handler as a side effect of construction.
func InitHttpHandlers(dbClient dbclient.Interface, sched *scheduler.Scheduler) (*gin.Engine, error) {
	if dbClient == nil || sched == nil {
		return nil, commonerrors.NewInternalError("db client and scheduler are required")
	}
	engine := gin.New()
	engine.Use(apiutils.Logger(), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		apiutils.AbortWithApiError(c, commonerrors.NewNotFound(c.Request.RequestURI+" not found"))
	})

	auth := authority.NewAuthority(dbClient)
	limiter := ratelimit.NewLimiter(dbClient)
	eraser := erasure.NewMachine(dbClient, sched)
	queue := runnerq.NewService(dbClient)

	sso_handlers.InitSSORouters(engine, sso_handlers.NewHandler(auth))
	project_handlers.InitProjectRouters(engine,
		project_handlers.NewHandler(dbClient, auth, limiter, eraser))
	run_handlers.InitRunRouters(engine,
		run_handlers.NewHandler(dbClient, auth, limiter))
	runner_handlers.InitRunnerRouters(engine,
		runner_handlers.NewHandler(dbClient, auth, limiter, queue))
	audit_handlers.InitAuditRouters(engine,
		audit_handlers.NewHandler(dbClient, auth, limiter))

	return engine, nil
}
