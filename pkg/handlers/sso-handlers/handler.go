/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package sso_handlers serves the unauthenticated SSO login endpoints: the
// provider's authorization URL and the authorization-code exchange.
package sso_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/apiutils"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
)

// LoginRequest exchanges an authorization code for a session token.
type LoginRequest struct {
	Code string `json:"code"`
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

// Handler serves the SSO routes.
type Handler struct {
	auth *authority.Authority
}

// NewHandler creates an SSO Handler.
func NewHandler(auth *authority.Authority) *Handler {
	return &Handler{auth: auth}
}

// AuthURL returns the identity provider's authorization URL.
func (h *Handler) AuthURL(c *gin.Context) { handle(c, h.authURL) }

func (h *Handler) authURL(c *gin.Context) (interface{}, error) {
	url, err := h.auth.AuthURL(c.Request.Context(), c.Query("state"))
	if err != nil {
		return nil, err
	}
	return gin.H{"url": url}, nil
}

// Login redeems an authorization code and returns the bearer token.
func (h *Handler) Login(c *gin.Context) { handle(c, h.login) }

func (h *Handler) login(c *gin.Context) (interface{}, error) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, commonerrors.NewBadRequest(err.Error())
	}
	return h.auth.Login(c.Request.Context(), req.Code)
}
