/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

// AbortWithApiError terminates the request with the unified error envelope
// {errorCode, errorMessage, data?}. Unknown errors are wrapped as internal
// failures and logged; typed errors pass through with their HTTP code.
func AbortWithApiError(c *gin.Context, err error) {
	apiErr := commonerrors.AsApiError(err)
	if apiErr.HttpCode >= http.StatusInternalServerError {
		klog.ErrorS(err, "request failed", "method", c.Request.Method, "path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(apiErr.HttpCode, apiErr)
}
