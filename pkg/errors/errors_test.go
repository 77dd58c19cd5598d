/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"gotest.tools/assert"
)

func TestErrorCodesMapToHttpStatus(t *testing.T) {
	cases := []struct {
		err  *ApiError
		code string
		http int
	}{
		{NewUnauthorized("no identity"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("viewer cannot write"), ErrCodeForbidden, http.StatusForbidden},
		{NewNotFound("project not found"), ErrCodeNotFound, http.StatusNotFound},
		{NewConflict("deletion already running"), ErrCodeConflict, http.StatusConflict},
		{NewTooManyRequests("rate limited", 1000), ErrCodeRateLimited, http.StatusTooManyRequests},
		{NewBadRequest("name is required"), ErrCodeBadRequest, http.StatusBadRequest},
		{NewInternalError("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.err.ErrorCode, tc.code)
		assert.Equal(t, tc.err.HttpCode, tc.http)
	}
}

func TestTooManyRequestsCarriesRetryAt(t *testing.T) {
	err := NewTooManyRequests("rate limited", 1756000000000)
	retryAt, ok := err.Data["retryAt"].(int64)
	assert.Assert(t, ok)
	assert.Equal(t, retryAt, int64(1756000000000))
}

func TestAsApiErrorWrapsUnknownErrors(t *testing.T) {
	err := AsApiError(fmt.Errorf("nil pointer somewhere"))
	assert.Equal(t, err.ErrorCode, ErrCodeInternal)
	assert.Equal(t, err.HttpCode, http.StatusInternalServerError)
}

func TestAsApiErrorKeepsTypedErrors(t *testing.T) {
	src := NewConflict("wrong confirmation")
	err := AsApiError(fmt.Errorf("wrapped: %w", src))
	assert.Equal(t, err.ErrorCode, ErrCodeConflict)
	assert.Equal(t, err.ErrorMessage, "wrong confirmation")
}

func TestCodePredicates(t *testing.T) {
	assert.Assert(t, IsNotFound(NewNotFound("x")))
	assert.Assert(t, IsConflict(NewConflict("x")))
	assert.Assert(t, IsForbidden(NewForbidden("x")))
	assert.Assert(t, IsRateLimited(NewTooManyRequests("x", 0)))
	assert.Assert(t, IsUnauthorized(NewUnauthorized("x")))
	assert.Assert(t, !IsConflict(NewNotFound("x")))
	assert.Assert(t, !IsNotFound(fmt.Errorf("plain")))
}
