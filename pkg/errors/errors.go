/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"net/http"
)

// Error codes of the control-plane error taxonomy. Anything outside this
// set is a programming error and surfaces as ErrCodeInternal.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeInternal     = "internal"
)

// ApiError is the unified error response of the API server, including the
// HTTP code, the taxonomy code, the message and optional structured data.
type ApiError struct {
	HttpCode     int                    `json:"-"`
	ErrorCode    string                 `json:"errorCode"`
	ErrorMessage string                 `json:"errorMessage"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// Error returns the error message string.
func (e *ApiError) Error() string {
	return e.ErrorMessage
}

// WithData attaches structured data to the error and returns it for chaining.
func (e *ApiError) WithData(key string, value interface{}) *ApiError {
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}
	e.Data[key] = value
	return e
}

// NewUnauthorized returns an unauthorized (401) error.
func NewUnauthorized(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusUnauthorized, ErrorCode: ErrCodeUnauthorized, ErrorMessage: message}
}

// NewForbidden returns a forbidden (403) error.
func NewForbidden(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusForbidden, ErrorCode: ErrCodeForbidden, ErrorMessage: message}
}

// NewNotFound returns a not_found (404) error.
func NewNotFound(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusNotFound, ErrorCode: ErrCodeNotFound, ErrorMessage: message}
}

// NewConflict returns a conflict (409) error for invariant or state-machine
// violations.
func NewConflict(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusConflict, ErrorCode: ErrCodeConflict, ErrorMessage: message}
}

// NewTooManyRequests returns a rate_limited (429) error carrying the
// wall-clock millisecond timestamp at which the caller may retry.
func NewTooManyRequests(message string, retryAt int64) *ApiError {
	e := &ApiError{HttpCode: http.StatusTooManyRequests, ErrorCode: ErrCodeRateLimited, ErrorMessage: message}
	return e.WithData("retryAt", retryAt)
}

// NewBadRequest returns a bad_request (400) error.
func NewBadRequest(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusBadRequest, ErrorCode: ErrCodeBadRequest, ErrorMessage: message}
}

// NewInternalError returns a generic internal (500) error.
func NewInternalError(message string) *ApiError {
	return &ApiError{HttpCode: http.StatusInternalServerError, ErrorCode: ErrCodeInternal, ErrorMessage: message}
}

// AsApiError converts any error into an ApiError, wrapping unknown errors as
// internal failures so programming errors never leak raw messages.
func AsApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError(err.Error())
}

func hasCode(err error, code string) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == code
	}
	return false
}

// IsNotFound reports whether err carries the not_found code.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsConflict reports whether err carries the conflict code.
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsForbidden reports whether err carries the forbidden code.
func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

// IsBadRequest reports whether err carries the bad_request code.
func IsBadRequest(err error) bool {
	return hasCode(err, ErrCodeBadRequest)
}

// IsRateLimited reports whether err carries the rate_limited code.
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsUnauthorized reports whether err carries the unauthorized code.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}
