/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package run_handlers

// CreateRunRequest creates a run in the running status.
type CreateRunRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Host  string `json:"host"`
}

// SetRunStatusRequest drives a run to a terminal status.
type SetRunStatusRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// EventInput is one event of an appendBatch call.
type EventInput struct {
	Ts       int64                  `json:"ts"`
	Level    string                 `json:"level"`
	Message  string                 `json:"message"`
	Data     map[string]interface{} `json:"data"`
	Redacted bool                   `json:"redacted"`
}

// AppendEventsRequest appends a batch of events to a run.
type AppendEventsRequest struct {
	Events []EventInput `json:"events"`
}

// PageResponse is one page of a descending keyset scan.
type PageResponse struct {
	Items          interface{} `json:"items"`
	ContinueCursor string      `json:"continueCursor,omitempty"`
	IsDone         bool        `json:"isDone"`
}
