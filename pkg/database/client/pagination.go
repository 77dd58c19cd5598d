/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package client

import (
	"encoding/base64"
	"encoding/json"

	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
)

// PageOpts selects one page of a descending keyset scan.
type PageOpts struct {
	Cursor   string
	NumItems int
}

// PageResult carries a page and its continuation state:
// (cursor, numItems) -> (page, continueCursor, isDone).
type PageResult struct {
	ContinueCursor string
	IsDone         bool
}

// pageCursor is the opaque keyset position: the sort value and row id of the
// last item returned. Serialized as base64url JSON.
type pageCursor struct {
	SortValue int64  `json:"s"`
	Id        string `json:"i"`
}

func encodeCursor(sortValue int64, id string) string {
	raw, _ := json.Marshal(pageCursor{SortValue: sortValue, Id: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(cursor string) (*pageCursor, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, commonerrors.NewBadRequest("invalid pagination cursor")
	}
	var c pageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, commonerrors.NewBadRequest("invalid pagination cursor")
	}
	return &c, nil
}

// clampNumItems bounds the requested page size to [1, max].
func clampNumItems(numItems, max int) int {
	if numItems <= 0 || numItems > max {
		return max
	}
	return numItems
}
