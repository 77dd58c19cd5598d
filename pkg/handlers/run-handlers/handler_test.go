/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package run_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/ratelimit"
)

// fakeStore is an in-memory stand-in for the database client. Only the
// methods the tested handlers touch are implemented; anything else panics
// through the embedded nil interface.
type fakeStore struct {
	dbclient.Interface

	project *dbclient.Project
	member  *dbclient.ProjectMember
	run     *dbclient.Run

	insertedRuns   []*dbclient.Run
	insertedEvents []*dbclient.RunEvent
}

func (f *fakeStore) GetProject(_ context.Context, projectId string) (*dbclient.Project, error) {
	if f.project == nil || f.project.Id != projectId {
		return nil, commonerrors.NewNotFound("project not found")
	}
	return f.project, nil
}

func (f *fakeStore) GetProjectMember(_ context.Context, projectId, userId string) (*dbclient.ProjectMember, error) {
	if f.member == nil || f.member.ProjectId != projectId || f.member.UserId != userId {
		return nil, commonerrors.NewNotFound("member not found")
	}
	return f.member, nil
}

func (f *fakeStore) GetRun(_ context.Context, runId string) (*dbclient.Run, error) {
	if f.run == nil || f.run.Id != runId {
		return nil, commonerrors.NewNotFound("run not found")
	}
	return f.run, nil
}

func (f *fakeStore) InsertRun(_ context.Context, run *dbclient.Run) error {
	f.insertedRuns = append(f.insertedRuns, run)
	return nil
}

func (f *fakeStore) InsertRunEvents(_ context.Context, events []*dbclient.RunEvent) error {
	f.insertedEvents = append(f.insertedEvents, events...)
	return nil
}

func (f *fakeStore) TakeRateLimitToken(_ context.Context, _ string, _ int, _, _ int64) (bool, int64, error) {
	return true, 0, nil
}

// testStore is shared by every test in the package because the authority is
// a process-wide singleton; tests assign its fields before calling handlers.
var testStore = &fakeStore{}

func newTestHandler() *Handler {
	return NewHandler(testStore, authority.NewAuthority(testStore), ratelimit.NewLimiter(testStore))
}

func testContext(userId string, params gin.Params, body interface{}) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", common.JsonContentType)
	c.Request = req
	c.Set(common.UserId, userId)
	c.Params = params
	return c
}

func TestCreateRunRequiresAdmin(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", Name: "alpha", OwnerUserId: "owner"},
		member:  &dbclient.ProjectMember{ProjectId: "p1", UserId: "u1", Role: common.RoleViewer},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamProjectId, Value: "p1"}},
		CreateRunRequest{Kind: "bootstrap"})
	_, err := h.createRun(c)
	assert.Assert(t, commonerrors.IsForbidden(err))
	assert.Equal(t, len(testStore.insertedRuns), 0)
}

func TestCreateRunByProjectAdmin(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", Name: "alpha", OwnerUserId: "u1"},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamProjectId, Value: "p1"}},
		CreateRunRequest{Kind: "bootstrap"})
	_, err := h.createRun(c)
	assert.NilError(t, err)
	assert.Equal(t, len(testStore.insertedRuns), 1)
	assert.Equal(t, testStore.insertedRuns[0].Status, dbclient.RunStatusRunning)
	assert.Equal(t, testStore.insertedRuns[0].InitiatedByUserId, "u1")
}

func TestAppendEventsRequiresAdmin(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", Name: "alpha", OwnerUserId: "owner"},
		member:  &dbclient.ProjectMember{ProjectId: "p1", UserId: "u1", Role: common.RoleViewer},
		run:     &dbclient.Run{Id: "r1", ProjectId: "p1", Status: dbclient.RunStatusRunning},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamRunId, Value: "r1"}},
		AppendEventsRequest{Events: []EventInput{{Message: "hello"}}})
	_, err := h.appendEvents(c)
	assert.Assert(t, commonerrors.IsForbidden(err))
	assert.Equal(t, len(testStore.insertedEvents), 0)
}

func TestAppendEventsByProjectAdmin(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", Name: "alpha", OwnerUserId: "u1"},
		run:     &dbclient.Run{Id: "r1", ProjectId: "p1", Status: dbclient.RunStatusRunning},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamRunId, Value: "r1"}},
		AppendEventsRequest{Events: []EventInput{{Message: "hello"}}})
	_, err := h.appendEvents(c)
	assert.NilError(t, err)
	assert.Equal(t, len(testStore.insertedEvents), 1)
	assert.Equal(t, testStore.insertedEvents[0].Message, "hello")
}

func TestNormalizeEventMessage(t *testing.T) {
	assert.Equal(t, NormalizeEventMessage("  hello  "), "hello")
	assert.Equal(t, NormalizeEventMessage("   "), "")
	assert.Equal(t, NormalizeEventMessage(""), "")
}

func TestNormalizeEventMessageTruncates(t *testing.T) {
	long := strings.Repeat("x", MaxMessageLen+100)
	got := NormalizeEventMessage(long)
	assert.Equal(t, len(got), MaxMessageLen)
	assert.Assert(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, got[:MaxMessageLen-3], long[:MaxMessageLen-3])

	// exactly at the bound passes through untouched
	exact := strings.Repeat("y", MaxMessageLen)
	assert.Equal(t, NormalizeEventMessage(exact), exact)
}

func TestNormalizeEventMessageTruncatesOnRuneBoundary(t *testing.T) {
	// 3-byte runes never divide the cut point evenly, so a byte-wise cut
	// would leave a broken rune at the end
	long := strings.Repeat("€", MaxMessageLen)
	got := NormalizeEventMessage(long)
	assert.Assert(t, utf8.ValidString(got))
	assert.Assert(t, strings.HasSuffix(got, "..."))
	assert.Assert(t, len(got) <= MaxMessageLen)
}
