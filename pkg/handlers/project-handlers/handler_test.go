/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package project_handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/handlers/authority"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/retention"
)

// fakeStore is an in-memory stand-in for the database client. Only the
// methods the tested handlers touch are implemented; anything else panics
// through the embedded nil interface.
type fakeStore struct {
	dbclient.Interface

	project *dbclient.Project
	member  *dbclient.ProjectMember
	policy  *dbclient.ProjectPolicy
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

// GetProjectPolicy mirrors the client contract: a project without a policy
// row yields (nil, nil), not an error.
func (f *fakeStore) GetProjectPolicy(_ context.Context, projectId string) (*dbclient.ProjectPolicy, error) {
	if f.policy == nil || f.policy.ProjectId != projectId {
		return nil, nil
	}
	return f.policy, nil
}

// testStore is shared by every test in the package because the authority is
// a process-wide singleton; tests assign its fields before calling handlers.
var testStore = &fakeStore{}

func newTestHandler() *Handler {
	return NewHandler(testStore, authority.NewAuthority(testStore), nil, nil)
}

func testContext(userId string, params gin.Params) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(common.UserId, userId)
	c.Params = params
	return c
}

func TestGetPolicyDefaultsWhenUnset(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{project: &dbclient.Project{Id: "p1", OwnerUserId: "u1"}}

	c := testContext("u1", gin.Params{{Key: common.ParamProjectId, Value: "p1"}})
	resp, err := h.getPolicy(c)
	assert.NilError(t, err)

	policy := resp.(*PolicyResponse)
	assert.Equal(t, policy.ProjectId, "p1")
	assert.Equal(t, policy.RetentionDays, retention.DefaultRetentionDays)
}

func TestGetPolicyReturnsStoredDays(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", OwnerUserId: "u1"},
		policy:  &dbclient.ProjectPolicy{Id: "pol1", ProjectId: "p1", RetentionDays: 90},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamProjectId, Value: "p1"}})
	resp, err := h.getPolicy(c)
	assert.NilError(t, err)

	policy := resp.(*PolicyResponse)
	assert.Equal(t, policy.RetentionDays, 90)
}

func TestGetPolicyVisibleToViewer(t *testing.T) {
	h := newTestHandler()
	*testStore = fakeStore{
		project: &dbclient.Project{Id: "p1", OwnerUserId: "owner"},
		member:  &dbclient.ProjectMember{ProjectId: "p1", UserId: "u1", Role: common.RoleViewer},
	}

	c := testContext("u1", gin.Params{{Key: common.ParamProjectId, Value: "p1"}})
	resp, err := h.getPolicy(c)
	assert.NilError(t, err)
	assert.Equal(t, resp.(*PolicyResponse).RetentionDays, retention.DefaultRetentionDays)
}
