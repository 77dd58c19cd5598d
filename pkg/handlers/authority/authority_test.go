/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package authority

import (
	"context"
	"database/sql"
	"testing"

	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/config"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

type fakeStore struct {
	dbclient.Interface

	users    map[string]*dbclient.User
	projects map[string]*dbclient.Project
	members  map[string]*dbclient.ProjectMember
	tokens   map[string]*dbclient.RunnerToken

	touched []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*dbclient.User{},
		projects: map[string]*dbclient.Project{},
		members:  map[string]*dbclient.ProjectMember{},
		tokens:   map[string]*dbclient.RunnerToken{},
	}
}

func (f *fakeStore) GetUserByTokenIdentifier(_ context.Context, tokenIdentifier string) (*dbclient.User, error) {
	for _, u := range f.users {
		if u.TokenIdentifier == tokenIdentifier {
			return u, nil
		}
	}
	return nil, commonerrors.NewNotFound("user not found")
}

func (f *fakeStore) CountUsers(_ context.Context) (int, error) {
	return len(f.users), nil
}

func (f *fakeStore) InsertUser(_ context.Context, user *dbclient.User) error {
	f.users[user.Id] = user
	return nil
}

func (f *fakeStore) UpdateUserProfile(_ context.Context, userId string, name, email, pictureUrl sql.NullString, updatedAt int64) error {
	u := f.users[userId]
	u.Name, u.Email, u.PictureUrl, u.UpdatedAt = name, email, pictureUrl, updatedAt
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, projectId string) (*dbclient.Project, error) {
	if p, ok := f.projects[projectId]; ok {
		return p, nil
	}
	return nil, commonerrors.NewNotFound("project not found")
}

func (f *fakeStore) GetProjectMember(_ context.Context, projectId, userId string) (*dbclient.ProjectMember, error) {
	if m, ok := f.members[projectId+"/"+userId]; ok {
		return m, nil
	}
	return nil, commonerrors.NewNotFound("member not found")
}

func (f *fakeStore) GetRunnerTokenByHash(_ context.Context, tokenHash string) (*dbclient.RunnerToken, error) {
	return f.tokens[tokenHash], nil
}

func (f *fakeStore) TouchRunnerToken(_ context.Context, tokenId string, _ int64) error {
	f.touched = append(f.touched, tokenId)
	return nil
}

func TestMaterializeUserFirstIsAdmin(t *testing.T) {
	store := newFakeStore()
	auth := &Authority{dbClient: store}
	ctx := context.Background()

	first, err := auth.materializeUser(ctx, &Identity{TokenIdentifier: "iss|alice", Name: "Alice"})
	assert.NilError(t, err)
	assert.Equal(t, first.Role, common.RoleAdmin)

	second, err := auth.materializeUser(ctx, &Identity{TokenIdentifier: "iss|bob", Name: "Bob"})
	assert.NilError(t, err)
	assert.Equal(t, second.Role, common.RoleViewer)

	// same identity resolves to the same row
	again, err := auth.materializeUser(ctx, &Identity{TokenIdentifier: "iss|alice", Name: "Alice"})
	assert.NilError(t, err)
	assert.Equal(t, again.Id, first.Id)
}

func TestMaterializeUserRefreshesProfile(t *testing.T) {
	store := newFakeStore()
	auth := &Authority{dbClient: store}
	ctx := context.Background()

	user, err := auth.materializeUser(ctx, &Identity{TokenIdentifier: "iss|alice", Name: "Alice"})
	assert.NilError(t, err)

	updated, err := auth.materializeUser(ctx, &Identity{
		TokenIdentifier: "iss|alice", Name: "Alice Cooper", Email: "alice@example.com"})
	assert.NilError(t, err)
	assert.Equal(t, updated.Id, user.Id)
	assert.Equal(t, updated.Name.String, "Alice Cooper")
	assert.Equal(t, updated.Email.String, "alice@example.com")
}

func TestResolveProjectAccess(t *testing.T) {
	store := newFakeStore()
	store.projects["p1"] = &dbclient.Project{Id: "p1", OwnerUserId: "owner"}
	store.members["p1/viewer"] = &dbclient.ProjectMember{ProjectId: "p1", UserId: "viewer", Role: common.RoleViewer}
	auth := &Authority{dbClient: store}
	ctx := context.Background()

	_, role, err := auth.ResolveProjectAccess(ctx, "owner", "p1")
	assert.NilError(t, err)
	assert.Equal(t, role, common.RoleAdmin)

	_, role, err = auth.ResolveProjectAccess(ctx, "viewer", "p1")
	assert.NilError(t, err)
	assert.Equal(t, role, common.RoleViewer)

	_, _, err = auth.ResolveProjectAccess(ctx, "stranger", "p1")
	assert.Assert(t, commonerrors.IsForbidden(err))

	_, _, err = auth.ResolveProjectAccess(ctx, "owner", "missing")
	assert.Assert(t, commonerrors.IsNotFound(err))

	_, err = auth.RequireProjectAdmin(ctx, "viewer", "p1")
	assert.Assert(t, commonerrors.IsForbidden(err))
}

func TestAuthenticateRunner(t *testing.T) {
	store := newFakeStore()
	auth := &Authority{dbClient: store}
	ctx := context.Background()
	now := timeutil.NowMs()

	plaintext := "runner-token-plaintext"
	store.tokens[cryptoutil.Sha256Hex(plaintext)] = &dbclient.RunnerToken{
		Id: "t1", ProjectId: "p1", RunnerId: "r1",
		TokenHash: cryptoutil.Sha256Hex(plaintext),
		ExpiresAt: sql.NullInt64{Int64: now + 60_000, Valid: true},
	}

	token, err := auth.AuthenticateRunner(ctx, plaintext)
	assert.NilError(t, err)
	assert.Equal(t, token.Id, "t1")
	assert.Equal(t, len(store.touched), 1)

	_, err = auth.AuthenticateRunner(ctx, "wrong")
	assert.Assert(t, commonerrors.IsUnauthorized(err))

	store.tokens[cryptoutil.Sha256Hex(plaintext)].RevokedAt = sql.NullInt64{Int64: now, Valid: true}
	_, err = auth.AuthenticateRunner(ctx, plaintext)
	assert.Assert(t, commonerrors.IsUnauthorized(err))
}

func TestAuthenticateDevBypass(t *testing.T) {
	store := newFakeStore()
	auth := &Authority{dbClient: store}
	config.SetValue("auth.disable", true)
	defer config.SetValue("auth.disable", false)

	config.SetValue("deploy.mode", "production")
	_, err := auth.Authenticate(context.Background(), "")
	assert.Assert(t, commonerrors.IsUnauthorized(err))

	config.SetValue("deploy.mode", config.DeployModeDevelopment)
	user, err := auth.Authenticate(context.Background(), "")
	assert.NilError(t, err)
	assert.Equal(t, user.TokenIdentifier, "dev|local")
	assert.Equal(t, user.Role, common.RoleAdmin)
}

func TestVerifyServiceToken(t *testing.T) {
	auth := &Authority{}
	config.SetValue("auth.serviceToken", "")
	assert.Assert(t, commonerrors.IsUnauthorized(auth.VerifyServiceToken("anything")))

	config.SetValue("auth.serviceToken", "svc-secret")
	defer config.SetValue("auth.serviceToken", "")
	assert.NilError(t, auth.VerifyServiceToken("svc-secret"))
	assert.Assert(t, commonerrors.IsUnauthorized(auth.VerifyServiceToken("nope")))
}
