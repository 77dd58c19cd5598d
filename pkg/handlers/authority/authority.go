/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package authority resolves caller identity and project access. Bearer
// tokens are verified against the configured OIDC issuer; runner tokens are
// matched by hash; the development bypass synthesizes a fixed identity and
// is only honored in development deployments.
package authority

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/common"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/config"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/cryptoutil"
	dbclient "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/database/client"
	commonerrors "github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/errors"
	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/utils/timeutil"
)

// Identity is the verified caller identity extracted from a bearer token.
type Identity struct {
	TokenIdentifier string
	Name            string
	Email           string
	PictureUrl      string
}

// TokenVerifier validates a raw bearer token and extracts the identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

var (
	once     sync.Once
	instance *Authority
)

// Authority authenticates callers and resolves their project roles.
type Authority struct {
	dbClient dbclient.Interface
	verifier TokenVerifier
}

// NewAuthority creates the singleton Authority. The OIDC verifier is built
// lazily on the first bearer authentication so startup does not depend on
// issuer reachability.
func NewAuthority(db dbclient.Interface) *Authority {
	once.Do(func() {
		instance = &Authority{dbClient: db}
	})
	return instance
}

// Instance returns the singleton Authority.
func Instance() *Authority {
	return instance
}

// devIdentity is the fixed identity synthesized when the development auth
// bypass is enabled.
var devIdentity = Identity{
	TokenIdentifier: "dev|local",
	Name:            "Local Developer",
	Email:           "dev@localhost",
}

// Authenticate resolves the caller of an Authorization header into a
// materialized user row. With the development bypass enabled a fixed dev
// user is synthesized; otherwise the bearer token must verify against the
// configured issuer.
func (a *Authority) Authenticate(ctx context.Context, authorizationHeader string) (*dbclient.User, error) {
	if config.IsAuthDisabled() {
		if config.GetDeployMode() != config.DeployModeDevelopment {
			return nil, commonerrors.NewUnauthorized("auth bypass is only allowed in development")
		}
		return a.materializeUser(ctx, &devIdentity)
	}
	if !strings.HasPrefix(authorizationHeader, common.BearerPrefix) {
		return nil, commonerrors.NewUnauthorized("missing bearer token")
	}
	rawToken := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, common.BearerPrefix))
	if rawToken == "" {
		return nil, commonerrors.NewUnauthorized("missing bearer token")
	}
	verifier, err := a.getVerifier(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, commonerrors.NewUnauthorized("invalid bearer token")
	}
	return a.materializeUser(ctx, identity)
}

// codeExchanger is implemented by verifiers that support the OAuth2
// authorization-code flow.
type codeExchanger interface {
	Exchange(ctx context.Context, code string) (string, int64, *Identity, error)
	AuthURL(state string) string
}

// LoginResult carries the session token handed back after a code exchange.
type LoginResult struct {
	User      *dbclient.User `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expiresAt"`
}

// Login redeems an OAuth2 authorization code, materializes the user and
// returns the ID token for use as the bearer credential.
func (a *Authority) Login(ctx context.Context, code string) (*LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, commonerrors.NewBadRequest("no code in request")
	}
	verifier, err := a.getVerifier(ctx)
	if err != nil {
		return nil, err
	}
	exchanger, ok := verifier.(codeExchanger)
	if !ok {
		return nil, commonerrors.NewUnauthorized("sso login is not supported")
	}
	rawToken, expiresAt, identity, err := exchanger.Exchange(ctx, code)
	if err != nil {
		klog.ErrorS(err, "sso code exchange failed")
		return nil, commonerrors.NewUnauthorized("authorization code exchange failed")
	}
	user, err := a.materializeUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: rawToken, ExpiresAt: expiresAt}, nil
}

// AuthURL returns the identity provider's authorization URL.
func (a *Authority) AuthURL(ctx context.Context, state string) (string, error) {
	verifier, err := a.getVerifier(ctx)
	if err != nil {
		return "", err
	}
	exchanger, ok := verifier.(codeExchanger)
	if !ok {
		return "", commonerrors.NewUnauthorized("sso login is not supported")
	}
	return exchanger.AuthURL(state), nil
}

func (a *Authority) getVerifier(ctx context.Context) (TokenVerifier, error) {
	if a.verifier != nil {
		return a.verifier, nil
	}
	if !config.IsSSOEnable() {
		return nil, commonerrors.NewUnauthorized("sso is not configured")
	}
	verifier, err := NewOIDCVerifier(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to init oidc verifier")
		return nil, commonerrors.NewInternalError("failed to init oidc verifier")
	}
	a.verifier = verifier
	return a.verifier, nil
}

// materializeUser finds or creates the user row for a verified identity.
// The first user ever materialized becomes admin; later ones start as
// viewer. Profile fields are refreshed when the identity provider reports
// new values.
func (a *Authority) materializeUser(ctx context.Context, identity *Identity) (*dbclient.User, error) {
	user, err := a.dbClient.GetUserByTokenIdentifier(ctx, identity.TokenIdentifier)
	if err == nil {
		return a.refreshProfile(ctx, user, identity)
	}
	if !commonerrors.IsNotFound(err) {
		return nil, err
	}

	count, err := a.dbClient.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	role := common.RoleViewer
	if count == 0 {
		role = common.RoleAdmin
	}
	now := timeutil.NowMs()
	user = &dbclient.User{
		Id:              uuid.NewString(),
		TokenIdentifier: identity.TokenIdentifier,
		Name:            nullString(identity.Name),
		Email:           nullString(identity.Email),
		PictureUrl:      nullString(identity.PictureUrl),
		Role:            role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = a.dbClient.InsertUser(ctx, user); err != nil {
		// lost a materialization race; the unique token identifier row wins
		return a.dbClient.GetUserByTokenIdentifier(ctx, identity.TokenIdentifier)
	}
	return user, nil
}

func (a *Authority) refreshProfile(ctx context.Context, user *dbclient.User, identity *Identity) (*dbclient.User, error) {
	name := nullString(identity.Name)
	email := nullString(identity.Email)
	picture := nullString(identity.PictureUrl)
	if user.Name == name && user.Email == email && user.PictureUrl == picture {
		return user, nil
	}
	now := timeutil.NowMs()
	if err := a.dbClient.UpdateUserProfile(ctx, user.Id, name, email, picture, now); err != nil {
		return nil, err
	}
	user.Name, user.Email, user.PictureUrl, user.UpdatedAt = name, email, picture, now
	return user, nil
}

// ResolveProjectAccess resolves the caller's role on a project: owner means
// admin, otherwise the membership row's role. A missing membership is
// forbidden, a missing project not_found.
func (a *Authority) ResolveProjectAccess(ctx context.Context, userId, projectId string) (*dbclient.Project, string, error) {
	project, err := a.dbClient.GetProject(ctx, projectId)
	if err != nil {
		return nil, "", err
	}
	if project.OwnerUserId == userId {
		return project, common.RoleAdmin, nil
	}
	member, err := a.dbClient.GetProjectMember(ctx, projectId, userId)
	if err != nil {
		if commonerrors.IsNotFound(err) {
			return nil, "", commonerrors.NewForbidden("not a member of this project")
		}
		return nil, "", err
	}
	return project, member.Role, nil
}

// RequireProjectAdmin resolves project access and additionally requires the
// admin role.
func (a *Authority) RequireProjectAdmin(ctx context.Context, userId, projectId string) (*dbclient.Project, error) {
	project, role, err := a.ResolveProjectAccess(ctx, userId, projectId)
	if err != nil {
		return nil, err
	}
	if role != common.RoleAdmin {
		return nil, commonerrors.NewForbidden("project admin privileges are required")
	}
	return project, nil
}

// AuthenticateRunner resolves a plaintext runner token into its token row.
// Validation is by stored hash: revoked or expired tokens fail unauthorized.
// The row's lastUsedAt is touched on success.
func (a *Authority) AuthenticateRunner(ctx context.Context, rawToken string) (*dbclient.RunnerToken, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, commonerrors.NewUnauthorized("missing runner token")
	}
	token, err := a.dbClient.GetRunnerTokenByHash(ctx, cryptoutil.Sha256Hex(rawToken))
	if err != nil {
		return nil, err
	}
	now := timeutil.NowMs()
	if token == nil || !token.IsValid(now) {
		return nil, commonerrors.NewUnauthorized("invalid runner token")
	}
	if err = a.dbClient.TouchRunnerToken(ctx, token.Id, now); err != nil {
		klog.ErrorS(err, "failed to touch runner token", "token", token.Id)
	}
	return token, nil
}

// VerifyServiceToken checks the shared internal service token in constant
// time. An unset configured token disables service-token access entirely.
func (a *Authority) VerifyServiceToken(provided string) error {
	configured := config.GetServiceToken()
	if configured == "" {
		return commonerrors.NewUnauthorized("service token is not configured")
	}
	if !cryptoutil.ConstantTimeEqual(strings.TrimSpace(provided), configured) {
		return commonerrors.NewUnauthorized("invalid service token")
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
