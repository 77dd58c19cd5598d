/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package authority

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/AMD-AIG-AIMA/FLEET/controlplane/pkg/config"
)

// DefaultOIDCScopes are the scopes requested from the identity provider.
var DefaultOIDCScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// oidcVerifier validates OIDC ID tokens against the configured issuer and
// client id.
type oidcVerifier struct {
	issuer   string
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the configured issuer and builds an ID token
// verifier bound to the configured client id.
func NewOIDCVerifier(ctx context.Context) (TokenVerifier, error) {
	issuer := config.GetSSOIssuer()
	clientId := config.GetSSOClientId()
	if issuer == "" || clientId == "" {
		return nil, fmt.Errorf("sso issuer or client id is not configured")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider %q: %v", issuer, err)
	}
	return &oidcVerifier{
		issuer:   issuer,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientId}),
	}, nil
}

type idTokenClaims struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Verify validates the raw ID token and extracts the caller identity. The
// token identifier is "<issuer>|<sub>" so subjects from different issuers
// never collide.
func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %v", err)
	}
	return v.identityFromIDToken(idToken)
}

// Exchange redeems an authorization code for the provider's ID token and
// returns the raw token, its expiry in epoch milliseconds and the verified
// identity.
func (v *oidcVerifier) Exchange(ctx context.Context, code string) (string, int64, *Identity, error) {
	token, err := v.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to exchange authorization code: %v", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", 0, nil, fmt.Errorf("no id_token in token response")
	}
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to verify exchanged ID token: %v", err)
	}
	identity, err := v.identityFromIDToken(idToken)
	if err != nil {
		return "", 0, nil, err
	}
	return rawIDToken, idToken.Expiry.UnixMilli(), identity, nil
}

// AuthURL returns the provider's authorization endpoint URL for the
// configured client.
func (v *oidcVerifier) AuthURL(state string) string {
	return v.oauth2Config().AuthCodeURL(state)
}

func (v *oidcVerifier) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.GetSSOClientId(),
		ClientSecret: config.GetSSOClientSecret(),
		Endpoint:     v.provider.Endpoint(),
		Scopes:       DefaultOIDCScopes,
		RedirectURL:  config.GetSSORedirectUrl(),
	}
}

func (v *oidcVerifier) identityFromIDToken(idToken *oidc.IDToken) (*Identity, error) {
	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode ID token claims: %v", err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("ID token has no subject")
	}
	return &Identity{
		TokenIdentifier: fmt.Sprintf("%s|%s", v.issuer, claims.Sub),
		Name:            claims.Name,
		Email:           claims.Email,
		PictureUrl:      claims.Picture,
	}, nil
}
