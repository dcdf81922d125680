// Single sign-on client for an OpenID Connect provider.
//
// Settings come from config.OIDCConfig:
//   - OIDC_ISSUER_URL: provider issuer (discovery at /.well-known/openid-configuration)
//   - OIDC_CLIENT_ID / OIDC_CLIENT_SECRET: registered client
//   - OIDC_REDIRECT_URL: {API_V1_STR}/auth/oidc/callback on this server

package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex-career/backend/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

var (
	ErrMissingIDToken   = errors.New("oidc: token response has no id_token")
	ErrEmailNotVerified = errors.New("oidc: email not verified")
)

// OIDCIdentity is what the server trusts from a verified ID token.
type OIDCIdentity struct {
	Subject string
	Email   string
}

type OIDCClient struct {
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
}

// NewOIDCClient runs provider discovery; it fails when the issuer is unreachable.
func NewOIDCClient(ctx context.Context, cfg config.OIDCConfig) (*OIDCClient, error) {
	provider, err := oidc.NewProvider(ctx, strings.TrimSpace(cfg.IssuerURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &OIDCClient{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

func (c *OIDCClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and returns the verified identity.
func (c *OIDCClient) Exchange(ctx context.Context, code string) (*OIDCIdentity, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oidc exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc verify: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc claims: %w", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &OIDCIdentity{Subject: idToken.Subject, Email: claims.Email}, nil
}
