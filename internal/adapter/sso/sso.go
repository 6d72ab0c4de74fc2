// Package sso verifies username/password pairs against an OpenID Connect
// provider using the resource-owner password grant.
package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatgate/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Config describes the identity provider.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client implements domain.SSOVerifier.
type Client struct {
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ domain.SSOVerifier = (*Client)(nil)

// New discovers the provider and builds a Client. Discovery is a network
// round trip, so callers construct the client lazily.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, errors.New("sso: issuer and client id are required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("sso: discover %s: %w", cfg.Issuer, err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes(cfg.Scopes),
	}
	return NewWithVerifier(oc, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// NewWithVerifier builds a Client from explicit parts.
func NewWithVerifier(oc *oauth2.Config, v *oidc.IDTokenVerifier) *Client {
	return &Client{oauth2: oc, verifier: v}
}

func scopes(extra []string) []string {
	out := []string{oidc.ScopeOpenID}
	for _, s := range extra {
		s = strings.TrimSpace(s)
		if s != "" && s != oidc.ScopeOpenID {
			out = append(out, s)
		}
	}
	return out
}

// Verify exchanges the pair for tokens and checks the returned ID token
// names the same user. On failure message carries the provider's reason.
func (c *Client) Verify(ctx context.Context, username, password string) (bool, string) {
	token, err := c.oauth2.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return false, describe(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return false, "no id_token in provider response"
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return false, fmt.Sprintf("invalid id_token: %v", err)
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return false, fmt.Sprintf("invalid id_token claims: %v", err)
	}
	if claims.PreferredUsername != "" && !strings.EqualFold(claims.PreferredUsername, username) {
		return false, "provider identity does not match username"
	}
	return true, ""
}

func describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorDescription != "":
			return re.ErrorDescription
		case re.ErrorCode != "":
			return re.ErrorCode
		}
	}
	return err.Error()
}
