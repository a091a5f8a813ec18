package auth

import (
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// ExpiryMargin is how long before its expiry instant a token is treated as expiring.
const ExpiryMargin = 60 * time.Second

var now = time.Now

// TokenInfo is the read-only attribute surface shared by [Token] and [RefreshingToken].
//
// Reads on a Token never fail; reads on a RefreshingToken fail when a required refresh fails.
type TokenInfo interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	TokenType() (string, error)
	Scope() (Scope, error)
	ExpiresAt() (time.Time, error)
	ExpiresIn() (time.Duration, error)
	IsExpiring() bool
}

var (
	_ TokenInfo = (*Token)(nil)
	_ TokenInfo = (*RefreshingToken)(nil)
)

// Token is an access token issued by the Spotify accounts service. It is immutable once constructed.
type Token struct {
	accessToken  string
	refreshToken string
	tokenType    string
	scope        Scope
	expiresAt    time.Time
}

// NewToken converts a token returned by [oauth2] into a Token. The granted scope is read from the "scope"
// field of the token response.
func NewToken(t *oauth2.Token) *Token {
	var scope Scope
	if raw, ok := t.Extra("scope").(string); ok {
		scope = ParseScope(raw)
	}

	return &Token{
		accessToken:  t.AccessToken,
		refreshToken: t.RefreshToken,
		tokenType:    t.Type(),
		scope:        scope,
		expiresAt:    t.Expiry,
	}
}

// RestoreToken rebuilds a Token from persisted attributes. A zero expiresAt means the token never expires.
func RestoreToken(accessToken, refreshToken, tokenType string, scope Scope, expiresAt time.Time) *Token {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Token{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		tokenType:    tokenType,
		scope:        slices.Clone(scope),
		expiresAt:    expiresAt,
	}
}

func (t *Token) AccessToken() (string, error)  { return t.accessToken, nil }
func (t *Token) RefreshToken() (string, error) { return t.refreshToken, nil }
func (t *Token) TokenType() (string, error)    { return t.tokenType, nil }
func (t *Token) Scope() (Scope, error)         { return slices.Clone(t.scope), nil }
func (t *Token) ExpiresAt() (time.Time, error) { return t.expiresAt, nil }

// ExpiresIn returns the time left before expiry, never negative.
func (t *Token) ExpiresIn() (time.Duration, error) {
	if t.expiresAt.IsZero() {
		return 0, nil
	}
	return max(t.expiresAt.Sub(now()), 0), nil
}

// IsExpiring reports whether the token expires within [ExpiryMargin]. Tokens without an expiry never do.
func (t *Token) IsExpiring() bool {
	if t.expiresAt.IsZero() {
		return false
	}
	return !now().Add(ExpiryMargin).Before(t.expiresAt)
}
