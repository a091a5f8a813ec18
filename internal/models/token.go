package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/shared"
)

// StoredToken is a persisted OAuth token for a Spotify user.
type StoredToken struct {
	id           string
	userID       string
	accessToken  string
	refreshToken string
	tokenType    string
	scope        auth.Scope
	expiresAt    time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewStoredToken captures the current attributes of tok for userID.
//
// When tok is an [auth.RefreshingToken] reading its attributes may refresh it first.
func NewStoredToken(userID string, tok auth.TokenInfo) (*StoredToken, error) {
	access, err := tok.AccessToken()
	if err != nil {
		return nil, err
	}
	refresh, err := tok.RefreshToken()
	if err != nil {
		return nil, err
	}
	tokenType, err := tok.TokenType()
	if err != nil {
		return nil, err
	}
	scope, err := tok.Scope()
	if err != nil {
		return nil, err
	}
	expiresAt, err := tok.ExpiresAt()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &StoredToken{
		userID:       userID,
		accessToken:  access,
		refreshToken: refresh,
		tokenType:    tokenType,
		scope:        scope,
		expiresAt:    expiresAt,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// RestoreStoredToken rebuilds a StoredToken read from a backend.
func RestoreStoredToken(id, userID, access, refresh, tokenType string, scope auth.Scope, expiresAt, createdAt, updatedAt time.Time) *StoredToken {
	return &StoredToken{
		id:           id,
		userID:       userID,
		accessToken:  access,
		refreshToken: refresh,
		tokenType:    tokenType,
		scope:        scope,
		expiresAt:    expiresAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (s *StoredToken) ID() string           { return s.id }
func (s *StoredToken) UserID() string       { return s.userID }
func (s *StoredToken) AccessToken() string  { return s.accessToken }
func (s *StoredToken) RefreshToken() string { return s.refreshToken }
func (s *StoredToken) TokenType() string    { return s.tokenType }
func (s *StoredToken) Scope() auth.Scope    { return s.scope }
func (s *StoredToken) ExpiresAt() time.Time { return s.expiresAt }
func (s *StoredToken) CreatedAt() time.Time { return s.createdAt }
func (s *StoredToken) UpdatedAt() time.Time { return s.updatedAt }

func (s *StoredToken) SetID(id string)          { s.id = id }
func (s *StoredToken) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *StoredToken) SetCreatedAt(t time.Time) { s.createdAt = t }

// Validate requires a user and an access token.
func (s *StoredToken) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if s.accessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidInput)
	}
	return nil
}

// Token converts s back into an [auth.Token].
func (s *StoredToken) Token() *auth.Token {
	return auth.RestoreToken(s.accessToken, s.refreshToken, s.tokenType, s.scope, s.expiresAt)
}

type storedTokenJSON struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *StoredToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedTokenJSON{
		ID:           s.id,
		UserID:       s.userID,
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		TokenType:    s.tokenType,
		Scope:        s.scope.String(),
		ExpiresAt:    s.expiresAt,
		CreatedAt:    s.createdAt,
		UpdatedAt:    s.updatedAt,
	})
}

func (s *StoredToken) UnmarshalJSON(data []byte) error {
	var raw storedTokenJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = *RestoreStoredToken(raw.ID, raw.UserID, raw.AccessToken, raw.RefreshToken, raw.TokenType,
		auth.ParseScope(raw.Scope), raw.ExpiresAt, raw.CreatedAt, raw.UpdatedAt)
	return nil
}
