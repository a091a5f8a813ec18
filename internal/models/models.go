// package models defines the persisted entities of spotx
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// TokenStore persists one token per Spotify user.
type TokenStore interface {
	Save(ctx context.Context, token *StoredToken) error           // Save inserts or replaces the token for its user
	Get(ctx context.Context, userID string) (*StoredToken, error) // Get returns the token for userID or [shared.ErrTokenNotFound]
	Delete(ctx context.Context, userID string) error              // Delete removes the token for userID
	Close() error                                                 // Close releases the backend connection
}
