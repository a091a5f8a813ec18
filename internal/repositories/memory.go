package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/spotx/internal/models"
)

// MemoryStore implements [models.TokenStore] with a map guarded by a mutex. Tokens are copied on the
// way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]models.StoredToken
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]models.StoredToken)}
}

func (m *MemoryStore) Save(_ context.Context, token *models.StoredToken) error {
	if err := prepare(token); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.tokens[token.UserID()]; ok {
		token.SetID(existing.ID())
		token.SetCreatedAt(existing.CreatedAt())
	} else {
		token.SetCreatedAt(now)
	}
	token.SetUpdatedAt(now)

	m.tokens[token.UserID()] = *token
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*models.StoredToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[userID]
	if !ok {
		return nil, notFound(userID)
	}
	return &token, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[userID]; !ok {
		return notFound(userID)
	}
	delete(m.tokens, userID)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
