// package repositories provides [models.TokenStore] implementations.
package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

var (
	_ models.TokenStore = (*TokenRepository)(nil)
	_ models.TokenStore = (*MemoryStore)(nil)
	_ models.TokenStore = (*RedisStore)(nil)
)

// prepare validates token and assigns an ID to new tokens.
func prepare(token *models.StoredToken) error {
	if token == nil {
		return fmt.Errorf("%w: token is nil", shared.ErrInvalidInput)
	}
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if token.ID() == "" {
		token.SetID(shared.GenerateID())
	}
	return nil
}

func notFound(userID string) error {
	return fmt.Errorf("%w: %s", shared.ErrTokenNotFound, userID)
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrTokenNotFound)
}
