package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
)

// TokenRepository implements [models.TokenStore] on SQLite.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection. The tokens table
// must exist; see [shared.RunMigrations].
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save inserts the token or replaces the existing row for the same user, keeping its ID and creation time.
func (r *TokenRepository) Save(ctx context.Context, token *models.StoredToken) error {
	if err := prepare(token); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		existingID string
		createdAt  time.Time
	)
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM tokens WHERE user_id = ?`, token.UserID()).
		Scan(&existingID, &createdAt)

	now := time.Now()
	expiresAt := sql.NullTime{Time: token.ExpiresAt(), Valid: !token.ExpiresAt().IsZero()}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		query := `
			INSERT INTO tokens (id, user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query, token.ID(), token.UserID(), token.AccessToken(), token.RefreshToken(),
			token.TokenType(), token.Scope().String(), expiresAt, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}
		token.SetCreatedAt(now)
	case err != nil:
		return fmt.Errorf("failed to query token: %w", err)
	default:
		query := `
			UPDATE tokens
			SET access_token = ?, refresh_token = ?, token_type = ?, scope = ?, expires_at = ?, updated_at = ?
			WHERE id = ?
		`
		_, err = tx.ExecContext(ctx, query, token.AccessToken(), token.RefreshToken(), token.TokenType(),
			token.Scope().String(), expiresAt, now, existingID)
		if err != nil {
			return fmt.Errorf("failed to update token: %w", err)
		}
		token.SetID(existingID)
		token.SetCreatedAt(createdAt)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token: %w", err)
	}

	token.SetUpdatedAt(now)
	return nil
}

// Get retrieves the token stored for userID.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*models.StoredToken, error) {
	query := `
		SELECT id, user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
		FROM tokens
		WHERE user_id = ?
	`

	var (
		id, uid, access, refresh, tokenType, scope string
		expiresAt                                  sql.NullTime
		createdAt, updatedAt                       time.Time
	)

	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&id, &uid, &access, &refresh, &tokenType, &scope, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	var expiry time.Time
	if expiresAt.Valid {
		expiry = expiresAt.Time
	}

	return models.RestoreStoredToken(id, uid, access, refresh, tokenType, auth.ParseScope(scope),
		expiry, createdAt, updatedAt), nil
}

// Delete removes the token stored for userID.
func (r *TokenRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound(userID)
	}

	return nil
}

// Close closes the underlying database.
func (r *TokenRepository) Close() error {
	return r.db.Close()
}
