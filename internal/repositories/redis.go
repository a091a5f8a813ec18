package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/redis/rueidis"
)

const (
	tokenPrefix = "spotx:token:"
	cacheTTL    = 30 * time.Second
)

// RedisStore implements [models.TokenStore] using Redis via rueidis. Tokens are stored as JSON without
// a TTL since the refresh token outlives the access token.
type RedisStore struct {
	client rueidis.Client
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore creates a new [RedisStore] with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromOptions connects to Redis with opts.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	return NewRedisStoreFromClientOption(rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

func (r *RedisStore) Save(ctx context.Context, token *models.StoredToken) error {
	if err := prepare(token); err != nil {
		return err
	}

	now := time.Now()
	existing, err := r.Get(ctx, token.UserID())
	switch {
	case err == nil:
		token.SetID(existing.ID())
		token.SetCreatedAt(existing.CreatedAt())
	case isNotFound(err):
		token.SetCreatedAt(now)
	default:
		return err
	}
	token.SetUpdatedAt(now)

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	cmd := r.client.B().Set().Key(tokenPrefix + token.UserID()).Value(string(data)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

// Get reads through the rueidis client-side cache, which the server invalidates on every Save.
func (r *RedisStore) Get(ctx context.Context, userID string) (*models.StoredToken, error) {
	cmd := r.client.B().Get().Key(tokenPrefix + userID).Cache()
	result, err := r.client.DoCache(ctx, cmd, cacheTTL).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, notFound(userID)
		}
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var token models.StoredToken
	if err := json.Unmarshal([]byte(result), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	cmd := r.client.B().Del().Key(tokenPrefix + userID).Build()
	n, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	if n == 0 {
		return notFound(userID)
	}
	return nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}
