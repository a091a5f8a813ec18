package auth

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
)

var errNoToken = fmt.Errorf("%w: no token to refresh", shared.ErrNotAuthenticated)

// RefreshingToken holds a [Token] and replaces it through [Credentials.RefreshToken] whenever a read finds
// it expiring.
//
// The credentials are shared, not owned. Refresh failures are returned from the read that triggered them;
// the held token is kept so a later read tries again.
type RefreshingToken struct {
	mu        sync.Mutex
	ctx       context.Context
	token     *Token
	creds     Credentials
	logger    *log.Logger
	onRefresh func(*Token)
}

// NewRefreshingToken wraps token. ctx is used for every refresh request. A nil token makes every read
// fail with [shared.ErrNotAuthenticated].
func NewRefreshingToken(ctx context.Context, token *Token, creds Credentials) *RefreshingToken {
	return &RefreshingToken{
		ctx:    ctx,
		token:  token,
		creds:  creds,
		logger: log.New(io.Discard),
	}
}

// SetLogger sets the logger used to report refreshes.
func (r *RefreshingToken) SetLogger(l *log.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// SetRefreshCallback registers fn to run with each new token, while the read that caused the refresh
// is still holding the lock. Pass nil to remove it.
func (r *RefreshingToken) SetRefreshCallback(fn func(*Token)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRefresh = fn
}

// Current returns the held token after refreshing it if needed.
func (r *RefreshingToken) Current() (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token == nil {
		return nil, errNoToken
	}
	if r.token.IsExpiring() {
		if err := r.refresh(); err != nil {
			return nil, err
		}
	}
	return r.token, nil
}

// Refresh replaces the held token regardless of its expiry.
func (r *RefreshingToken) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh()
}

func (r *RefreshingToken) refresh() error {
	if r.token == nil {
		return errNoToken
	}
	fresh, err := r.creds.RefreshToken(r.ctx, r.token)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("credentials returned no token on refresh")
	}

	r.token = fresh
	r.logger.Debug("access token refreshed", "expires_at", fresh.expiresAt.Format(time.RFC3339))

	if r.onRefresh != nil {
		r.onRefresh(fresh)
	}
	return nil
}

func (r *RefreshingToken) AccessToken() (string, error) {
	t, err := r.Current()
	if err != nil {
		return "", err
	}
	return t.AccessToken()
}

func (r *RefreshingToken) RefreshToken() (string, error) {
	t, err := r.Current()
	if err != nil {
		return "", err
	}
	return t.RefreshToken()
}

func (r *RefreshingToken) TokenType() (string, error) {
	t, err := r.Current()
	if err != nil {
		return "", err
	}
	return t.TokenType()
}

func (r *RefreshingToken) Scope() (Scope, error) {
	t, err := r.Current()
	if err != nil {
		return nil, err
	}
	return t.Scope()
}

func (r *RefreshingToken) ExpiresAt() (time.Time, error) {
	t, err := r.Current()
	if err != nil {
		return time.Time{}, err
	}
	return t.ExpiresAt()
}

func (r *RefreshingToken) ExpiresIn() (time.Duration, error) {
	t, err := r.Current()
	if err != nil {
		return 0, err
	}
	return t.ExpiresIn()
}

// IsExpiring reports on the held token without refreshing it.
func (r *RefreshingToken) IsExpiring() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token == nil || r.token.IsExpiring()
}
