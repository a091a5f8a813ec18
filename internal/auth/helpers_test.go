package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCredentials is a test double for [Credentials].
type fakeCredentials struct {
	authURL string

	exchanged *Token
	exchErr   error
	codes     []string

	refreshed    *Token
	refreshErr   error
	refreshDelay time.Duration
	refreshCalls atomic.Int32

	mu sync.Mutex
}

func (f *fakeCredentials) AuthorizationURL() string { return f.authURL }

func (f *fakeCredentials) RequestAccessToken(_ context.Context, code string) (*Token, error) {
	f.mu.Lock()
	f.codes = append(f.codes, code)
	f.mu.Unlock()
	if f.exchErr != nil {
		return nil, f.exchErr
	}
	return f.exchanged, nil
}

func (f *fakeCredentials) RefreshToken(_ context.Context, _ *Token) (*Token, error) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeCredentials) exchangedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

// freezeTime pins [now] to at for the duration of the test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func freshToken(access string) *Token {
	return RestoreToken(access, "refresh-"+access, "Bearer", NewScope(UserReadPrivate), epoch.Add(time.Hour))
}

func expiringToken(access string) *Token {
	return RestoreToken(access, "refresh-"+access, "Bearer", NewScope(UserReadPrivate), epoch.Add(30*time.Second))
}
