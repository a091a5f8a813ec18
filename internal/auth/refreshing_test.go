package auth

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
)

func TestRefreshingToken(t *testing.T) {
	ctx := context.Background()

	t.Run("Fresh token is returned without refresh", func(t *testing.T) {
		freezeTime(t, epoch)
		base := freshToken("current")
		creds := &fakeCredentials{refreshed: freshToken("next")}

		rt := NewRefreshingToken(ctx, base, creds)

		got, err := rt.AccessToken()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if want, _ := base.AccessToken(); got != want {
			t.Errorf("expected access token %s, got %s", want, got)
		}
		if calls := creds.refreshCalls.Load(); calls != 0 {
			t.Errorf("expected no refresh calls, got %d", calls)
		}
	})

	t.Run("Expiring token is replaced", func(t *testing.T) {
		freezeTime(t, epoch)
		next := freshToken("next")
		creds := &fakeCredentials{refreshed: next}

		rt := NewRefreshingToken(ctx, expiringToken("stale"), creds)

		got, err := rt.AccessToken()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "next" {
			t.Errorf("expected refreshed access token 'next', got %s", got)
		}
		if calls := creds.refreshCalls.Load(); calls != 1 {
			t.Errorf("expected 1 refresh call, got %d", calls)
		}

		if _, err := rt.AccessToken(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls := creds.refreshCalls.Load(); calls != 1 {
			t.Errorf("expected refreshed token to be reused, got %d refresh calls", calls)
		}
	})

	t.Run("Every attribute read refreshes", func(t *testing.T) {
		freezeTime(t, epoch)
		next := freshToken("next")

		reads := map[string]func(*RefreshingToken) (any, error){
			"RefreshToken": func(r *RefreshingToken) (any, error) { return r.RefreshToken() },
			"TokenType":    func(r *RefreshingToken) (any, error) { return r.TokenType() },
			"Scope":        func(r *RefreshingToken) (any, error) { return r.Scope() },
			"ExpiresAt":    func(r *RefreshingToken) (any, error) { return r.ExpiresAt() },
			"ExpiresIn":    func(r *RefreshingToken) (any, error) { return r.ExpiresIn() },
		}

		for name, read := range reads {
			t.Run(name, func(t *testing.T) {
				creds := &fakeCredentials{refreshed: next}
				rt := NewRefreshingToken(ctx, expiringToken("stale"), creds)

				if _, err := read(rt); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if calls := creds.refreshCalls.Load(); calls != 1 {
					t.Errorf("expected 1 refresh call, got %d", calls)
				}
			})
		}
	})

	t.Run("IsExpiring does not refresh", func(t *testing.T) {
		freezeTime(t, epoch)
		creds := &fakeCredentials{refreshed: freshToken("next")}
		rt := NewRefreshingToken(ctx, expiringToken("stale"), creds)

		if !rt.IsExpiring() {
			t.Error("expected wrapped token to report expiring")
		}
		if calls := creds.refreshCalls.Load(); calls != 0 {
			t.Errorf("expected no refresh calls, got %d", calls)
		}
	})

	t.Run("Refresh failure propagates", func(t *testing.T) {
		freezeTime(t, epoch)
		failure := errors.Join(shared.ErrAuthFailed, errors.New("invalid_grant"))
		creds := &fakeCredentials{refreshErr: failure}

		rt := NewRefreshingToken(ctx, expiringToken("stale"), creds)

		got, err := rt.AccessToken()
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected auth failure, got %v", err)
		}
		if got != "" {
			t.Errorf("expected no access token on failure, got %s", got)
		}

		if _, err := rt.AccessToken(); err == nil {
			t.Error("expected second read to fail again")
		}
		if calls := creds.refreshCalls.Load(); calls != 2 {
			t.Errorf("expected each read to attempt one refresh, got %d", calls)
		}
	})

	t.Run("Nil refresh result is an error", func(t *testing.T) {
		freezeTime(t, epoch)
		rt := NewRefreshingToken(ctx, expiringToken("stale"), &fakeCredentials{})

		if _, err := rt.AccessToken(); err == nil {
			t.Error("expected error when credentials return no token")
		}
	})

	t.Run("Nil token fails reads", func(t *testing.T) {
		creds := &fakeCredentials{refreshed: freshToken("next")}
		rt := NewRefreshingToken(ctx, nil, creds)

		if _, err := rt.AccessToken(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if err := rt.Refresh(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated from Refresh, got %v", err)
		}
		if !rt.IsExpiring() {
			t.Error("expected a missing token to report expiring")
		}
		if calls := creds.refreshCalls.Load(); calls != 0 {
			t.Errorf("expected no refresh calls, got %d", calls)
		}
	})

	t.Run("Concurrent reads refresh once", func(t *testing.T) {
		freezeTime(t, epoch)
		creds := &fakeCredentials{refreshed: freshToken("next"), refreshDelay: 20 * time.Millisecond}
		rt := NewRefreshingToken(ctx, expiringToken("stale"), creds)

		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = rt.AccessToken()
			}(i)
		}
		wg.Wait()

		if calls := creds.refreshCalls.Load(); calls != 1 {
			t.Errorf("expected exactly 1 refresh, got %d", calls)
		}
		for i, got := range results {
			if got != "next" {
				t.Errorf("reader %d saw %q", i, got)
			}
		}
	})

	t.Run("Refresh forces a new token", func(t *testing.T) {
		freezeTime(t, epoch)
		creds := &fakeCredentials{refreshed: freshToken("next")}
		rt := NewRefreshingToken(ctx, freshToken("current"), creds)

		if err := rt.Refresh(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got, _ := rt.AccessToken(); got != "next" {
			t.Errorf("expected forced refresh to swap token, got %s", got)
		}
	})

	t.Run("Refresh callback", func(t *testing.T) {
		freezeTime(t, epoch)
		next := freshToken("next")
		rt := NewRefreshingToken(ctx, expiringToken("stale"), &fakeCredentials{refreshed: next})

		var seen *Token
		rt.SetRefreshCallback(func(tok *Token) { seen = tok })

		if _, err := rt.AccessToken(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if seen != next {
			t.Errorf("expected callback with refreshed token, got %v", seen)
		}
	})
}

// TestAttributeSurface checks that every exported method of *Token exists on *RefreshingToken with the
// same signature and, for a fresh token, the same result.
func TestAttributeSurface(t *testing.T) {
	freezeTime(t, epoch)

	base := freshToken("current")
	rt := NewRefreshingToken(context.Background(), base, &fakeCredentials{})

	tokenType := reflect.TypeOf(base)
	wrapperType := reflect.TypeOf(rt)

	for i := range tokenType.NumMethod() {
		m := tokenType.Method(i)

		t.Run(m.Name, func(t *testing.T) {
			w, ok := wrapperType.MethodByName(m.Name)
			if !ok {
				t.Fatalf("RefreshingToken lacks %s", m.Name)
			}
			if !sameSignature(m.Type, w.Type) {
				t.Fatalf("signature mismatch for %s: %v vs %v", m.Name, m.Type, w.Type)
			}
			if m.Type.NumIn() != 1 {
				return
			}

			want := reflect.ValueOf(base).Method(i).Call(nil)
			got := reflect.ValueOf(rt).MethodByName(m.Name).Call(nil)
			for j := range want {
				if !reflect.DeepEqual(want[j].Interface(), got[j].Interface()) {
					t.Errorf("%s result %d: want %v, got %v", m.Name, j, want[j], got[j])
				}
			}
		})
	}
}

// sameSignature compares two method types while ignoring their receivers.
func sameSignature(a, b reflect.Type) bool {
	if a.NumIn() != b.NumIn() || a.NumOut() != b.NumOut() {
		return false
	}
	for i := 1; i < a.NumIn(); i++ {
		if a.In(i) != b.In(i) {
			return false
		}
	}
	for i := range a.NumOut() {
		if a.Out(i) != b.Out(i) {
			return false
		}
	}
	return true
}
