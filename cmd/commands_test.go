package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	tu "github.com/desertthunder/spotx/internal/testing"
)

const (
	userJSON     = `{"id":"wizzler","display_name":"Wizzler","email":"wizzler@example.com","country":"SE","product":"premium","followers":{"total":3}}`
	track1JSON   = `{"id":"t1","name":"Song One","duration_ms":180000,"artists":[{"id":"a1","name":"Artist One"}],"album":{"id":"al1","name":"Album One"},"external_ids":{"isrc":"USRC12345678"}}`
	track2JSON   = `{"id":"t2","name":"Song Two","duration_ms":200000,"artists":[{"id":"a2","name":"Artist Two"}],"album":{"id":"al2","name":"Album Two"}}`
	playlistJSON = `{"id":"p1","name":"Road Trip","description":"Long drives","owner":{"id":"wizzler","display_name":"Wizzler"},"public":true,` +
		`"tracks":{"total":2,"next":null,"items":[{"added_at":"2024-01-01T00:00:00Z","track":` + track1JSON + `},{"added_at":"2024-01-02T00:00:00Z","track":` + track2JSON + `}]}}`
)

// backend fakes the accounts service under /api/token and the Web API under /v1.
type backend struct {
	srv *httptest.Server

	mu        sync.Mutex
	refreshes int
	seen      []string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}

	routes := map[string]string{
		"/v1/me":                             userJSON,
		"/v1/tracks/t1":                      track1JSON,
		"/v1/tracks?ids=t1%2Ct2":             `{"tracks":[` + track1JSON + `,` + track2JSON + `]}`,
		"/v1/audio-features?ids=t1%2Ct2":     `{"audio_features":[{"id":"t1","tempo":120.5,"key":5,"mode":1,"time_signature":4,"danceability":0.8,"energy":0.7,"valence":0.6},null]}`,
		"/v1/me/playlists?limit=20&offset=0": `{"items":[{"id":"p1","name":"Road Trip","public":true,"tracks":{"total":2}}],"total":1,"limit":20,"offset":0,"next":null}`,
		"/v1/me/playlists?limit=50&offset=0": `{"items":[{"id":"p1","name":"Road Trip","public":true,"tracks":{"total":2}}],"total":1,"limit":50,"offset":0,"next":null}`,
		"/v1/playlists/p1":                   playlistJSON,
		"/v1/me/tracks?limit=20&offset=0":    `{"items":[{"added_at":"2024-03-01T00:00:00Z","track":` + track1JSON + `}],"total":1,"limit":20,"offset":0,"next":null}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		grant := r.PostForm.Get("grant_type")

		w.Header().Set("Content-Type", "application/json")
		switch grant {
		case "authorization_code":
			if r.PostForm.Get("code") != "abc" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"access-0","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-0","scope":"user-read-private playlist-read-private"}`))
		case "refresh_token":
			b.refreshes++
			fmt.Fprintf(w, `{"access_token":"access-%d","token_type":"Bearer","expires_in":3600}`, b.refreshes)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		}
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.seen = append(b.seen, r.Header.Get("Authorization"))
		b.mu.Unlock()

		body, ok := routes[r.URL.RequestURI()]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) authHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seen...)
}

type fixture struct {
	runner *Runner
	store  *repositories.MemoryStore
	output *bytes.Buffer
	path   string
	api    *backend
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	api := newBackend(t)

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	config.Store.Type = "memory"
	config.API.BaseURL = api.srv.URL + "/v1"
	config.API.RateLimit = 0

	f := &fixture{
		store:  repositories.NewMemoryStore(),
		output: &bytes.Buffer{},
		path:   filepath.Join(t.TempDir(), "config.toml"),
		api:    api,
	}
	f.runner = NewRunner(RunnerOpts{
		Config:      config,
		ConfigPath:  f.path,
		Store:       f.store,
		HTTPClient:  api.srv.Client(),
		Credentials: []auth.CredentialsOption{auth.WithEndpoint(api.srv.URL+"/authorize", api.srv.URL+"/api/token")},
		Browser:     func(string) error { return nil },
		Input:       strings.NewReader(input),
		Logger:      log.New(io.Discard),
		Output:      f.output,
	})
	return f
}

func (f *fixture) run(args ...string) error {
	return newApp(f.runner).Run(context.Background(), append([]string{"spotx"}, args...))
}

// login stores a token for wizzler expiring at expiresAt and selects it as the current user.
func (f *fixture) login(t *testing.T, expiresAt time.Time) {
	t.Helper()
	stored := models.RestoreStoredToken("", "wizzler", "access-0", "refresh-0", "Bearer",
		auth.NewScope("user-read-private"), expiresAt, time.Time{}, time.Time{})
	if err := f.store.Save(context.Background(), stored); err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}
	f.runner.config.Store.CurrentUser = "wizzler"
}

func (f *fixture) stored(t *testing.T) *models.StoredToken {
	t.Helper()
	stored, err := f.store.Get(context.Background(), "wizzler")
	if err != nil {
		t.Fatalf("expected stored token, got %v", err)
	}
	return stored
}

func TestAuthCommands(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		t.Run("stores token and records current user", func(t *testing.T) {
			f := newFixture(t, "http://127.0.0.1:3000/callback?code=abc&state=xyz\n")

			if err := f.run("auth", "login"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			stored := f.stored(t)
			if stored.AccessToken() != "access-0" || stored.RefreshToken() != "refresh-0" {
				t.Errorf("unexpected stored token: %s/%s", stored.AccessToken(), stored.RefreshToken())
			}
			if !stored.Scope().Contains("playlist-read-private") {
				t.Errorf("expected granted scope to be stored, got %v", stored.Scope())
			}

			out := f.output.String()
			for _, want := range []string{"Please paste redirect URL", "✓ Logged in as Wizzler", "memory store"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got %s", want, out)
				}
			}

			saved, err := shared.LoadConfig(f.path)
			if err != nil {
				t.Fatalf("expected config to be saved, got %v", err)
			}
			if saved.Store.CurrentUser != "wizzler" {
				t.Errorf("expected current_user wizzler, got %q", saved.Store.CurrentUser)
			}

			if headers := f.api.authHeaders(); len(headers) != 1 || headers[0] != "Bearer access-0" {
				t.Errorf("expected profile request with new token, got %v", headers)
			}
		})

		t.Run("denied authorization", func(t *testing.T) {
			f := newFixture(t, "http://127.0.0.1:3000/callback?error=access_denied\n")

			err := f.run("auth", "login")
			if !errors.Is(err, shared.ErrMissingCode) {
				t.Fatalf("expected ErrMissingCode, got %v", err)
			}
			if !strings.Contains(err.Error(), "access_denied") {
				t.Errorf("expected denial reason in %v", err)
			}
		})

		t.Run("rejected code", func(t *testing.T) {
			f := newFixture(t, "http://127.0.0.1:3000/callback?code=stale\n")

			if err := f.run("auth", "login"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if _, err := f.store.Get(context.Background(), "wizzler"); !errors.Is(err, shared.ErrTokenNotFound) {
				t.Errorf("expected nothing stored, got %v", err)
			}
		})

		t.Run("unknown input", func(t *testing.T) {
			f := newFixture(t, "")

			if err := f.run("auth", "login", "--input", "carrier-pigeon"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("missing credentials", func(t *testing.T) {
			f := newFixture(t, "")
			f.runner.config.Credentials.Spotify.ClientSecret = ""

			if err := f.run("auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("status", func(t *testing.T) {
		t.Run("json", func(t *testing.T) {
			f := newFixture(t, "")
			f.login(t, time.Now().Add(time.Hour))
			f.runner.config.Credentials.Spotify = shared.SpotifyConfig{}

			if err := f.run("auth", "status", "--json"); err != nil {
				t.Fatalf("expected no error without credentials, got %v", err)
			}

			var status tokenStatus
			if err := json.Unmarshal(f.output.Bytes(), &status); err != nil {
				t.Fatalf("failed to decode status: %v", err)
			}
			if status.User != "wizzler" || status.TokenType != "Bearer" || status.Expiring {
				t.Errorf("unexpected status: %+v", status)
			}
			if len(status.Scope) != 1 || status.Scope[0] != "user-read-private" {
				t.Errorf("unexpected scope: %v", status.Scope)
			}
		})

		t.Run("expiring token", func(t *testing.T) {
			f := newFixture(t, "")
			f.login(t, time.Now().Add(10*time.Second))

			if err := f.run("auth", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(f.output.String(), "will refresh on next use") {
				t.Errorf("expected expiring status, got %s", f.output.String())
			}
			if f.stored(t).AccessToken() != "access-0" {
				t.Error("expected status not to refresh")
			}
		})

		t.Run("not logged in", func(t *testing.T) {
			f := newFixture(t, "")

			if err := f.run("auth", "status"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("unknown user", func(t *testing.T) {
			f := newFixture(t, "")
			f.login(t, time.Now().Add(time.Hour))

			if err := f.run("--user", "someone-else", "auth", "status"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("refresh persists the new token", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		if err := f.run("auth", "refresh"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		stored := f.stored(t)
		if stored.AccessToken() != "access-1" {
			t.Errorf("expected refreshed access token, got %s", stored.AccessToken())
		}
		if stored.RefreshToken() != "refresh-0" {
			t.Errorf("expected refresh token to be kept, got %s", stored.RefreshToken())
		}
		if !strings.Contains(f.output.String(), "✓ Token refreshed") {
			t.Errorf("unexpected output %s", f.output.String())
		}
	})

	t.Run("logout", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		if err := f.run("auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := f.store.Get(context.Background(), "wizzler"); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected token to be deleted, got %v", err)
		}
		if f.runner.config.Store.CurrentUser != "" {
			t.Errorf("expected current user to be cleared, got %s", f.runner.config.Store.CurrentUser)
		}
		tu.AssertFileExists(t, f.path)
	})
}

func TestSetup(t *testing.T) {
	f := newFixture(t, "")

	if err := f.run("setup"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tu.AssertFileExists(t, f.path)

	out := f.output.String()
	if !strings.Contains(out, "✓ Config written to") {
		t.Errorf("expected config message, got %s", out)
	}
	if !strings.Contains(out, "✓ Database ready at ./spotx.db") {
		t.Errorf("expected store message, got %s", out)
	}
}

func TestSetupExistingConfig(t *testing.T) {
	f := newFixture(t, "")
	f.runner.config.Credentials.Spotify.ClientSecret = ""
	if err := shared.SaveConfig(f.path, f.runner.config); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	if err := f.run("setup"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	out := f.output.String()
	if strings.Contains(out, "✓ Config written to") {
		t.Errorf("expected existing config to be kept, got %s", out)
	}
	if !strings.Contains(out, "in-memory token store") || !strings.Contains(out, "Next: set credentials.spotify") {
		t.Errorf("unexpected output %s", out)
	}
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("expired token is refreshed on use", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(-time.Minute))

		if err := f.run("me"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if headers := f.api.authHeaders(); len(headers) != 1 || headers[0] != "Bearer access-1" {
			t.Errorf("expected request with refreshed token, got %v", headers)
		}
		if f.stored(t).AccessToken() != "access-1" {
			t.Error("expected refreshed token to be saved")
		}
		if !strings.Contains(f.output.String(), "Wizzler") {
			t.Errorf("expected profile output, got %s", f.output.String())
		}
	})

	t.Run("me json", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		if err := f.run("me", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var user services.SpotifyUser
		if err := json.Unmarshal(f.output.Bytes(), &user); err != nil || user.ID != "wizzler" {
			t.Errorf("unexpected user %+v (%v)", user, err)
		}
	})

	t.Run("not logged in", func(t *testing.T) {
		f := newFixture(t, "")

		if err := f.run("me"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("tracks", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want []string
		}{
			{"single", []string{"tracks", "get", "t1"}, []string{"Artist One - Song One", "Duration: 3:00", "ISRC: USRC12345678"}},
			{"several", []string{"tracks", "get", "t1", "t2"}, []string{"1. Artist One - Song One", "2. Artist Two - Song Two"}},
			{"features", []string{"tracks", "features", "t1", "t2"}, []string{"Tempo: 120.5 BPM", "t2: no audio features"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, "")
				f.login(t, time.Now().Add(time.Hour))

				if err := f.run(tt.args...); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				for _, want := range tt.want {
					if !strings.Contains(f.output.String(), want) {
						t.Errorf("expected output to contain %q, got %s", want, f.output.String())
					}
				}
			})
		}

		t.Run("without ids", func(t *testing.T) {
			f := newFixture(t, "")
			f.login(t, time.Now().Add(time.Hour))

			if err := f.run("tracks", "get"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("unknown id", func(t *testing.T) {
			f := newFixture(t, "")
			f.login(t, time.Now().Add(time.Hour))

			if err := f.run("tracks", "get", "nope"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("playlists list", func(t *testing.T) {
		for _, args := range [][]string{{"playlists", "list"}, {"pl", "list", "--all"}} {
			t.Run(strings.Join(args, " "), func(t *testing.T) {
				f := newFixture(t, "")
				f.login(t, time.Now().Add(time.Hour))

				if err := f.run(args...); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				out := f.output.String()
				if !strings.Contains(out, "Found 1 playlists") || !strings.Contains(out, "1. Road Trip") {
					t.Errorf("unexpected output %s", out)
				}
			})
		}
	})

	t.Run("playlists get", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		if err := f.run("playlists", "get", "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		for _, want := range []string{"Road Trip", "Owner: Wizzler · 2 tracks · Public", "2. Artist Two - Song Two [3:20]"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %s", want, out)
			}
		}
	})

	t.Run("playlists get --pick", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		original := pickPlaylist
		t.Cleanup(func() { pickPlaylist = original })

		var offered []services.SpotifySimplePlaylist
		pickPlaylist = func(_ context.Context, playlists []services.SpotifySimplePlaylist) (string, error) {
			offered = playlists
			return playlists[0].ID, nil
		}

		if err := f.run("playlists", "get", "--pick", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(offered) != 1 {
			t.Errorf("expected picker to be offered 1 playlist, got %d", len(offered))
		}

		var playlist services.SpotifyPlaylist
		if err := json.Unmarshal(f.output.Bytes(), &playlist); err != nil || playlist.ID != "p1" {
			t.Errorf("unexpected playlist %+v (%v)", playlist.ID, err)
		}
	})

	t.Run("playlists get --pick cancelled", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		original := pickPlaylist
		t.Cleanup(func() { pickPlaylist = original })
		pickPlaylist = func(context.Context, []services.SpotifySimplePlaylist) (string, error) {
			return "", shared.ErrCancelled
		}

		if err := f.run("playlists", "get", "--pick"); !errors.Is(err, shared.ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", err)
		}
	})

	t.Run("playlists export", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))
		dir := filepath.Join(t.TempDir(), "out")

		if err := f.run("playlists", "export", "--format", "csv", "--output", dir, "p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "p1_tracks.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "p1_metadata.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

		csv := tu.MustReadFile(t, filepath.Join(dir, "p1_tracks.csv"))
		if !strings.Contains(csv, "t2,Song Two,Artist Two,Album Two,200,") {
			t.Errorf("unexpected csv %s", csv)
		}
		if !strings.Contains(f.output.String(), "Exported 1 of 1 playlists") {
			t.Errorf("unexpected output %s", f.output.String())
		}
	})

	t.Run("playlists export errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"bad format", []string{"playlists", "export", "--format", "xml", "p1"}, shared.ErrInvalidArgument},
			{"no ids", []string{"playlists", "export"}, shared.ErrMissingArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, "")
				f.login(t, time.Now().Add(time.Hour))

				if err := f.run(tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("saved", func(t *testing.T) {
		f := newFixture(t, "")
		f.login(t, time.Now().Add(time.Hour))

		if err := f.run("saved"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Saved tracks 1-1 of 1") || !strings.Contains(out, "1. Artist One - Song One") {
			t.Errorf("unexpected output %s", out)
		}
	})
}
