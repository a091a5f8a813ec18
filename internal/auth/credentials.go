package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Credentials is the client capability used by the authorization flow and by [RefreshingToken].
type Credentials interface {
	// AuthorizationURL returns the URL the user visits to grant access.
	AuthorizationURL() string
	// RequestAccessToken exchanges an authorization code for a token.
	RequestAccessToken(ctx context.Context, code string) (*Token, error)
	// RefreshToken obtains a new token using the refresh token of token.
	RefreshToken(ctx context.Context, token *Token) (*Token, error)
}

// SpotifyCredentials implements [Credentials] against the Spotify accounts service with [oauth2].
type SpotifyCredentials struct {
	config     *oauth2.Config
	state      string
	httpClient *http.Client
	logger     *log.Logger
}

var _ Credentials = (*SpotifyCredentials)(nil)

// CredentialsOption configures [SpotifyCredentials].
type CredentialsOption func(*SpotifyCredentials)

// WithEndpoint overrides the accounts service URLs.
func WithEndpoint(authURL, tokenURL string) CredentialsOption {
	return func(s *SpotifyCredentials) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) CredentialsOption {
	return func(s *SpotifyCredentials) { s.httpClient = c }
}

// WithState fixes the state parameter instead of generating one.
func WithState(state string) CredentialsOption {
	return func(s *SpotifyCredentials) { s.state = state }
}

// WithCredentialsLogger sets the logger for token requests.
func WithCredentialsLogger(l *log.Logger) CredentialsOption {
	return func(s *SpotifyCredentials) { s.logger = l }
}

// NewSpotifyCredentials creates credentials for a Spotify application. Each instance carries its own random
// state value, included in [SpotifyCredentials.AuthorizationURL].
func NewSpotifyCredentials(clientID, clientSecret, redirectURI string, scope Scope, opts ...CredentialsOption) *SpotifyCredentials {
	s := &SpotifyCredentials{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scope,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyAuthURL,
				TokenURL:  spotifyTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		state:  shared.GenerateState(),
		logger: log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state parameter sent with the authorization URL.
func (s *SpotifyCredentials) State() string {
	return s.state
}

// RedirectURI returns the registered redirect URI.
func (s *SpotifyCredentials) RedirectURI() string {
	return s.config.RedirectURL
}

func (s *SpotifyCredentials) AuthorizationURL() string {
	return s.config.AuthCodeURL(s.state)
}

func (s *SpotifyCredentials) RequestAccessToken(ctx context.Context, code string) (*Token, error) {
	s.logger.Debug("exchanging authorization code")

	tok, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, classify("code exchange", err)
	}

	return NewToken(tok), nil
}

// RefreshToken requests a new access token. When the response omits a refresh token or scope, the values
// of the previous token are kept.
func (s *SpotifyCredentials) RefreshToken(ctx context.Context, token *Token) (*Token, error) {
	if token == nil || token.refreshToken == "" {
		return nil, fmt.Errorf("%w: cannot refresh", shared.ErrNoRefreshToken)
	}

	s.logger.Debug("refreshing access token")

	src := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: token.refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classify("token refresh", err)
	}

	fresh := NewToken(tok)
	if fresh.refreshToken == "" {
		fresh.refreshToken = token.refreshToken
	}
	if len(fresh.scope) == 0 {
		fresh.scope = slices.Clone(token.scope)
	}
	return fresh, nil
}

func (s *SpotifyCredentials) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// classify separates grants rejected by the accounts service from transport failures.
func classify(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, op, err)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
}
