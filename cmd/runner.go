package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	store       models.TokenStore
	newStore    func(repositories.Config) (models.TokenStore, error)
	httpClient  *http.Client
	credentials []auth.CredentialsOption
	browser     func(string) error
	input       io.Reader
	logger      *log.Logger
	output      io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config path before the first command runs.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Store       models.TokenStore
	HTTPClient  *http.Client
	Credentials []auth.CredentialsOption
	Browser     func(string) error
	Input       io.Reader
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		store:       opts.Store,
		newStore:    repositories.NewStore,
		httpClient:  opts.HTTPClient,
		credentials: opts.Credentials,
		browser:     opts.Browser,
		input:       opts.Input,
		logger:      opts.Logger,
		output:      opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, meCommand, tracksCommand, playlistsCommand, savedCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies --debug.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	if r.config != nil {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// Close releases the token store if one was opened.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Runner) openStore() (models.TokenStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := r.newStore(repositories.ConfigFrom(r.config))
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	r.logger.Debug("token store opened", "type", r.config.Store.Type)
	r.store = store
	return store, nil
}

// resolveCredentials returns the client id, secret and redirect URI from the config file, or from the
// environment when --env is set. Explicit flags win over both.
func (r *Runner) resolveCredentials(cmd *cli.Command) (string, string, string, error) {
	spotify := r.config.Credentials.Spotify
	id, secret, uri := spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI

	if cmd.Bool("env") {
		var err error
		idVar, secretVar, uriVar := r.config.Environment.Names()
		if id, secret, uri, err = shared.ReadEnvironment(idVar, secretVar, uriVar); err != nil {
			return "", "", "", err
		}
	}

	if v := cmd.String("client-id"); v != "" {
		id = v
	}
	if v := cmd.String("client-secret"); v != "" {
		secret = v
	}
	if v := cmd.String("redirect-uri"); v != "" {
		uri = v
	}

	if id == "" || secret == "" || uri == "" {
		return "", "", "", fmt.Errorf("%w: Spotify client_id, client_secret and redirect_uri are required", shared.ErrMissingCredentials)
	}
	return id, secret, uri, nil
}

func (r *Runner) newCredentials(cmd *cli.Command, scope auth.Scope, extra ...auth.CredentialsOption) (*auth.SpotifyCredentials, error) {
	id, secret, uri, err := r.resolveCredentials(cmd)
	if err != nil {
		return nil, err
	}

	opts := []auth.CredentialsOption{auth.WithHTTPClient(r.httpClient), auth.WithCredentialsLogger(r.logger)}
	opts = append(opts, r.credentials...)
	opts = append(opts, extra...)
	return auth.NewSpotifyCredentials(id, secret, uri, scope, opts...), nil
}

func (r *Runner) currentUser(cmd *cli.Command) (string, error) {
	if user := cmd.String("user"); user != "" {
		return user, nil
	}
	if user := r.config.Store.CurrentUser; user != "" {
		return user, nil
	}
	return "", fmt.Errorf("%w: run 'spotx auth login' first", shared.ErrNotAuthenticated)
}

// storedToken reads the token of the current user from the store.
func (r *Runner) storedToken(ctx context.Context, cmd *cli.Command) (models.TokenStore, *models.StoredToken, error) {
	userID, err := r.currentUser(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}

	stored, err := store.Get(ctx, userID)
	if errors.Is(err, shared.ErrTokenNotFound) {
		return nil, nil, fmt.Errorf("%w: no token stored for %s", shared.ErrNotAuthenticated, userID)
	} else if err != nil {
		return nil, nil, err
	}
	return store, stored, nil
}

// loadToken restores the stored token of the current user as a [auth.RefreshingToken] whose refreshes
// are written back to the store.
func (r *Runner) loadToken(ctx context.Context, cmd *cli.Command) (*auth.RefreshingToken, *models.StoredToken, error) {
	store, stored, err := r.storedToken(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	creds, err := r.newCredentials(cmd, stored.Scope())
	if err != nil {
		return nil, nil, err
	}

	token := auth.NewRefreshingToken(ctx, stored.Token(), creds)
	token.SetLogger(r.logger)
	token.SetRefreshCallback(r.persistToken(ctx, store, stored.UserID()))
	return token, stored, nil
}

// persistToken returns a refresh callback saving each new token for userID.
func (r *Runner) persistToken(ctx context.Context, store models.TokenStore, userID string) func(*auth.Token) {
	return func(tok *auth.Token) {
		stored, err := models.NewStoredToken(userID, tok)
		if err != nil {
			r.logger.Warn("failed to capture refreshed token", "error", err)
			return
		}
		if err := store.Save(ctx, stored); err != nil {
			r.logger.Warn("failed to save refreshed token", "user", userID, "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "user", userID)
	}
}

func (r *Runner) spotifyService(token auth.TokenInfo) (*services.SpotifyService, error) {
	api := r.config.API
	opts := []services.Option{
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(api.RateLimit, api.Burst),
		services.WithLogger(r.logger),
	}
	if api.BaseURL != "" {
		opts = append(opts, services.WithBaseURL(api.BaseURL))
	}
	return services.NewSpotifyService(token, opts...)
}

// service builds an API client authenticated as the current user.
func (r *Runner) service(ctx context.Context, cmd *cli.Command) (*services.SpotifyService, error) {
	token, _, err := r.loadToken(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return r.spotifyService(token)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
