package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/server"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// lineReader picks where the redirect URL comes from.
func (r *Runner) lineReader(ctx context.Context, input, redirectURI, state string) (auth.LineReader, error) {
	switch strings.ToLower(input) {
	case "", "console":
		return auth.NewConsoleReader(r.input), nil
	case "callback":
		reader, err := server.NewCallbackReader(ctx, redirectURI, state, r.logger)
		if err != nil {
			return nil, err
		}
		if _, err := reader.Listen(); err != nil {
			return nil, err
		}
		return reader, nil
	case "tui":
		return ui.NewTextInputReader(ctx, "Paste the redirect URL from your browser"), nil
	default:
		return nil, fmt.Errorf("%w: unknown input %q (want console, callback or tui)", shared.ErrInvalidArgument, input)
	}
}

func (r *Runner) loginScope(cmd *cli.Command) auth.Scope {
	if raw := cmd.String("scope"); raw != "" {
		return auth.ParseScope(raw)
	}
	return auth.NewScope(r.config.Credentials.Spotify.Scope...)
}

// AuthLogin runs the authorization code flow and stores the resulting token under the user's id.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	state := shared.GenerateState()
	creds, err := r.newCredentials(cmd, r.loginScope(cmd), auth.WithState(state))
	if err != nil {
		return err
	}

	input := cmd.String("input")
	reader, err := r.lineReader(ctx, input, creds.RedirectURI(), state)
	if err != nil {
		return err
	}

	r.logger.Info("starting Spotify authorization", "input", input)

	token, err := auth.Prompt(ctx, creds, auth.PromptOpts{
		Input:   reader,
		Output:  r.output,
		Browser: r.browser,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}

	svc, err := r.spotifyService(token)
	if err != nil {
		return err
	}
	user, err := svc.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	stored, err := models.NewStoredToken(user.ID, token)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, stored); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.config.Store.CurrentUser = user.ID
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to record current user in config", "path", r.configPath, "error", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.writePlainln("✓ Logged in as %s", name)
	r.writePlain("✓ Token saved to the %s store\n", repositories.ParseStoreType(r.config.Store.Type))
	return nil
}

type tokenStatus struct {
	User      string    `json:"user"`
	TokenType string    `json:"token_type"`
	Scope     []string  `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn string    `json:"expires_in"`
	Expiring  bool      `json:"expiring"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthStatus shows the stored token without refreshing it, so no client credentials are needed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	_, stored, err := r.storedToken(ctx, cmd)
	if err != nil {
		return err
	}

	token := stored.Token()
	status := tokenStatus{
		User:      stored.UserID(),
		TokenType: stored.TokenType(),
		Scope:     stored.Scope(),
		ExpiresAt: stored.ExpiresAt(),
		Expiring:  token.IsExpiring(),
		UpdatedAt: stored.UpdatedAt(),
	}
	if in, err := token.ExpiresIn(); err == nil {
		status.ExpiresIn = in.Round(time.Second).String()
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Spotify token")
	r.writePlain("User:       %s\n", status.User)
	r.writePlain("Type:       %s\n", status.TokenType)
	r.writePlain("Scope:      %s\n", stored.Scope().String())
	if status.ExpiresAt.IsZero() {
		r.writePlain("Expires:    never\n")
	} else {
		r.writePlain("Expires:    %s (in %s)\n", status.ExpiresAt.Format(time.RFC3339), status.ExpiresIn)
	}
	if status.Expiring {
		r.writePlain("Status:     expiring, will refresh on next use\n")
	} else {
		r.writePlain("Status:     valid\n")
	}
	return nil
}

// AuthRefresh forces a refresh. The refresh callback writes the new token to the store.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	token, stored, err := r.loadToken(ctx, cmd)
	if err != nil {
		return err
	}

	if err := token.Refresh(); err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	expiresAt, err := token.ExpiresAt()
	if err != nil {
		return err
	}
	r.logger.Info("token refreshed", "user", stored.UserID())
	return r.writePlain("✓ Token refreshed, expires %s\n", expiresAt.Format(time.RFC3339))
}

// AuthLogout deletes the stored token and clears the current user.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	userID, err := r.currentUser(cmd)
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, userID); err != nil && !errors.Is(err, shared.ErrTokenNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if r.config.Store.CurrentUser == userID {
		r.config.Store.CurrentUser = ""
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			r.logger.Warn("failed to clear current user in config", "path", r.configPath, "error", err)
		}
	}

	return r.writePlain("✓ Logged out %s\n", userID)
}
