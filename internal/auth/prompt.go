package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
)

var (
	stdin       io.Reader = os.Stdin
	stdout      io.Writer = os.Stdout
	openBrowser           = shared.OpenBrowser

	newCredentials = func(clientID, clientSecret, redirectURI string, scope Scope) Credentials {
		return NewSpotifyCredentials(clientID, clientSecret, redirectURI, scope)
	}
)

// PromptOpts holds the user-facing collaborators of [Prompt]. Nil fields fall back to the terminal,
// the system browser and a discarding logger.
type PromptOpts struct {
	Input   LineReader
	Output  io.Writer
	Browser func(url string) error
	Logger  *log.Logger
}

func (o PromptOpts) withDefaults() PromptOpts {
	if o.Input == nil {
		o.Input = NewConsoleReader(stdin)
	}
	if o.Output == nil {
		o.Output = stdout
	}
	if o.Browser == nil {
		o.Browser = openBrowser
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// PromptForUserToken runs the authorization code flow in the terminal for a Spotify application and
// returns a self-refreshing user token.
func PromptForUserToken(ctx context.Context, clientID, clientSecret, redirectURI string, scope Scope) (*RefreshingToken, error) {
	creds := newCredentials(clientID, clientSecret, redirectURI, scope)
	return Prompt(ctx, creds, PromptOpts{})
}

// Prompt sends the user to the authorization URL of creds, waits for the redirect URL to be supplied
// through opts.Input and exchanges the code it carries.
//
// Input is read exactly once. Errors from code extraction and from creds are returned unchanged.
func Prompt(ctx context.Context, creds Credentials, opts PromptOpts) (*RefreshingToken, error) {
	opts = opts.withDefaults()
	authURL := creds.AuthorizationURL()

	fmt.Fprintln(opts.Output, "Opening browser for Spotify login...")
	if err := opts.Browser(authURL); err != nil {
		opts.Logger.Warn("failed to open browser", "error", err)
	}
	fmt.Fprintf(opts.Output, "If nothing opened, visit:\n%s\n\n", authURL)
	fmt.Fprint(opts.Output, "Please paste redirect URL: ")

	line, err := opts.Input.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read redirect URL: %w", err)
	}

	code, err := ParseCodeFromURL(strings.TrimSpace(line))
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("authorization code received")

	token, err := creds.RequestAccessToken(ctx, code)
	if err != nil {
		return nil, err
	}

	rt := NewRefreshingToken(ctx, token, creds)
	rt.SetLogger(opts.Logger)
	return rt, nil
}
