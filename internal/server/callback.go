package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// CallbackResult is the outcome of one callback request.
type CallbackResult struct {
	URL string
	err error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler handles the redirect of the authorization code flow.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	base       *url.URL
	state      string
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	hit        bool
}

// NewCallbackHandler creates a handler for the path of redirectURI that expects state.
func NewCallbackHandler(redirectURI *url.URL, state string) *CallbackHandler {
	return &CallbackHandler{
		base:       redirectURI,
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	path := h.base.Path
	if path == "" {
		path = "/"
	}
	return []string{"GET " + path}
}

// ServeHTTP validates the state parameter and sends the full redirect URL through the result channel.
// A response without a code still counts as the callback; the caller decides what a denial means.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(CallbackResult{err: fmt.Errorf("%w: callback state does not match", shared.ErrStateMismatch)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	redirect := *h.base
	redirect.RawQuery = r.URL.RawQuery
	redirect.Fragment = ""
	h.Send(CallbackResult{URL: redirect.String()})

	page := resultPage{
		Title:   "Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		Color:   "#1DB954",
	}
	if query.Get("code") == "" {
		page = resultPage{
			Title:   "Authorization Failed",
			Message: "Spotify did not grant access: " + query.Get("error"),
			Color:   "#E22134",
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = resultTemplate.Execute(w, page)
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving callback completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

type resultPage struct {
	Title   string
	Message string
	Color   string
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

// CallbackReader receives the redirect URL from the browser. It listens on the host and port of the
// redirect URI, which must therefore point at this machine.
type CallbackReader struct {
	ctx      context.Context
	redirect *url.URL
	handler  *CallbackHandler
	logger   *log.Logger

	listener net.Listener
	done     bool
}

// NewCallbackReader creates a reader for redirectURI expecting state. ctx cancels a pending ReadLine.
func NewCallbackReader(ctx context.Context, redirectURI, state string, logger *log.Logger) (*CallbackReader, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect URI: %v", shared.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect URI must be an http URL with a host, got %q", shared.ErrInvalidConfig, redirectURI)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &CallbackReader{
		ctx:      ctx,
		redirect: u,
		handler:  NewCallbackHandler(u, state),
		logger:   logger,
	}, nil
}

// Listen binds the callback address. ReadLine calls it when needed; calling it first surfaces port
// conflicts before the browser is opened.
func (c *CallbackReader) Listen() (net.Addr, error) {
	if c.listener != nil {
		return c.listener.Addr(), nil
	}

	host := c.redirect.Host
	if c.redirect.Port() == "" {
		host = net.JoinHostPort(c.redirect.Hostname(), "80")
	}

	ln, err := net.Listen("tcp", host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for callback on %s: %w", host, err)
	}
	c.listener = ln
	return ln.Addr(), nil
}

// ReadLine serves the callback until one arrives and returns the redirect URL the browser was sent to.
// Only the first call can succeed; later calls return [io.EOF].
func (c *CallbackReader) ReadLine() (string, error) {
	if c.done {
		return "", io.EOF
	}
	c.done = true

	if _, err := c.Listen(); err != nil {
		return "", err
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(c.logger))
	router.Handler(c.handler)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(c.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	c.logger.Info("waiting for Spotify callback", "addr", c.listener.Addr().String())

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			c.logger.Warn("callback server shutdown", "error", err)
		}
		c.listener = nil
	}()

	select {
	case result := <-c.handler.Result():
		if err := result.Error(); err != nil {
			return "", err
		}
		return result.URL, nil
	case err := <-serveErr:
		return "", fmt.Errorf("callback server failed: %w", err)
	case <-c.ctx.Done():
		return "", c.ctx.Err()
	}
}
