// Package server provides HTTP routing, middleware, and the OAuth callback listener used by `spotx auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns.
//
// # Callback Listener
//
// [CallbackHandler] serves the redirect URI of the Spotify application. It validates the state parameter,
// answers the browser and sends the full redirect URL through a channel. It only processes one callback.
//
// [CallbackReader] wraps the handler in a short-lived HTTP server and implements auth.LineReader, so the
// interactive prompt can take the redirect URL from the browser instead of the terminal. Code extraction
// stays with the prompt.
package server
