// Package auth implements the Spotify authorization code flow and a self-refreshing access token.
//
// # Tokens
//
// [Token] is an immutable access token as issued by the accounts service. It reports itself as expiring
// once the current time is within [ExpiryMargin] of its expiry instant.
//
// [RefreshingToken] wraps a Token and a [Credentials] capability. Every attribute read first asks the held
// Token whether it is expiring and, if so, swaps in the result of [Credentials.RefreshToken] before
// answering. Both types implement [TokenInfo], so code that reads tokens does not care which one it has.
// Reads are serialized: concurrent readers during an expiry trigger exactly one refresh.
//
// # Credentials
//
// [Credentials] is the capability the flow consumes: an authorization URL, code exchange and refresh.
// [SpotifyCredentials] implements it with [golang.org/x/oauth2]. Failures are wrapped with
// [shared.ErrAuthFailed] when the accounts service rejects a grant and [shared.ErrAPIRequest] otherwise.
//
// # Prompting for a user token
//
// [Prompt] prints the authorization URL, tries to open a browser and then blocks on a single
// [LineReader.ReadLine] for the redirect URL the user lands on. [ParseCodeFromURL] pulls the code out of
// that URL; a missing or repeated code aborts the prompt with [shared.ErrMissingCode] or
// [shared.ErrAmbiguousCode]. There is no timeout and no retry.
package auth
