// Package services implements a client for the Spotify Web API.
//
// [SpotifyService] authenticates every request with an [auth.TokenInfo]. Given an [auth.RefreshingToken],
// each request reads the access token through it, so an expiring token is refreshed before the request
// is sent and callers never handle expiry themselves.
//
// Requests pass through a [rate.Limiter] shared by the service.
//
// # Error Handling
//
// Non-2xx responses are mapped onto the sentinels of the shared package:
//   - [shared.ErrTokenExpired] : 401, the token was rejected
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrRateLimited] : 429
//   - [shared.ErrAPIRequest] : any other failure, including transport errors
//
// Errors from reading the token (a failed refresh) are returned unchanged.
package services
