package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")
	ErrCancelled      = fmt.Errorf("cancelled")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization code errors
	ErrMissingCode   = fmt.Errorf("authorization code missing from redirect URL")
	ErrAmbiguousCode = fmt.Errorf("multiple authorization codes in redirect URL")
	ErrStateMismatch = fmt.Errorf("state parameter mismatch")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Storage errors
	ErrTokenNotFound = fmt.Errorf("token not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

var badInput = []error{
	ErrMissingCode, ErrAmbiguousCode, ErrStateMismatch, ErrMissingConfig, ErrInvalidConfig,
	ErrMissingCredentials, ErrInvalidInput, ErrMissingArgument, ErrInvalidArgument, ErrNoRefreshToken,
}

var upstream = []error{
	ErrAuthFailed, ErrTokenExpired, ErrAPIRequest, ErrRateLimited, ErrNotFound,
	ErrServiceUnavailable,
}

// IsBadInput reports whether err was caused by something the caller supplied (a pasted URL,
// an environment variable, a flag, a stored token). Callers typically re-prompt on these.
func IsBadInput(err error) bool {
	return matchesAny(err, badInput)
}

// IsUpstream reports whether err originated from the accounts service or the Web API.
func IsUpstream(err error) bool {
	return matchesAny(err, upstream)
}

func matchesAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
