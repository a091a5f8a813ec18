package shared

import (
	"fmt"
	"os"
)

// Default environment variable names for Spotify application credentials.
const (
	ClientIDVar     = "SPOTIFY_CLIENT_ID"
	ClientSecretVar = "SPOTIFY_CLIENT_SECRET"
	RedirectURIVar  = "SPOTIFY_REDIRECT_URI"
)

// LookupFunc resolves a configuration value by name. The boolean reports presence.
type LookupFunc func(name string) (string, bool)

var lookupEnv LookupFunc = os.LookupEnv

// ReadEnvironment reads the client id, client secret and redirect URI from the process
// environment using the given variable names.
func ReadEnvironment(idName, secretName, uriName string) (string, string, string, error) {
	return ReadEnvironmentFrom(lookupEnv, idName, secretName, uriName)
}

// ReadEnvironmentFrom reads the three named values through lookup and returns them in the
// order id, secret, redirect URI.
//
// A name that lookup does not know fails with [ErrMissingConfig]. Present but empty values
// are returned unchanged.
func ReadEnvironmentFrom(lookup LookupFunc, idName, secretName, uriName string) (string, string, string, error) {
	names := [3]string{idName, secretName, uriName}
	var values [3]string

	for i, name := range names {
		value, ok := lookup(name)
		if !ok {
			return "", "", "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingConfig, name)
		}
		values[i] = value
	}

	return values[0], values[1], values[2], nil
}

// MapLookup returns a [LookupFunc] backed by m.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}
