package auth

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/desertthunder/spotx/internal/shared"
)

// ParseCodeFromURL returns the single "code" query parameter of rawURL.
//
// Blank values are ignored. Fails with [shared.ErrMissingCode] when there is no code (including an
// empty or unparsable URL) and with [shared.ErrAmbiguousCode] when the parameter is repeated.
func ParseCodeFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMissingCode, err)
	}

	query := u.Query()
	codes := slices.DeleteFunc(slices.Clone(query["code"]), func(c string) bool { return c == "" })
	switch len(codes) {
	case 0:
		if reason := query.Get("error"); reason != "" {
			return "", fmt.Errorf("%w: authorization denied: %s", shared.ErrMissingCode, reason)
		}
		return "", shared.ErrMissingCode
	case 1:
		return codes[0], nil
	default:
		return "", fmt.Errorf("%w: got %d", shared.ErrAmbiguousCode, len(codes))
	}
}
