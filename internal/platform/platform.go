// Package platform canonicalizes URLs for duplicate detection and classifies
// them by content platform and media kind.
package platform

import (
	"net/url"
	"strings"

	"trackforge/internal/constants"
	apperr "trackforge/internal/errors"
)

// baseHost is the root domain shared by both platforms in their various
// subdomain forms (track/album pages live on the bare domain, watch/playlist
// pages live on a music/m. subdomain of the same domain).
const baseHost = "host.tld"

var mSubdomainPrefixes = []string{"m.", "music."}

// Normalize trims, lowercases the scheme and host, and preserves path, query
// and fragment byte-for-byte. If parsing fails, it falls back to a trimmed,
// lowercased copy of the input so the function never errors.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(trimmed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	return parsed.String()
}

// Detect classifies a URL's provider and media kind. The second return value
// is false when the URL matches neither platform's shape.
func Detect(rawURL string) (constants.Provider, constants.MediaKind, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "", "", false
	}

	host := strings.ToLower(parsed.Host)
	path := parsed.Path

	if isMHost(host) {
		switch {
		case strings.HasPrefix(path, "/watch"):
			return constants.ProviderM, constants.KindTrack, true
		case strings.HasPrefix(path, "/playlist"):
			return constants.ProviderM, constants.KindAlbum, true
		default:
			return "", "", false
		}
	}

	if isAHost(host) {
		switch {
		case strings.HasPrefix(path, "/track/"):
			return constants.ProviderA, constants.KindTrack, true
		case strings.HasPrefix(path, "/album/"):
			return constants.ProviderA, constants.KindAlbum, true
		default:
			return "", "", false
		}
	}

	return "", "", false
}

// Validate returns the detected provider, or fails with KindInvalidURL if the
// URL doesn't match either platform's shape.
func Validate(rawURL string) (constants.Provider, error) {
	provider, _, ok := Detect(rawURL)
	if !ok {
		return "", apperr.NewWithMessage("platform.Validate", apperr.ErrInvalidURL, "URL does not match a supported platform")
	}
	return provider, nil
}

func isAHost(host string) bool {
	if host == baseHost {
		return true
	}
	for _, prefix := range mSubdomainPrefixes {
		if strings.HasPrefix(host, prefix) {
			return false
		}
	}
	return strings.HasSuffix(host, "."+baseHost)
}

func isMHost(host string) bool {
	for _, prefix := range mSubdomainPrefixes {
		if strings.HasPrefix(host, prefix+baseHost) {
			return true
		}
	}
	return false
}
