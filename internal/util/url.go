package util

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidSiteURL = errors.New("site url must be an absolute http or https url")

// MaxSiteURLLength matches the widest indexed root_url column (VARCHAR(191)
// on MySQL).
const MaxSiteURLLength = 191

// NormalizeSiteURL returns the canonical root url under which a site is
// stored: lowercase scheme and host, no query, fragment, userinfo or
// trailing slash.
func NormalizeSiteURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidSiteURL
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" || u.Opaque != "" {
		return "", ErrInvalidSiteURL
	}
	out := url.URL{
		Scheme: scheme,
		Host:   strings.ToLower(u.Host),
		Path:   strings.TrimRight(u.Path, "/"),
	}
	s := out.String()
	if len(s) > MaxSiteURLLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidSiteURL, MaxSiteURLLength)
	}
	return s, nil
}
