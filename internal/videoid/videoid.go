// Package videoid derives stable external ids from short-form video URLs.
package videoid

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrNotReelURL is returned for URLs that don't point at a single reel or post.
var ErrNotReelURL = errors.New("not a reel url")

// Well-known host aliases. Key: input host. Value: canonical domain.
var canonicalDomainByHost = map[string]string{
	"instagram.com":     "www.instagram.com",
	"www.instagram.com": "www.instagram.com",
	"m.instagram.com":   "www.instagram.com",
	"instagr.am":        "www.instagram.com",
	"www.instagr.am":    "www.instagram.com",
}

// Any host, then /reel/<id>, /reels/<id> or /p/<id>, optionally followed by more path.
var reelPathRe = regexp.MustCompile(`^/(reels?|p)/([A-Za-z0-9_-]+)(?:/.*)?$`)

// ResolveCanonicalDomain returns the canonical domain for host.
//
// host should be a hostname without port.
func ResolveCanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// Reel is a parsed reel URL.
type Reel struct {
	// ExternalID is the platform's shortcode, e.g. "C1a2B3c4D5e".
	ExternalID string
	// URL is the canonical https URL with query and fragment removed.
	URL string
}

// ParseReelURL extracts the external id from a reel or post URL and returns
// a canonical form of the URL for downloading.
func ParseReelURL(raw string) (Reel, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reel{}, errors.New("missing url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Reel{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Reel{}, ErrNotReelURL
	}
	host := normalizeHost(u.Host)
	if host == "" {
		return Reel{}, ErrNotReelURL
	}

	m := reelPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return Reel{}, ErrNotReelURL
	}

	section := m[1]
	if section == "reels" {
		section = "reel"
	}
	canon := url.URL{
		Scheme: "https",
		Host:   ResolveCanonicalDomain(host),
		Path:   "/" + section + "/" + m[2] + "/",
	}
	return Reel{ExternalID: m[2], URL: canon.String()}, nil
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	h = strings.TrimSuffix(h, ".")
	return h
}
