// Package match implements the site matcher.
//
// Matching is bidirectional substring containment: an entry matches when
// the hostname contains it OR it contains the hostname, both lowercased.
// This is deliberately loose. It catches subdomains ("m.youtube.com" vs
// "youtube.com") but also produces false positives on short fragments
// (an entry "tube.com" matches "youtube.com"). That breadth is a known
// trade-off carried for behavioral fidelity, not a bug; a stricter
// domain-suffix match is a candidate for a future revision.
package match

import (
	"fmt"
	"net/url"
	"strings"
)

// Hostname extracts the hostname from a raw URL. Any parse failure or a
// URL without a host (about:blank, malformed input) is an error; callers
// treat that as non-blockable.
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url has no host: %q", rawURL)
	}
	return strings.ToLower(host), nil
}

// Matches reports whether hostname is targeted by any entry in
// blockedSites. Entries are lowercased again here; add-time lowercasing
// is the only other normalization performed.
func Matches(hostname string, blockedSites []string) bool {
	host := strings.ToLower(hostname)
	for _, site := range blockedSites {
		s := strings.ToLower(site)
		if s == "" {
			continue
		}
		if strings.Contains(host, s) || strings.Contains(s, host) {
			return true
		}
	}
	return false
}

// Normalize prepares a user-entered site for storage. Lowercasing is the
// only normalization performed; fragments are stored as typed.
func Normalize(entry string) string {
	return strings.ToLower(strings.TrimSpace(entry))
}
