// Package urlnorm normalizes, de-obfuscates and deduplicates raw URL strings
// extracted from a message. The canonical string form is the identity key for
// deduplication, caching and reporting.
package urlnorm

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"

	"mailscan/pkg/domain"
)

// trackingParams are query keys stripped during canonicalization. They change
// URL identity without changing the destination.
var trackingParams = map[string]bool{ //nolint: gochecknoglobals
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
}

var (
	hxxpRe      = regexp.MustCompile(`(?i)hxxp(s?)://`)
	dotWordRe   = regexp.MustCompile(`(?i)\(dot\)`)
	zeroWidthRe = regexp.MustCompile("[\\x{200B}-\\x{200D}\\x{FEFF}]")
	spaceRe     = regexp.MustCompile(`\s+`)
	schemeRe    = regexp.MustCompile(`(?i)^https?://`)
)

// stripQuotes removes one layer of symmetric bounding characters
// (angle brackets or quotes) around the value.
func stripQuotes(u string) string {
	u = strings.TrimSpace(u)
	if len(u) < 2 {
		return u
	}
	pairs := [][2]byte{{'<', '>'}, {'"', '"'}, {'\'', '\''}}
	for _, p := range pairs {
		if u[0] == p[0] && u[len(u)-1] == p[1] {
			return u[1 : len(u)-1]
		}
	}

	return u
}

// deobfuscate reverses common de-fanging substitutions used in phishing
// write-ups and forwarded abuse reports.
func deobfuscate(u string) string {
	u = hxxpRe.ReplaceAllString(u, "http$1://")
	u = strings.ReplaceAll(u, "[.]", ".")
	u = dotWordRe.ReplaceAllString(u, ".")
	u = strings.ReplaceAll(u, "：//", "://")
	u = strings.ReplaceAll(u, "\\", "/")

	return u
}

// Canonicalize returns the canonical, normalized representation of a raw URL
// string.
//
// The pipeline is intentionally strict and opinionated to make deduplication
// stable:
//   - Strip bounding quotes/angle brackets if symmetric
//   - Reverse de-fanging (hxxp, [.], (dot), backslashes)
//   - Remove zero-width characters and whitespace
//   - Coerce protocol-relative input to https
//   - Reject anything that is not http(s) after the corrections
//   - Strip the fragment
//   - Lowercase scheme and host, strip a leading "www.", drop default ports
//   - Clean the path, re-encode it idempotently, trim the trailing slash
//     (except for the root path "/")
//   - Re-serialize the query sorted by key, dropping known tracking params
//
// Applying Canonicalize twice yields the same result as applying it once.
// Malformed input yields an error, never a panic.
func Canonicalize(raw string) (string, error) {
	u := stripQuotes(raw)
	u = deobfuscate(u)
	u = zeroWidthRe.ReplaceAllString(u, "")
	u = spaceRe.ReplaceAllString(u, "")

	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if !schemeRe.MatchString(u) {
		return "", fmt.Errorf("not an http(s) URL: %q", raw)
	}

	// fragment never participates in identity
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)

	// lowercase host, strip www., drop default ports
	host := strings.ToLower(parsed.Host)
	port := ""
	if ph, pp, err := net.SplitHostPort(host); err == nil {
		host, port = ph, pp
	} // else: host without explicit port or IPv6 without port
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("empty host in %q", raw)
	}
	if port != "" &&
		!(parsed.Scheme == "http" && port == "80") &&
		!(parsed.Scheme == "https" && port == "443") {
		parsed.Host = net.JoinHostPort(host, port)
	} else {
		parsed.Host = host
	}

	// clean and idempotently re-encode the path
	p := parsed.Path
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	parsed.Path = p
	parsed.RawPath = "" // force re-encoding from the decoded form

	// canonical query: parse, drop tracking params, re-serialize sorted
	if parsed.RawQuery != "" {
		q := parsed.Query()
		for k := range q {
			if trackingParams[strings.ToLower(k)] {
				q.Del(k)
			}
		}
		parsed.RawQuery = q.Encode()
	}
	parsed.Fragment = ""

	return parsed.String(), nil
}

// Dedupe canonicalizes every candidate and returns the ordered set of unique
// canonical URLs plus a mapping back to the first candidate that produced
// each. Candidates that fail canonicalization are silently dropped.
func Dedupe(candidates []domain.CandidateURL) ([]string, map[string]domain.CandidateURL) {
	var order []string
	byURL := make(map[string]domain.CandidateURL, len(candidates))
	for _, c := range candidates {
		canon, err := Canonicalize(c.Raw)
		if err != nil {
			continue
		}
		if _, ok := byURL[canon]; ok {
			continue
		}
		byURL[canon] = c
		order = append(order, canon)
	}

	return order, byURL
}

// Host returns the lowercased host (without a leading "www.") of a URL, or
// the empty string when it cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	h := strings.ToLower(u.Hostname())

	return strings.TrimPrefix(h, "www.")
}
