package policy

import (
	"regexp"
	"strings"

	"mailscan/internal/urlnorm"
	"mailscan/pkg/serrors"
)

// Allowlist holds the compiled exclusion rules. A match excludes the URL from
// the suspicious escalation count; it never changes the verdict itself.
type Allowlist struct {
	domains  []string
	prefixes []string
	patterns []*regexp.Regexp
}

// ParseAllowlist compiles textual rules. Three forms are supported:
//
//	example.com          matches the host and any subdomain
//	https://example.com/ matches URLs by literal prefix
//	/pattern/            matches URLs against a regular expression
//
// An invalid regex rule fails the whole parse so a typo cannot silently
// disable an exclusion.
func ParseAllowlist(rules []string) (*Allowlist, error) {
	al := &Allowlist{}
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		switch {
		case rule == "":
			continue
		case strings.HasPrefix(rule, "/") && strings.HasSuffix(rule, "/") && len(rule) > 2:
			re, err := regexp.Compile(rule[1 : len(rule)-1])
			if err != nil {
				return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid allowlist pattern %q", rule)
			}
			al.patterns = append(al.patterns, re)
		case strings.HasPrefix(rule, "http://") || strings.HasPrefix(rule, "https://"):
			al.prefixes = append(al.prefixes, rule)
		default:
			al.domains = append(al.domains, strings.ToLower(strings.TrimPrefix(rule, "www.")))
		}
	}

	return al, nil
}

// Match reports whether the canonical URL is excluded by any rule.
func (a *Allowlist) Match(URL string) bool {
	for _, p := range a.prefixes {
		if strings.HasPrefix(URL, p) {
			return true
		}
	}
	for _, re := range a.patterns {
		if re.MatchString(URL) {
			return true
		}
	}

	host := urlnorm.Host(URL)
	if host == "" {
		return false
	}
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}
