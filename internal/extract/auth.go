package extract

import (
	"regexp"
	"strings"

	"mailscan/pkg/domain"
)

var authMethodRe = regexp.MustCompile(`(?i)\b(spf|dkim|dmarc)\s*=\s*([a-z]+)`)

// ParseAuthResults pulls the SPF, DKIM and DMARC outcomes out of an
// Authentication-Results header value. Missing methods are reported as
// "none"; a header with no recognizable method at all yields nil. When a
// method appears more than once, a failing outcome wins over a passing one
// so a partial forward cannot mask a failure.
func ParseAuthResults(header string) *domain.AuthResults {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	found := map[string]string{}
	for _, m := range authMethodRe.FindAllStringSubmatch(header, -1) {
		method := strings.ToLower(m[1])
		outcome := strings.ToLower(m[2])
		if prev, ok := found[method]; ok && !worse(outcome, prev) {
			continue
		}
		found[method] = outcome
	}
	if len(found) == 0 {
		return nil
	}

	get := func(method string) string {
		if v, ok := found[method]; ok {
			return v
		}

		return "none"
	}

	return &domain.AuthResults{
		SPF:   get("spf"),
		DKIM:  get("dkim"),
		DMARC: get("dmarc"),
	}
}

// worse orders outcomes by badness so duplicate methods keep the most
// alarming one.
func worse(a, b string) bool {
	rank := func(v string) int {
		switch v {
		case "fail", "permerror":
			return 3
		case "softfail", "temperror":
			return 2
		case "neutral", "none", "policy":
			return 1
		default: // pass
			return 0
		}
	}

	return rank(a) > rank(b)
}
