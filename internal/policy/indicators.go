package policy

import (
	"regexp"
	"strings"

	"mailscan/internal/urlnorm"
	"mailscan/pkg/domain"
)

// shortenerRe matches hosts of the common link-shortening services.
var shortenerRe = regexp.MustCompile(`(?i)^(?:www\.)?(?:bit\.ly|t\.co|goo\.gl|is\.gd|buff\.ly|ow\.ly|tinyurl\.com)$`)

// domainInTextRe finds a domain-looking token inside anchor text, so
// "log in at paypal.com" pointing at another host can be flagged.
var domainInTextRe = regexp.MustCompile(`(?i)(?:[a-z0-9-]+\.)+[a-z]{2,}`)

// IsShortener reports whether the URL's host is a known shortening service.
func IsShortener(URL string) bool {
	return shortenerRe.MatchString(urlnorm.Host(URL))
}

// Flag computes the local heuristics for one candidate. The indicators are
// recorded on the URL report as evidence; they do not change verdicts.
func Flag(candidate domain.CandidateURL, canonicalURL string) domain.Indicators {
	return domain.Indicators{
		Shortener:      IsShortener(canonicalURL),
		AnchorMismatch: anchorMismatch(candidate.AnchorText, canonicalURL),
	}
}

// anchorMismatch reports whether the visible anchor text names a domain that
// differs from the link target's host. Text without a domain-looking token
// never mismatches.
func anchorMismatch(anchorText, canonicalURL string) bool {
	if anchorText == "" {
		return false
	}

	host := urlnorm.Host(canonicalURL)
	if host == "" {
		return false
	}

	textDomain := domainInTextRe.FindString(anchorText)
	if textDomain == "" {
		return false
	}
	textDomain = strings.ToLower(strings.TrimPrefix(textDomain, "www."))

	return textDomain != host && !strings.HasSuffix(host, "."+textDomain) &&
		!strings.HasSuffix(textDomain, "."+host)
}
