package domain

import "strings"

// Verdict is the canonical four-value risk classification for a URL.
// Severity ordering: malicious > suspicious > harmless > unknown.
type Verdict string

const (
	// VerdictMalicious indicates the URL is confirmed bad by a provider.
	VerdictMalicious Verdict = "malicious"
	// VerdictSuspicious indicates at least one weak risk signal.
	VerdictSuspicious Verdict = "suspicious"
	// VerdictHarmless indicates the URL is known and considered clean.
	VerdictHarmless Verdict = "harmless"
	// VerdictUnknown indicates no provider could classify the URL.
	VerdictUnknown Verdict = "unknown"
)

// Severity returns the merge rank of the verdict. Higher means more severe.
func (v Verdict) Severity() int {
	switch v {
	case VerdictMalicious:
		return 3
	case VerdictSuspicious:
		return 2
	case VerdictHarmless:
		return 1
	case VerdictUnknown:
		return 0
	default:
		return 0
	}
}

// MergeVerdicts combines two verdicts, keeping the more severe one.
// A clean secondary signal never downgrades a malicious or suspicious primary.
func MergeVerdicts(a, b Verdict) Verdict {
	if b.Severity() > a.Severity() {
		return b
	}

	return a
}

// NormalizeVerdict maps a provider-specific vocabulary word onto the canonical
// Verdict set. Matching is case-insensitive. Every adapter is expected to run
// its raw result through this function before handing it to the pipeline, so
// downstream aggregation never needs to know provider identity.
func NormalizeVerdict(raw string) Verdict {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "malicious", "malware", "phishing", "phish", "listed":
		return VerdictMalicious
	case "clean", "harmless", "safe":
		return VerdictHarmless
	case "suspicious", "gray", "grayware":
		return VerdictSuspicious
	default:
		return VerdictUnknown
	}
}
