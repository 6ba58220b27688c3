package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScanID uniquely identifies a single scan invocation.
// It wraps uuid.UUID to provide type safety at the domain layer.
type ScanID uuid.UUID

// NewScanID returns a fresh random scan identifier.
func NewScanID() ScanID { return ScanID(uuid.New()) }

// String returns the canonical textual form of the scan ID.
func (id ScanID) String() string { return uuid.UUID(id).String() }

// MarshalText renders the ID in its canonical form so JSON output carries a
// string rather than a byte array.
func (id ScanID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical form.
func (id *ScanID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err //nolint: wrapcheck
	}
	*id = ScanID(u)

	return nil
}

// SourceKind tells where in the message a URL candidate was found.
type SourceKind string

const (
	// SourceHTMLAnchor means the candidate came from an <a href> attribute.
	SourceHTMLAnchor SourceKind = "html-anchor"
	// SourceHTMLText means the candidate was matched in rendered HTML text.
	SourceHTMLText SourceKind = "html-text"
	// SourcePlainText means the candidate was matched in a text/plain part.
	SourcePlainText SourceKind = "plain-text"
)

// CandidateURL is a raw URL string extracted from a message, before
// canonicalization, together with its extraction context.
type CandidateURL struct {
	// Raw is the string as it appeared in the message.
	Raw string `json:"raw"`
	// AnchorText is the visible link text for html-anchor candidates.
	AnchorText string `json:"anchorText,omitempty"`
	// Source tells which part of the message produced the candidate.
	Source SourceKind `json:"source"`
}

// Summary holds verdict counts derived by folding the per-URL results.
// The four counters always sum to Total, and Total equals the number of
// unique canonical URLs scanned.
type Summary struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Unknown    int `json:"unknown"`
	Total      int `json:"total"`
}

// Add counts one final verdict into the summary.
func (s *Summary) Add(v Verdict) {
	s.Total++
	switch v {
	case VerdictMalicious:
		s.Malicious++
	case VerdictSuspicious:
		s.Suspicious++
	case VerdictHarmless:
		s.Harmless++
	case VerdictUnknown:
		s.Unknown++
	}
}

// Indicators are cheap local heuristics attached to a URL. They are recorded
// for the report but do not change verdicts on their own.
type Indicators struct {
	// Shortener is set when the host is a known URL-shortening service.
	Shortener bool `json:"shortener,omitempty"`
	// AnchorMismatch is set when the anchor text names a different domain
	// than the link target.
	AnchorMismatch bool `json:"anchorMismatch,omitempty"`
}

// URLReport is the per-URL slice of a scan report: the fused verdict plus the
// signals that produced it.
type URLReport struct {
	// URL is the canonical form used as identity key.
	URL string `json:"url"`
	// Verdict is the final classification after signal fusion.
	Verdict Verdict `json:"verdict"`
	// Primary is the verdict of the active provider before fusion.
	Primary Verdict `json:"primary"`
	// Result is the full provider result including trace and details.
	Result ProviderResult `json:"result"`
	// ResolvedURL is the redirect-resolved destination when it differs from URL.
	ResolvedURL string `json:"resolvedUrl,omitempty"`
	// DomainAgeDays is the registration age of the host, nil when unavailable.
	DomainAgeDays *int `json:"domainAgeDays,omitempty"`
	// Allowlisted marks URLs excluded from the escalation threshold.
	Allowlisted bool `json:"allowlisted,omitempty"`
	// Indicators holds the local heuristics for this URL.
	Indicators Indicators `json:"indicators,omitempty"`
}

// AuthResults is the SPF/DKIM/DMARC outcome parsed from the message's
// Authentication-Results header. Values are lowercase keywords such as
// "pass", "fail", "softfail" or "none".
type AuthResults struct {
	SPF   string `json:"spf"`
	DKIM  string `json:"dkim"`
	DMARC string `json:"dmarc"`
}

// ScanReport is the aggregated outcome of one scan invocation.
type ScanReport struct {
	// ID identifies this scan invocation.
	ID ScanID `json:"id"`
	// Provider is the active provider the scan ran against.
	Provider ProviderID `json:"provider"`
	// Summary holds the folded verdict counts.
	Summary Summary `json:"summary"`
	// Escalate is true when the escalation policy decided a report draft
	// should be produced.
	Escalate bool `json:"escalate"`
	// URLs maps each canonical URL to its detailed report.
	URLs map[string]URLReport `json:"urls"`
	// Auth is the message authentication evidence, when available.
	Auth *AuthResults `json:"auth,omitempty"`

	// StartedAt and FinishedAt bound the scan cycle.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
