package domain

// ProviderID identifies an external URL reputation service.
type ProviderID string

const (
	// ProviderVirusTotal is the submit-then-poll malware/URL-scanning provider.
	ProviderVirusTotal ProviderID = "virustotal"
	// ProviderSafeBrowsing is the batch threat-list lookup provider.
	ProviderSafeBrowsing ProviderID = "safebrowsing"
	// ProviderPhishTank is the community phishing-report provider.
	ProviderPhishTank ProviderID = "phishtank"
)

// ValidProvider reports whether id names a known provider.
func ValidProvider(id ProviderID) bool {
	switch id {
	case ProviderVirusTotal, ProviderSafeBrowsing, ProviderPhishTank:
		return true
	default:
		return false
	}
}

// TraceStep records one attempt of a fallback-chain lookup for diagnostics.
type TraceStep struct {
	// Step labels the lookup variant, e.g. "as-is", "scheme-flip", "path-peel".
	Step string `json:"step"`
	// URL is the exact variant that was queried.
	URL string `json:"url"`
	// Verdict is the normalized outcome of this attempt.
	Verdict Verdict `json:"verdict"`
	// HTTPStatus is the status code of the provider response, zero when the
	// request never completed.
	HTTPStatus int `json:"httpStatus,omitempty"`
	// Sample holds raw provider fields useful for diagnostics.
	Sample map[string]any `json:"sample,omitempty"`
}

// ProviderResult is the normalized outcome of checking one URL against one
// provider. Adapters never fail with an error towards the pipeline; failures
// are represented as VerdictUnknown with Err and Details populated.
type ProviderResult struct {
	// Provider identifies which adapter produced the result.
	Provider ProviderID `json:"provider"`
	// Verdict is the canonical classification.
	Verdict Verdict `json:"verdict"`
	// Details carries opaque provider-specific data (stats, match payloads).
	Details map[string]any `json:"details,omitempty"`
	// Trace is the ordered per-attempt record for fallback-chain providers.
	Trace []TraceStep `json:"trace,omitempty"`
	// Err holds the diagnostic message when the lookup degraded to unknown.
	Err string `json:"error,omitempty"`
}
