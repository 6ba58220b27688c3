// Package provider defines the adapter contract for external URL reputation
// services and the registry used to select the active one. Each adapter
// normalizes its service's protocol (submit-then-poll, batch lookup,
// fallback-chain lookup) into a single verdict contract so the scanner never
// needs to know provider identity.
package provider

import (
	"context"

	"mailscan/pkg/domain"
	"mailscan/pkg/serrors"
)

// Adapter is the abstraction over one reputation service.
//
// Check never returns an error: lookup failures, timeouts, malformed
// responses and missing credentials are all absorbed into a ProviderResult
// with VerdictUnknown and diagnostics attached, so one bad URL or one down
// provider never aborts a scan.
//
//go:generate mockgen -package mockprovider -source=interface.go -destination=mock/mockprovider.go *
type Adapter interface {
	// ID identifies the provider.
	ID() domain.ProviderID
	// Check classifies a single URL.
	Check(ctx context.Context, URL string) domain.ProviderResult
	// Concurrency is the scanner worker cap appropriate for this provider's
	// rate limits.
	Concurrency() int
}

// BatchAdapter is implemented by providers that accept many URLs in one
// request. The scanner prefers CheckBatch over per-URL dispatch when
// available; chunking at the provider's batch limit happens inside the
// adapter.
type BatchAdapter interface {
	Adapter
	// CheckBatch classifies all URLs and returns a result for every input,
	// keyed by the URL exactly as given.
	CheckBatch(ctx context.Context, URLs []string) map[string]domain.ProviderResult
}

// DomainAger is implemented by providers able to report the registration age
// of a domain. The age feeds the young-domain escalation heuristic.
type DomainAger interface {
	// DomainAgeDays returns the age of the host's registration in days.
	DomainAgeDays(ctx context.Context, host string) (int, error)
}

// Registry maps provider IDs to their adapters. Selecting through the
// registry replaces runtime capability probing with a typed lookup.
type Registry map[domain.ProviderID]Adapter

// Get returns the adapter registered under id.
func (r Registry) Get(id domain.ProviderID) (Adapter, error) {
	a, ok := r[id]
	if !ok {
		return nil, serrors.With(serrors.ErrNotFound, "no adapter registered for provider %q", id)
	}

	return a, nil
}
