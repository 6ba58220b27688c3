// Package policy decides what a scan's raw signals amount to: it fuses the
// primary provider verdict with secondary evidence, applies the allowlist,
// and makes the escalation call.
package policy

import (
	"mailscan/pkg/domain"
)

// Options carry the tunable policy knobs, derived from configuration.
type Options struct {
	// MinSuspiciousToEscalate is the number of non-allowlisted suspicious
	// URLs that triggers escalation on its own. Always at least 1.
	MinSuspiciousToEscalate int
	// YoungDomainMaxAgeDays is the registration age at or below which a
	// domain counts as young.
	YoungDomainMaxAgeDays int
}

// Policy applies fusion and escalation rules to per-URL results.
type Policy struct {
	allowlist *Allowlist
	opts      Options
}

// New constructs a Policy. A nil allowlist behaves as an empty one.
func New(allowlist *Allowlist, opts Options) *Policy {
	if allowlist == nil {
		allowlist = &Allowlist{}
	}
	if opts.MinSuspiciousToEscalate < 1 {
		opts.MinSuspiciousToEscalate = 1
	}

	return &Policy{allowlist: allowlist, opts: opts}
}

// Signals are the secondary inputs fused with the primary verdict.
type Signals struct {
	// SecondaryListed is set when a cross-check provider has the URL on a
	// confirmed list even though the primary did not.
	SecondaryListed bool
	// DomainAgeDays is the registration age of the host, nil when unknown.
	DomainAgeDays *int
}

// Fuse folds secondary signals into the primary verdict. Secondary evidence
// only ever raises severity: a harmless primary verdict becomes suspicious
// when the URL is listed elsewhere or its domain is young, and nothing is
// ever downgraded.
func (p *Policy) Fuse(primary domain.Verdict, sig Signals) domain.Verdict {
	fused := primary

	if sig.SecondaryListed {
		fused = domain.MergeVerdicts(fused, domain.VerdictSuspicious)
	}
	if sig.DomainAgeDays != nil && *sig.DomainAgeDays <= p.opts.YoungDomainMaxAgeDays {
		if fused == domain.VerdictHarmless {
			fused = domain.VerdictSuspicious
		}
	}

	return fused
}

// Allowlisted reports whether the canonical URL matches an exclusion rule.
func (p *Policy) Allowlisted(URL string) bool {
	return p.allowlist.Match(URL)
}

// Escalate makes the final call for a scan: any malicious URL escalates
// immediately, and enough non-allowlisted suspicious URLs escalate too.
// Allowlisted URLs stay in the report and its totals; they are only excluded
// from the suspicious count.
func (p *Policy) Escalate(reports map[string]domain.URLReport) bool {
	suspicious := 0
	for _, r := range reports {
		switch r.Verdict {
		case domain.VerdictMalicious:
			return true
		case domain.VerdictSuspicious:
			if !r.Allowlisted {
				suspicious++
			}
		}
	}

	return suspicious >= p.opts.MinSuspiciousToEscalate
}
