package policy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mailscan/internal/policy"
	"mailscan/pkg/domain"
)

func newPolicy(t *testing.T, rules []string, minSuspicious int) *policy.Policy {
	t.Helper()

	al, err := policy.ParseAllowlist(rules)
	require.NoError(t, err)

	return policy.New(al, policy.Options{
		MinSuspiciousToEscalate: minSuspicious,
		YoungDomainMaxAgeDays:   30,
	})
}

func TestParseAllowlistRejectsBadPattern(t *testing.T) {
	_, err := policy.ParseAllowlist([]string{"/[unclosed/"})
	require.Error(t, err)
}

func TestAllowlistRuleForms(t *testing.T) {
	p := newPolicy(t, []string{
		"corp.example",
		"https://partner.example/promo/",
		`/tracking\.example\/c\/\d+/`,
	}, 2)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"domain exact", "https://corp.example/login", true},
		{"domain subdomain", "https://mail.corp.example/x", true},
		{"domain lookalike", "https://notcorp.example/x", false},
		{"prefix match", "https://partner.example/promo/summer", true},
		{"prefix other path", "https://partner.example/other", false},
		{"regex match", "https://tracking.example/c/123", true},
		{"regex no match", "https://tracking.example/c/abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.Allowlisted(tt.url))
		})
	}
}

func TestFuseSecondaryListedUpgrades(t *testing.T) {
	p := newPolicy(t, nil, 2)

	require.Equal(t, domain.VerdictSuspicious,
		p.Fuse(domain.VerdictHarmless, policy.Signals{SecondaryListed: true}))
	require.Equal(t, domain.VerdictMalicious,
		p.Fuse(domain.VerdictMalicious, policy.Signals{SecondaryListed: true}),
		"fusion must never downgrade")
	require.Equal(t, domain.VerdictHarmless,
		p.Fuse(domain.VerdictHarmless, policy.Signals{}))
}

func TestFuseYoungDomainUpgrades(t *testing.T) {
	p := newPolicy(t, nil, 2)

	young, old := 10, 400
	require.Equal(t, domain.VerdictSuspicious,
		p.Fuse(domain.VerdictHarmless, policy.Signals{DomainAgeDays: &young}))
	require.Equal(t, domain.VerdictHarmless,
		p.Fuse(domain.VerdictHarmless, policy.Signals{DomainAgeDays: &old}))
	require.Equal(t, domain.VerdictUnknown,
		p.Fuse(domain.VerdictUnknown, policy.Signals{DomainAgeDays: &young}),
		"age only upgrades a harmless verdict")
}

func report(url string, v domain.Verdict, allowlisted bool) domain.URLReport {
	return domain.URLReport{URL: url, Verdict: v, Allowlisted: allowlisted}
}

func TestEscalateOnAnyMalicious(t *testing.T) {
	p := newPolicy(t, nil, 2)

	reports := map[string]domain.URLReport{
		"http://a.example/": report("http://a.example/", domain.VerdictHarmless, false),
		"http://b.example/": report("http://b.example/", domain.VerdictMalicious, false),
	}
	require.True(t, p.Escalate(reports))
}

func TestEscalateSuspiciousThreshold(t *testing.T) {
	p := newPolicy(t, nil, 2)

	reports := map[string]domain.URLReport{
		"http://a.example/": report("http://a.example/", domain.VerdictSuspicious, false),
	}
	require.False(t, p.Escalate(reports), "one suspicious URL is below the threshold of two")

	reports["http://b.example/"] = report("http://b.example/", domain.VerdictSuspicious, false)
	require.True(t, p.Escalate(reports))
}

func TestEscalateIgnoresAllowlistedSuspicious(t *testing.T) {
	p := newPolicy(t, nil, 2)

	reports := map[string]domain.URLReport{
		"http://a.example/": report("http://a.example/", domain.VerdictSuspicious, true),
		"http://b.example/": report("http://b.example/", domain.VerdictSuspicious, false),
	}
	require.False(t, p.Escalate(reports), "allowlisted URLs must not count toward the threshold")
}

func TestMinSuspiciousClampedToOne(t *testing.T) {
	p := newPolicy(t, nil, 0)

	reports := map[string]domain.URLReport{
		"http://a.example/": report("http://a.example/", domain.VerdictSuspicious, false),
	}
	require.True(t, p.Escalate(reports))
}

func TestIndicators(t *testing.T) {
	tests := []struct {
		name      string
		candidate domain.CandidateURL
		canonical string
		want      domain.Indicators
	}{
		{
			name:      "shortener host",
			candidate: domain.CandidateURL{Raw: "https://bit.ly/x", Source: domain.SourcePlainText},
			canonical: "https://bit.ly/x",
			want:      domain.Indicators{Shortener: true},
		},
		{
			name: "anchor names another domain",
			candidate: domain.CandidateURL{
				Raw:        "https://evil.example/login",
				AnchorText: "www.mybank.com",
				Source:     domain.SourceHTMLAnchor,
			},
			canonical: "https://evil.example/login",
			want:      domain.Indicators{AnchorMismatch: true},
		},
		{
			name: "anchor matches target",
			candidate: domain.CandidateURL{
				Raw:        "https://mybank.com/login",
				AnchorText: "mybank.com",
				Source:     domain.SourceHTMLAnchor,
			},
			canonical: "https://mybank.com/login",
			want:      domain.Indicators{},
		},
		{
			name: "plain anchor text",
			candidate: domain.CandidateURL{
				Raw:        "https://site.example/x",
				AnchorText: "click here",
				Source:     domain.SourceHTMLAnchor,
			},
			canonical: "https://site.example/x",
			want:      domain.Indicators{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, policy.Flag(tt.candidate, tt.canonical))
		})
	}
}
