// Package report renders escalated scan results into a report email draft
// addressed to the anti-phishing desks.
package report

import (
	"fmt"
	"sort"
	"strings"

	"mailscan/internal/mailclient"
	"mailscan/pkg/domain"
)

// DefaultRecipients are the reporting addresses used when none are
// configured.
var DefaultRecipients = []string{"info@antiphishing.jp", "meiwaku@dekyo.or.jp"}

// Options configure how drafts are built.
type Options struct {
	// Recipients receive the report. Empty falls back to DefaultRecipients.
	Recipients []string
	// AttachOriginal controls whether the scanned message is attached to the
	// draft as original.eml.
	AttachOriginal bool
}

// Builder turns a scan report plus the original message into a compose draft.
type Builder struct {
	opts Options
}

// NewBuilder constructs a Builder.
func NewBuilder(opts Options) *Builder {
	if len(opts.Recipients) == 0 {
		opts.Recipients = DefaultRecipients
	}

	return &Builder{opts: opts}
}

// Draft renders the report email. The body lists the verdict counts, the
// flagged URLs with their evidence, and the authentication results when
// present. URLs are listed most severe first, alphabetical within a severity.
func (b *Builder) Draft(report domain.ScanReport, msg *mailclient.Message) mailclient.Draft {
	draft := mailclient.Draft{
		To:      b.opts.Recipients,
		Subject: subject(msg),
		Body:    b.body(report, msg),
	}

	if b.opts.AttachOriginal && msg != nil && len(msg.Raw) > 0 {
		draft.Attachments = []mailclient.Attachment{{
			Filename:  "original.eml",
			MediaType: "message/rfc822",
			Body:      msg.Raw,
		}}
	}

	return draft
}

func subject(msg *mailclient.Message) string {
	if msg == nil || msg.Subject == "" {
		return "Suspicious email report"
	}

	return "Suspicious email report: " + msg.Subject
}

func (b *Builder) body(report domain.ScanReport, msg *mailclient.Message) string {
	var sb strings.Builder

	sb.WriteString("This message was flagged by an automated URL scan.\n\n")
	if msg != nil {
		fmt.Fprintf(&sb, "Original sender: %s\n", msg.From)
		fmt.Fprintf(&sb, "Original subject: %s\n", msg.Subject)
	}
	fmt.Fprintf(&sb, "Scan ID: %s\n", report.ID)
	fmt.Fprintf(&sb, "Provider: %s\n\n", report.Provider)

	sum := report.Summary
	fmt.Fprintf(&sb, "Scanned %d unique URLs: %d malicious, %d suspicious, %d harmless, %d unknown.\n\n",
		sum.Total, sum.Malicious, sum.Suspicious, sum.Harmless, sum.Unknown)

	sb.WriteString("Flagged URLs:\n")
	for _, r := range flagged(report.URLs) {
		fmt.Fprintf(&sb, "  [%s] %s", strings.ToUpper(string(r.Verdict)), r.URL)
		var notes []string
		if r.ResolvedURL != "" && r.ResolvedURL != r.URL {
			notes = append(notes, "resolves to "+r.ResolvedURL)
		}
		if r.Indicators.Shortener {
			notes = append(notes, "link shortener")
		}
		if r.Indicators.AnchorMismatch {
			notes = append(notes, "anchor text names a different domain")
		}
		if r.DomainAgeDays != nil {
			notes = append(notes, fmt.Sprintf("domain registered %d days ago", *r.DomainAgeDays))
		}
		if len(notes) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(notes, "; "))
		}
		sb.WriteString("\n")
	}

	if report.Auth != nil {
		fmt.Fprintf(&sb, "\nAuthentication results: spf=%s dkim=%s dmarc=%s\n",
			report.Auth.SPF, report.Auth.DKIM, report.Auth.DMARC)
	}

	return sb.String()
}

// flagged returns the malicious and suspicious URL reports, most severe
// first, alphabetical within each severity.
func flagged(urls map[string]domain.URLReport) []domain.URLReport {
	var out []domain.URLReport
	for _, r := range urls {
		if r.Verdict == domain.VerdictMalicious || r.Verdict == domain.VerdictSuspicious {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Verdict != out[j].Verdict {
			return out[i].Verdict.Severity() > out[j].Verdict.Severity()
		}

		return out[i].URL < out[j].URL
	})

	return out
}
