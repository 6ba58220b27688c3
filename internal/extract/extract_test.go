package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mailscan/internal/extract"
	"mailscan/pkg/domain"
)

func raws(candidates []domain.CandidateURL) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Raw)
	}

	return out
}

func TestFromHTMLAnchors(t *testing.T) {
	html := `<html><body>
		<p>Dear customer,</p>
		<a href="https://evil.example/login">www.mybank.com</a>
		<a href="mailto:support@mybank.com">contact us</a>
		<a href="   ">broken</a>
	</body></html>`

	got := extract.FromHTML(html)
	require.Len(t, got, 1)
	require.Equal(t, "https://evil.example/login", got[0].Raw)
	require.Equal(t, "www.mybank.com", got[0].AnchorText)
	require.Equal(t, domain.SourceHTMLAnchor, got[0].Source)
}

func TestFromHTMLTextURLs(t *testing.T) {
	html := `<html><body><p>copy this: https://pasted.example/path into your browser</p></body></html>`

	got := extract.FromHTML(html)
	require.Contains(t, raws(got), "https://pasted.example/path")
	require.Equal(t, domain.SourceHTMLText, got[0].Source)
}

func TestFromHTMLAnchorTextNotPromoted(t *testing.T) {
	html := `<html><body><a href="https://evil.example/login">mybank.com</a></body></html>`

	got := extract.FromHTML(html)
	require.Len(t, got, 1, "the anchor's visible text must not become a second candidate")
	require.Equal(t, "https://evil.example/login", got[0].Raw)
}

func TestFromTextMatchesURLs(t *testing.T) {
	text := "Visit https://a.example/x, or hxxp://defanged.example/y now.\nAlso http://b.example."

	got := raws(extract.FromText(text))
	require.Contains(t, got, "https://a.example/x")
	require.Contains(t, got, "hxxp://defanged.example/y")
	require.Contains(t, got, "http://b.example")
}

func TestFromTextPromotesBareDomains(t *testing.T) {
	text := "go to example.com/login today"

	got := raws(extract.FromText(text))
	require.Contains(t, got, "http://example.com/login")
}

func TestFromTextSkipsEmailAddresses(t *testing.T) {
	text := "write to support@helpdesk.example for help"

	got := extract.FromText(text)
	require.Empty(t, got)
}

func TestFromTextDoesNotDoubleCount(t *testing.T) {
	text := "https://site.example/page"

	got := extract.FromText(text)
	require.Len(t, got, 1, "a full URL must not also match as a bare domain")
}

func TestParseAuthResults(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   *domain.AuthResults
	}{
		{
			name:   "all methods",
			header: "mx.example.com; spf=pass smtp.mailfrom=a.example; dkim=fail header.d=a.example; dmarc=none",
			want:   &domain.AuthResults{SPF: "pass", DKIM: "fail", DMARC: "none"},
		},
		{
			name:   "missing methods default to none",
			header: "mx.example.com; spf=softfail smtp.mailfrom=a.example",
			want:   &domain.AuthResults{SPF: "softfail", DKIM: "none", DMARC: "none"},
		},
		{
			name:   "duplicate method keeps the failing outcome",
			header: "mx.example.com; dkim=pass header.d=fwd.example; dkim=fail header.d=a.example",
			want:   &domain.AuthResults{SPF: "none", DKIM: "fail", DMARC: "none"},
		},
		{
			name:   "empty header",
			header: "",
			want:   nil,
		},
		{
			name:   "no recognizable method",
			header: "mx.example.com; none",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extract.ParseAuthResults(tt.header))
		})
	}
}
