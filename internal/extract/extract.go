// Package extract pulls URL candidates out of message bodies. HTML parts are
// parsed for anchors and visible text, plain-text parts are matched by
// pattern, and bare domains are promoted to http URLs so a pasted
// "example.com/login" is not missed.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mailscan/pkg/domain"
)

var (
	// urlRe matches explicit URLs, including the defanged hxxp form that the
	// canonicalizer knows how to restore.
	urlRe = regexp.MustCompile(`(?i)\bh(?:tt|xx)ps?(?::|\x{FF1A})//\S+`)

	// bareDomainRe matches domain-looking tokens with an optional path, so
	// schemeless links in text still become candidates.
	bareDomainRe = regexp.MustCompile(`(?i)\b(?:[a-z0-9-]+\.)+[a-z]{2,}(?:/[^\s<>"']*)?`)

	// trailingJunkRe strips punctuation that sentence context glues onto a
	// matched URL.
	trailingJunkRe = regexp.MustCompile(`[.,;:!?)\]}>'"]+$`)
)

// FromHTML extracts candidates from an HTML body: one per anchor href with
// its visible text, plus pattern matches over the rendered text for URLs
// pasted outside of links. A parse failure falls back to plain-text matching
// over the raw markup.
func FromHTML(html string) []domain.CandidateURL {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fromText(html, domain.SourceHTMLText)
	}

	var out []domain.CandidateURL
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}
		out = append(out, domain.CandidateURL{
			Raw:        href,
			AnchorText: strings.TrimSpace(sel.Text()),
			Source:     domain.SourceHTMLAnchor,
		})
	})

	// anchor hrefs are already captured; drop the elements so their visible
	// text is not promoted into bogus candidates
	doc.Find("a").Remove()
	out = append(out, fromText(doc.Text(), domain.SourceHTMLText)...)

	return out
}

// FromText extracts candidates from a plain-text body.
func FromText(text string) []domain.CandidateURL {
	return fromText(text, domain.SourcePlainText)
}

func fromText(text string, source domain.SourceKind) []domain.CandidateURL {
	var out []domain.CandidateURL

	masked := urlRe.ReplaceAllStringFunc(text, func(m string) string {
		m = trailingJunkRe.ReplaceAllString(m, "")
		out = append(out, domain.CandidateURL{Raw: m, Source: source})

		return strings.Repeat(" ", len(m))
	})

	// bare domains in the remaining text get an http scheme; tokens inside an
	// email address are skipped
	for _, loc := range bareDomainRe.FindAllStringIndex(masked, -1) {
		if loc[0] > 0 && masked[loc[0]-1] == '@' {
			continue
		}
		m := trailingJunkRe.ReplaceAllString(masked[loc[0]:loc[1]], "")
		if m == "" {
			continue
		}
		out = append(out, domain.CandidateURL{Raw: "http://" + m, Source: source})
	}

	return out
}
