// Package phishtank provides a provider.Adapter backed by the PhishTank
// checkurl API. A URL may be listed under a related form rather than
// verbatim, so each check runs a fallback chain of progressively looser
// variants and short-circuits on the first conclusive answer.
package phishtank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailscan/internal/provider"
	"mailscan/pkg/domain"
	"mailscan/pkg/metrics"
)

// DefaultBaseURL is the production PhishTank endpoint.
const DefaultBaseURL = "https://checkurl.phishtank.com"

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 6
)

// Options configure the client. The app key is optional: PhishTank accepts
// keyless requests in a reduced-functionality mode, so an empty AppKey does
// not short-circuit the check.
type Options struct {
	// AppKey is the optional PhishTank application key.
	AppKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds one full check including all fallback attempts.
	Timeout time.Duration
	// Concurrency is the scanner worker cap for this provider.
	Concurrency int
}

// Client talks to the PhishTank checkurl API and fulfills the
// provider.Adapter interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New constructs a Client that uses the provided http.Client and options.
// A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	return &Client{httpClient: httpClient, opts: opts}
}

// ID implements provider.Adapter.
func (c *Client) ID() domain.ProviderID { return domain.ProviderPhishTank }

// Concurrency implements provider.Adapter.
func (c *Client) Concurrency() int { return c.opts.Concurrency }

// step is one fallback-chain variant to look up.
type step struct {
	label string
	url   string
}

// buildSteps produces the fixed-precedence fallback chain for a URL:
// the URL as given, the scheme flipped, the query stripped, the path peeled
// one segment at a time down to root, and finally the host root. Variants
// equal to an earlier one are dropped.
func buildSteps(rawURL string) []step {
	steps := []step{{label: "as-is", url: rawURL}}
	seen := map[string]bool{rawURL: true}
	add := func(label, u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		steps = append(steps, step{label: label, url: u})
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return steps
	}

	// scheme flipped
	flipped := *u
	if flipped.Scheme == "https" {
		flipped.Scheme = "http"
	} else {
		flipped.Scheme = "https"
	}
	add("scheme-flip", flipped.String())

	// query stripped
	noQuery := *u
	noQuery.RawQuery = ""
	add("query-strip", noQuery.String())

	// path peeled one segment at a time down to root, query dropped
	peeled := *u
	peeled.RawQuery = ""
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if parts[0] == "" {
		parts = nil
	}
	for i := len(parts) - 1; i >= 0; i-- {
		peeled.Path = "/" + strings.Join(parts[:i], "/")
		if i > 0 {
			peeled.Path += "/"
		}
		add(fmt.Sprintf("path-peel:%d", len(parts)-i), peeled.String())
	}

	// host root
	root := *u
	root.Path = "/"
	root.RawQuery = ""
	add("host-root", root.String())

	return steps
}

// Check implements provider.Adapter. Each fallback variant is looked up in
// order; the first non-unknown answer wins, and every attempt is recorded in
// the result trace for diagnostics.
func (c *Client) Check(ctx context.Context, URL string) domain.ProviderResult {
	start := time.Now()
	res := c.check(ctx, URL)
	metrics.ProviderLatency.WithLabelValues(string(c.ID())).Observe(time.Since(start).Seconds())
	metrics.Verdicts.WithLabelValues(string(c.ID()), string(res.Verdict)).Inc()

	return res
}

func (c *Client) check(ctx context.Context, URL string) domain.ProviderResult {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	out := domain.ProviderResult{Provider: c.ID(), Verdict: domain.VerdictUnknown}

	for _, s := range c.steps(URL) {
		verdict, sample, httpStatus, err := c.lookup(ctx, s.url)
		entry := domain.TraceStep{
			Step:       s.label,
			URL:        s.url,
			Verdict:    verdict,
			HTTPStatus: httpStatus,
			Sample:     sample,
		}
		out.Trace = append(out.Trace, entry)

		if err != nil {
			metrics.ProviderRequests.WithLabelValues(string(c.ID()), "error").Inc()
			out.Err = err.Error()

			continue
		}
		metrics.ProviderRequests.WithLabelValues(string(c.ID()), "ok").Inc()

		if verdict != domain.VerdictUnknown {
			out.Verdict = verdict
			out.Details = sample
			out.Err = ""

			return out
		}
	}

	// every step exhausted without a conclusive answer
	if len(out.Trace) > 0 {
		out.Details = out.Trace[len(out.Trace)-1].Sample
	}

	return out
}

func (c *Client) steps(URL string) []step {
	return buildSteps(URL)
}

// lookup performs one checkurl request and maps the response onto the
// canonical verdicts: in-database, verified and valid is a confirmed phish;
// in-database, verified and not valid is a confirmed false report; anything
// else stays unknown.
func (c *Client) lookup(ctx context.Context, URL string) (domain.Verdict, map[string]any, int, error) {
	form := url.Values{"url": {URL}, "format": {"json"}}
	if c.opts.AppKey != "" {
		form.Set("app_key", c.opts.AppKey)
	}

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		c.opts.BaseURL+"/checkurl/",
		strings.NewReader(form.Encode()))
	if err != nil {
		return domain.VerdictUnknown, nil, 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VerdictUnknown, nil, 0, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.VerdictUnknown, nil, resp.StatusCode, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.VerdictUnknown, nil, resp.StatusCode,
			fmt.Errorf("checkurl failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var checkResp struct {
		Results struct {
			InDatabase bool `json:"in_database"`
			Verified   bool `json:"verified"`
			Valid      bool `json:"valid"`
		} `json:"results"`
	}
	if err := json.Unmarshal(b, &checkResp); err != nil {
		return domain.VerdictUnknown, nil, resp.StatusCode, fmt.Errorf("could not decode response: %w", err)
	}

	r := checkResp.Results
	sample := map[string]any{
		"in_database": r.InDatabase,
		"verified":    r.Verified,
		"valid":       r.Valid,
	}

	switch {
	case r.InDatabase && r.Verified && r.Valid:
		return domain.NormalizeVerdict("phish"), sample, resp.StatusCode, nil
	case r.InDatabase && r.Verified && !r.Valid:
		return domain.NormalizeVerdict("safe"), sample, resp.StatusCode, nil
	default:
		return domain.VerdictUnknown, sample, resp.StatusCode, nil
	}
}

// Ensure Client conforms to the adapter interface at compile time.
var _ provider.Adapter = (*Client)(nil)
