// Package virustotal provides a provider.Adapter backed by the VirusTotal v3
// URL analysis API. The protocol is submit-then-poll: a URL is submitted for
// analysis, then the analysis endpoint is polled until it completes or the
// poll budget runs out.
package virustotal

import (
	"context"
	"encoding/base64"
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

// DefaultBaseURL is the production VirusTotal API endpoint.
const DefaultBaseURL = "https://www.virustotal.com/api/v3"

const (
	defaultMaxPolls     = 12
	defaultPollInterval = 1500 * time.Millisecond
	defaultTimeout      = 18 * time.Second
	defaultConcurrency  = 4

	// rateLimitBackoff is the extra wait after a 429 before retrying the
	// same poll.
	rateLimitBackoff = 2 * time.Second
)

// Options configure the client. Zero values fall back to the defaults above.
type Options struct {
	// APIKey authenticates requests. An empty key makes Check short-circuit
	// to unknown without any network call.
	APIKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// MaxPolls bounds how many times an analysis is polled.
	MaxPolls int
	// PollInterval is the delay between polls.
	PollInterval time.Duration
	// Timeout bounds one full check of a single URL.
	Timeout time.Duration
	// Concurrency is the scanner worker cap for this provider.
	Concurrency int
}

// Client talks to the VirusTotal REST API and fulfills the provider.Adapter
// interface. It is safe for concurrent use.
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
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = defaultMaxPolls
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
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
func (c *Client) ID() domain.ProviderID { return domain.ProviderVirusTotal }

// Concurrency implements provider.Adapter.
func (c *Client) Concurrency() int { return c.opts.Concurrency }

// analysisStats are the vote counts attached to an analysis.
type analysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

func (s analysisStats) details(status string) map[string]any {
	return map[string]any{
		"stats": map[string]any{
			"malicious":  s.Malicious,
			"suspicious": s.Suspicious,
			"harmless":   s.Harmless,
			"undetected": s.Undetected,
		},
		"status": status,
	}
}

// verdict applies the decision rule to the latest poll's counts: any
// malicious vote wins, then any suspicious vote, then a completed analysis
// with harmless votes. Everything else stays unknown.
func (s analysisStats) verdict(status string) domain.Verdict {
	switch {
	case s.Malicious > 0:
		return domain.VerdictMalicious
	case s.Suspicious > 0:
		return domain.VerdictSuspicious
	case status == "completed" && s.Harmless > 0:
		return domain.VerdictHarmless
	default:
		return domain.VerdictUnknown
	}
}

// Check implements provider.Adapter. It submits the URL for analysis, polls
// the analysis endpoint honoring 429 backoff, and as a last resort after
// exhausting polls looks up the last known analysis for the URL.
func (c *Client) Check(ctx context.Context, URL string) domain.ProviderResult {
	start := time.Now()
	res := c.check(ctx, URL)
	metrics.ProviderLatency.WithLabelValues(string(c.ID())).Observe(time.Since(start).Seconds())
	metrics.Verdicts.WithLabelValues(string(c.ID()), string(res.Verdict)).Inc()

	return res
}

func (c *Client) check(ctx context.Context, URL string) domain.ProviderResult {
	out := domain.ProviderResult{Provider: c.ID(), Verdict: domain.VerdictUnknown}
	if c.opts.APIKey == "" {
		out.Err = "missing API key"
		out.Details = map[string]any{"reason": "no_api_key"}

		return out
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	analysisID, err := c.submit(ctx, URL)
	if err != nil {
		out.Err = err.Error()
		metrics.ProviderRequests.WithLabelValues(string(c.ID()), "error").Inc()

		return out
	}
	metrics.ProviderRequests.WithLabelValues(string(c.ID()), "ok").Inc()

	verdict, details, err := c.poll(ctx, analysisID)
	if err != nil {
		out.Err = err.Error()
	}
	out.Verdict = verdict
	out.Details = details

	// last resort: a single lookup of the most recent analysis on record
	if out.Verdict == domain.VerdictUnknown {
		if v, d, err := c.lastAnalysis(ctx, URL); err == nil && v != domain.VerdictUnknown {
			out.Verdict = v
			out.Details = d
			out.Err = ""
		}
	}

	return out
}

// submit posts the URL for analysis and returns the analysis ID.
func (c *Client) submit(ctx context.Context, URL string) (string, error) {
	form := url.Values{"url": {URL}}
	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		c.opts.BaseURL+"/urls",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Apikey", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("submit failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var submitResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &submitResp); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	if submitResp.Data.ID == "" {
		return "", fmt.Errorf("submit returned no analysis id")
	}

	return submitResp.Data.ID, nil
}

// poll repeatedly fetches the analysis until the decision rule yields a
// verdict or the poll budget is exhausted. A 429 response waits longer and
// retries within the same attempt budget.
func (c *Client) poll(ctx context.Context, analysisID string) (domain.Verdict, map[string]any, error) {
	var lastErr error
	details := map[string]any{}

	for i := 0; i < c.opts.MaxPolls; i++ {
		if i > 0 {
			if err := sleep(ctx, c.opts.PollInterval); err != nil {
				return domain.VerdictUnknown, details, err
			}
		}

		stats, status, httpStatus, err := c.fetchAnalysis(ctx, analysisID)
		if err != nil {
			lastErr = err
			metrics.ProviderRequests.WithLabelValues(string(c.ID()), "error").Inc()

			continue
		}
		if httpStatus == http.StatusTooManyRequests {
			metrics.ProviderRequests.WithLabelValues(string(c.ID()), "rate_limited").Inc()
			if err := sleep(ctx, rateLimitBackoff); err != nil {
				return domain.VerdictUnknown, details, err
			}

			continue
		}
		metrics.ProviderRequests.WithLabelValues(string(c.ID()), "ok").Inc()

		details = stats.details(status)
		if v := stats.verdict(status); v != domain.VerdictUnknown {
			return v, details, nil
		}
		if status == "completed" {
			// completed with zero votes stays unknown
			return domain.VerdictUnknown, details, nil
		}
	}

	return domain.VerdictUnknown, details, lastErr
}

func (c *Client) fetchAnalysis(ctx context.Context, analysisID string) (analysisStats, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/analyses/"+analysisID, nil)
	if err != nil {
		return analysisStats{}, "", 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("X-Apikey", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return analysisStats{}, "", 0, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return analysisStats{}, "", resp.StatusCode, nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysisStats{}, "", resp.StatusCode, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return analysisStats{}, "", resp.StatusCode,
			fmt.Errorf("get analysis failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var analysisResp struct {
		Data struct {
			Attributes struct {
				Status string        `json:"status"`
				Stats  analysisStats `json:"stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &analysisResp); err != nil {
		return analysisStats{}, "", resp.StatusCode, fmt.Errorf("could not decode response: %w", err)
	}

	return analysisResp.Data.Attributes.Stats, analysisResp.Data.Attributes.Status, resp.StatusCode, nil
}

// urlID is the URL identifier used by the /urls/{id} endpoint: the unpadded
// base64url form of the URL.
func urlID(URL string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(URL)), "=")
}

// lastAnalysis fetches the most recent analysis stats recorded for the URL.
func (c *Client) lastAnalysis(ctx context.Context, URL string) (domain.Verdict, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/urls/"+urlID(URL), nil)
	if err != nil {
		return domain.VerdictUnknown, nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("X-Apikey", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VerdictUnknown, nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.VerdictUnknown, nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.VerdictUnknown, nil, fmt.Errorf("get url failed: %d", resp.StatusCode)
	}

	var urlResp struct {
		Data struct {
			Attributes struct {
				LastAnalysisStats analysisStats `json:"last_analysis_stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &urlResp); err != nil {
		return domain.VerdictUnknown, nil, fmt.Errorf("could not decode response: %w", err)
	}

	stats := urlResp.Data.Attributes.LastAnalysisStats
	details := stats.details("fetched-last-analysis")
	switch {
	case stats.Malicious > 0:
		return domain.VerdictMalicious, details, nil
	case stats.Suspicious > 0:
		return domain.VerdictSuspicious, details, nil
	case stats.Harmless > 0:
		return domain.VerdictHarmless, details, nil
	default:
		return domain.VerdictUnknown, details, nil
	}
}

// DomainAgeDays implements provider.DomainAger using the domains endpoint's
// creation or whois date.
func (c *Client) DomainAgeDays(ctx context.Context, host string) (int, error) {
	if c.opts.APIKey == "" {
		return 0, fmt.Errorf("missing API key")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.opts.BaseURL+"/domains/"+url.PathEscape(host), nil)
	if err != nil {
		return 0, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("X-Apikey", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("get domain failed: %d", resp.StatusCode)
	}

	var domainResp struct {
		Data struct {
			Attributes struct {
				CreationDate int64 `json:"creation_date"`
				WhoisDate    int64 `json:"whois_date"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &domainResp); err != nil {
		return 0, fmt.Errorf("could not decode response: %w", err)
	}

	ts := domainResp.Data.Attributes.CreationDate
	if ts == 0 {
		ts = domainResp.Data.Attributes.WhoisDate
	}
	if ts == 0 {
		return 0, fmt.Errorf("no registration date on record for %s", host)
	}

	return int(time.Since(time.Unix(ts, 0)).Hours() / 24), nil
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Client conforms to the adapter interfaces at compile time.
var (
	_ provider.Adapter    = (*Client)(nil)
	_ provider.DomainAger = (*Client)(nil)
)
