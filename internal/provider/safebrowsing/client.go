// Package safebrowsing provides a provider.BatchAdapter backed by the Google
// Safe Browsing v4 lookup API. All candidate URLs are checked with a handful
// of batched threatMatches:find requests instead of one request per URL.
package safebrowsing

import (
	"bytes"
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

// DefaultBaseURL is the production Safe Browsing API endpoint.
const DefaultBaseURL = "https://safebrowsing.googleapis.com/v4"

const (
	defaultBatchSize = 30
	defaultTimeout   = 10 * time.Second

	clientID      = "mailscan"
	clientVersion = "1.0.0"
)

// threatTypes is the fixed set of lists the lookup queries.
var threatTypes = []string{ //nolint: gochecknoglobals
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// Options configure the client. Zero values fall back to the defaults above.
type Options struct {
	// APIKey authenticates requests. An empty key makes every check
	// short-circuit to unknown without any network call.
	APIKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// BatchSize chunks the candidate set; the lookup API caps entries per
	// request.
	BatchSize int
	// Timeout bounds one batch request.
	Timeout time.Duration
}

// Client talks to the Safe Browsing lookup API and fulfills the
// provider.BatchAdapter interface. It is safe for concurrent use.
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
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Client{httpClient: httpClient, opts: opts}
}

// ID implements provider.Adapter.
func (c *Client) ID() domain.ProviderID { return domain.ProviderSafeBrowsing }

// Concurrency implements provider.Adapter. Chunks are processed sequentially,
// so per-URL concurrency is not meaningful here.
func (c *Client) Concurrency() int { return 1 }

// Check implements provider.Adapter for a single URL.
func (c *Client) Check(ctx context.Context, URL string) domain.ProviderResult {
	return c.CheckBatch(ctx, []string{URL})[URL]
}

// CheckBatch implements provider.BatchAdapter. The candidate set is split
// into chunks of at most BatchSize; a request-level failure degrades the
// whole chunk to unknown without affecting other chunks.
func (c *Client) CheckBatch(ctx context.Context, URLs []string) map[string]domain.ProviderResult {
	start := time.Now()
	out := make(map[string]domain.ProviderResult, len(URLs))

	if c.opts.APIKey == "" {
		for _, u := range URLs {
			out[u] = domain.ProviderResult{
				Provider: c.ID(),
				Verdict:  domain.VerdictUnknown,
				Err:      "missing API key",
				Details:  map[string]any{"reason": "no_api_key"},
			}
		}

		return out
	}

	for i := 0; i < len(URLs); i += c.opts.BatchSize {
		end := i + c.opts.BatchSize
		if end > len(URLs) {
			end = len(URLs)
		}
		c.checkChunk(ctx, URLs[i:end], out)
	}

	for _, res := range out {
		metrics.Verdicts.WithLabelValues(string(c.ID()), string(res.Verdict)).Inc()
	}
	metrics.ProviderLatency.WithLabelValues(string(c.ID())).Observe(time.Since(start).Seconds())

	return out
}

// checkChunk performs one threatMatches:find request and fills results for
// every URL in the chunk.
func (c *Client) checkChunk(ctx context.Context, chunk []string, out map[string]domain.ProviderResult) {
	listed, err := c.findMatches(ctx, chunk)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(string(c.ID()), "error").Inc()
		for _, u := range chunk {
			out[u] = domain.ProviderResult{
				Provider: c.ID(),
				Verdict:  domain.VerdictUnknown,
				Err:      err.Error(),
			}
		}

		return
	}
	metrics.ProviderRequests.WithLabelValues(string(c.ID()), "ok").Inc()

	for _, u := range chunk {
		raw := "clean"
		if listed[u] {
			raw = "listed"
		}
		out[u] = domain.ProviderResult{
			Provider: c.ID(),
			Verdict:  domain.NormalizeVerdict(raw),
			Details:  map[string]any{"listed": listed[u]},
		}
	}
}

// findMatches submits one chunk and returns the set of URLs found on a
// threat list.
func (c *Client) findMatches(ctx context.Context, chunk []string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	type threatEntry struct {
		URL string `json:"url"`
	}
	body := struct {
		Client struct {
			ClientID      string `json:"clientId"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
		ThreatInfo struct {
			ThreatTypes      []string      `json:"threatTypes"`
			PlatformTypes    []string      `json:"platformTypes"`
			ThreatEntryTypes []string      `json:"threatEntryTypes"`
			ThreatEntries    []threatEntry `json:"threatEntries"`
		} `json:"threatInfo"`
	}{}
	body.Client.ClientID = clientID
	body.Client.ClientVersion = clientVersion
	body.ThreatInfo.ThreatTypes = threatTypes
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	for _, u := range chunk {
		body.ThreatInfo.ThreatEntries = append(body.ThreatInfo.ThreatEntries, threatEntry{URL: u})
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		c.opts.BaseURL+"/threatMatches:find?key="+url.QueryEscape(c.opts.APIKey),
		bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lookup failed: %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var lookupResp struct {
		Matches []struct {
			Threat struct {
				URL string `json:"url"`
			} `json:"threat"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(b, &lookupResp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	listed := make(map[string]bool, len(lookupResp.Matches))
	for _, m := range lookupResp.Matches {
		listed[m.Threat.URL] = true
	}

	return listed, nil
}

// Ensure Client conforms to the adapter interfaces at compile time.
var (
	_ provider.Adapter      = (*Client)(nil)
	_ provider.BatchAdapter = (*Client)(nil)
)
