// Package resolve follows HTTP redirects for shortened URLs to discover the
// effective destination before reputation lookup.
package resolve

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailscan/pkg/logger"
)

const (
	// DefaultMaxHops bounds how many redirects are followed per URL.
	DefaultMaxHops = 6
	// DefaultHopTimeout bounds each individual redirect-following request.
	DefaultHopTimeout = 10 * time.Second
)

// Resolver expands shortened URLs by following Location headers hop by hop.
// It never fails: on any error or timeout the best-known address so far is
// returned. Results are cached for the lifetime of the Resolver, which is one
// scan invocation.
type Resolver struct {
	client     *http.Client
	maxHops    int
	hopTimeout time.Duration

	mu    sync.Mutex
	cache map[string]string
}

// New constructs a Resolver. A nil client uses a dedicated http.Client that
// does not follow redirects on its own, so each hop stays under our budget.
// Non-positive limits fall back to the defaults.
func New(client *http.Client, maxHops int, hopTimeout time.Duration) *Resolver {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if hopTimeout <= 0 {
		hopTimeout = DefaultHopTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	// take a shallow copy so we can disable automatic redirect following
	// without mutating the caller's client
	own := *client
	own.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Resolver{
		client:     &own,
		maxHops:    maxHops,
		hopTimeout: hopTimeout,
		cache:      make(map[string]string),
	}
}

// Resolve follows redirects starting at rawURL and returns the final address.
// Stop conditions: hop budget exhausted, no further change, or any network
// error. In every stop case the best-known address is returned, never an
// error. Non-HTTP(S) input is returned unchanged without any network call.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return rawURL
	}

	r.mu.Lock()
	if final, ok := r.cache[rawURL]; ok {
		r.mu.Unlock()

		return final
	}
	r.mu.Unlock()

	current := rawURL
	for hop := 0; hop < r.maxHops; hop++ {
		next, ok := r.step(ctx, current)
		if !ok || next == current {
			break
		}
		logger.Debug(ctx, "followed redirect",
			zap.String("from", current),
			zap.String("to", next),
			zap.Int("hop", hop+1))
		current = next
	}

	r.mu.Lock()
	r.cache[rawURL] = current
	r.mu.Unlock()

	return current
}

// step performs a single redirect hop. It first issues a HEAD request, which
// most shortener services answer, and falls back to GET for services that
// only redirect on GET. It returns the next address and whether resolution
// may continue.
func (r *Resolver) step(ctx context.Context, current string) (string, bool) {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		hopCtx, cancel := context.WithTimeout(ctx, r.hopTimeout)
		next, redirected, err := r.request(hopCtx, method, current)
		cancel()
		if err != nil {
			// a timeout or network failure on any hop truncates resolution
			// at the last known address
			return current, false
		}
		if redirected {
			return next, true
		}
	}

	// 2xx or anything without a Location header: resolution is complete
	return current, false
}

func (r *Resolver) request(ctx context.Context, method, current string) (next string, redirected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, method, current, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", false, nil
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", false, nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", false, err
	}
	ref, err := url.Parse(strings.TrimSpace(loc))
	if err != nil {
		return "", false, err
	}

	return base.ResolveReference(ref).String(), true, nil
}
