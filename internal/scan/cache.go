package scan

import (
	"sync"

	"mailscan/pkg/domain"
	"mailscan/pkg/metrics"
)

// Cache memoizes provider results per canonical URL so a URL appearing in
// several messages of one run is checked once per provider. It is scoped to a
// run, not a process: callers drop it when the run finishes.
type Cache struct {
	mu      sync.Mutex
	results map[domain.ProviderID]map[string]domain.ProviderResult
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{results: make(map[domain.ProviderID]map[string]domain.ProviderResult)}
}

// Get returns the memoized result for the provider and URL, if any.
func (c *Cache) Get(id domain.ProviderID, URL string) (domain.ProviderResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.results[id][URL]
	if ok {
		metrics.CacheHits.WithLabelValues(string(id)).Inc()
	}

	return res, ok
}

// Put memoizes a result. Results carrying a transport error are not cached so
// a transient failure does not poison later lookups of the same URL.
func (c *Cache) Put(id domain.ProviderID, URL string, res domain.ProviderResult) {
	if res.Err != "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.results[id] == nil {
		c.results[id] = make(map[string]domain.ProviderResult)
	}
	c.results[id][URL] = res
}
