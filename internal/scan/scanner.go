// Package scan runs one provider over a batch of canonical URLs with bounded
// concurrency and per-run memoization. Results come back index-aligned with
// the input so callers can pair verdicts with the candidates they started
// from regardless of completion order.
package scan

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mailscan/internal/provider"
	"mailscan/pkg/domain"
	"mailscan/pkg/logger"
)

// Progress is invoked after each URL gets its result, with counts of finished
// and total URLs. Callbacks run from worker goroutines and must be safe for
// concurrent use; a nil Progress is fine.
type Progress func(done, total int)

// Scanner fans a batch of URLs out to a provider adapter.
type Scanner struct {
	adapter  provider.Adapter
	cache    *Cache
	progress Progress
}

// New constructs a Scanner around the adapter. The cache may be shared across
// several Scan calls within one run; nil disables memoization.
func New(adapter provider.Adapter, cache *Cache, progress Progress) *Scanner {
	return &Scanner{adapter: adapter, cache: cache, progress: progress}
}

// Scan checks every URL and returns one result per input, in input order.
// Batch-capable adapters get the whole uncached set in one call; everything
// else is dispatched to a worker pool capped at the adapter's concurrency.
// A failed or panicking check yields an unknown result for that URL only.
func (s *Scanner) Scan(ctx context.Context, URLs []string) []domain.ProviderResult {
	results := make([]domain.ProviderResult, len(URLs))

	// resolve cache hits first so only misses hit the network
	var missIdx []int
	for i, u := range URLs {
		if s.cache != nil {
			if res, ok := s.cache.Get(s.adapter.ID(), u); ok {
				results[i] = res

				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	done := len(URLs) - len(missIdx)
	s.report(done, len(URLs))
	if len(missIdx) == 0 {
		return results
	}

	if batch, ok := s.adapter.(provider.BatchAdapter); ok {
		s.scanBatch(ctx, batch, URLs, missIdx, results)
		s.report(len(URLs), len(URLs))

		return results
	}

	s.scanEach(ctx, URLs, missIdx, results, &done)

	return results
}

func (s *Scanner) scanBatch(ctx context.Context,
	batch provider.BatchAdapter,
	URLs []string,
	missIdx []int,
	results []domain.ProviderResult) {
	misses := make([]string, 0, len(missIdx))
	for _, i := range missIdx {
		misses = append(misses, URLs[i])
	}

	byURL := batch.CheckBatch(ctx, misses)
	for _, i := range missIdx {
		res, ok := byURL[URLs[i]]
		if !ok {
			res = domain.ProviderResult{
				Provider: s.adapter.ID(),
				Verdict:  domain.VerdictUnknown,
				Err:      "no result returned for URL",
			}
		}
		results[i] = res
		if s.cache != nil {
			s.cache.Put(s.adapter.ID(), URLs[i], res)
		}
	}
}

func (s *Scanner) scanEach(ctx context.Context,
	URLs []string,
	missIdx []int,
	results []domain.ProviderResult,
	done *int) {
	workers := s.adapter.Concurrency()
	if workers < 1 {
		workers = 1
	}
	if workers > len(missIdx) {
		workers = len(missIdx)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	idxChan := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				res := s.checkOne(ctx, URLs[i])
				results[i] = res
				if s.cache != nil {
					s.cache.Put(s.adapter.ID(), URLs[i], res)
				}

				mu.Lock()
				*done++
				n := *done
				mu.Unlock()
				s.report(n, len(URLs))
			}
		}()
	}

	for _, i := range missIdx {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()
}

// checkOne runs a single adapter check and converts a panic into an unknown
// result so one misbehaving lookup cannot take the whole batch down.
func (s *Scanner) checkOne(ctx context.Context, URL string) (res domain.ProviderResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "provider check panicked",
				zap.String("provider", string(s.adapter.ID())),
				zap.String("URL", URL),
				zap.Any("panic", r))
			res = domain.ProviderResult{
				Provider: s.adapter.ID(),
				Verdict:  domain.VerdictUnknown,
				Err:      fmt.Sprintf("provider check panicked: %v", r),
			}
		}
	}()

	return s.adapter.Check(ctx, URL)
}

func (s *Scanner) report(done, total int) {
	if s.progress != nil {
		s.progress(done, total)
	}
}

// Summarize tallies verdict counts over a result set.
func Summarize(results []domain.ProviderResult) domain.Summary {
	var sum domain.Summary
	for _, res := range results {
		sum.Add(res.Verdict)
	}

	return sum
}
