package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"bistro/internal/cache"
	"bistro/internal/core"
)

const (
	defaultCacheSize = 16
	defaultCacheTTL  = time.Hour
)

// CachedAnalyzer reuses a report while the analysed data is unchanged.
// Entries are keyed by a hash of the data sent to the model, so any edit to
// the ledger produces a fresh report. Errors are not cached.
type CachedAnalyzer struct {
	next  Analyzer
	cache cache.Cache[string]
}

var _ Analyzer = (*CachedAnalyzer)(nil)

// NewCachedAnalyzer wraps next. A nil c gets a small LRU with a one hour TTL.
func NewCachedAnalyzer(next Analyzer, c cache.Cache[string]) *CachedAnalyzer {
	if c == nil {
		c = cache.NewLRUCache[string](defaultCacheSize, defaultCacheTTL)
	}
	return &CachedAnalyzer{next: next, cache: c}
}

func (a *CachedAnalyzer) Analyze(ctx context.Context, txs []core.Transaction) (string, error) {
	key, err := cacheKey(txs)
	if err != nil {
		return a.next.Analyze(ctx, txs)
	}
	if report, ok := a.cache.Get(key); ok {
		return report, nil
	}
	report, err := a.next.Analyze(ctx, txs)
	if err != nil {
		return "", err
	}
	a.cache.Set(key, report)
	return report, nil
}

func cacheKey(txs []core.Transaction) (string, error) {
	data, err := summaryData(txs)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
