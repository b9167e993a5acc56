package scraper

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// resultCache remembers product page outcomes for a short while so repeated
// quotes for the same size do not refetch every page. Fetch failures are
// never stored. A nil cache is valid and stores nothing.
type resultCache struct {
	lru *expirable.LRU[string, ProductResult]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &resultCache{lru: expirable.NewLRU[string, ProductResult](size, nil, ttl)}
}

func (c *resultCache) get(url string) (ProductResult, bool) {
	if c == nil {
		return ProductResult{}, false
	}
	return c.lru.Get(url)
}

func (c *resultCache) add(url string, result ProductResult) {
	if c == nil || result.Outcome == OutcomeFetchFailed {
		return
	}
	c.lru.Add(url, result)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
