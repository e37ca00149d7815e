package web

import (
	"context"
	"sync"
)

// PageCache stores the result of fetching a page keyed by the page's
// normalized url. A nil page is stored for urls that are not html so they
// are never fetched again.
type PageCache interface {
	// Get returns the stored page and true if the key has an entry. The page
	// is nil for negative entries.
	Get(ctx context.Context, key string) (*HTMLPage, bool, error)
	Set(ctx context.Context, key string, page *HTMLPage) error
}

// NewPageCache creates an in-memory PageCache that lives as long as one
// crawl session.
func NewPageCache() *MemoryCache {
	return &MemoryCache{pages: make(map[string]*HTMLPage)}
}

// MemoryCache is an append-only in-memory PageCache.
type MemoryCache struct {
	mu    sync.RWMutex
	pages map[string]*HTMLPage
}

func (c *MemoryCache) Get(_ context.Context, key string) (*HTMLPage, bool, error) {
	c.mu.RLock()
	page, ok := c.pages[key]
	c.mu.RUnlock()
	return page, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, page *HTMLPage) error {
	c.mu.Lock()
	c.pages[key] = page
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, positive and negative.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
