package simulation

import (
	"context"
	"sync"
)

// ResultCache keeps the latest successful simulation per namespace.
type ResultCache interface {
	Put(ctx context.Context, namespace string, res SimulateResponse) error
	Latest(ctx context.Context, namespace string) (SimulateResponse, bool, error)
}

// MemoryCache is an in-process ResultCache.
type MemoryCache struct {
	mu      sync.RWMutex
	results map[string]SimulateResponse
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{results: make(map[string]SimulateResponse)}
}

func (c *MemoryCache) Put(_ context.Context, namespace string, res SimulateResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[namespace] = res
	return nil
}

func (c *MemoryCache) Latest(_ context.Context, namespace string) (SimulateResponse, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[namespace]
	return res, ok, nil
}
