package in_memory

import (
	"context"
	"sync"

	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/port"
)

var _ port.Cache = (*Cache)(nil)

// Cache is the in-process stand-in for the Redis depth cache.
type Cache struct {
	mu    sync.Mutex
	store map[string]domain.BookSnapshot
}

func NewCache() *Cache {
	return &Cache{store: make(map[string]domain.BookSnapshot)}
}

func (c *Cache) SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[symbol] = *snap
	return nil
}

func (c *Cache) GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.store[symbol]
	if !ok {
		return nil, nil
	}
	cp := snap
	return &cp, nil
}
