package in_memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

// MemoryRepo keeps orders and trades in process memory; used in tests. The
// demo server runs with no repository at all when Postgres is not configured.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	trades map[uuid.UUID][]*domain.Trade
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders: make(map[uuid.UUID]domain.Order),
		trades: make(map[uuid.UUID][]*domain.Trade),
	}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.BuyOrderID] = append(r.trades[t.BuyOrderID], t)
	r.trades[t.SellOrderID] = append(r.trades[t.SellOrderID], t)
	return nil
}

func (r *MemoryRepo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Symbol == symbol && o.IsActive() {
			cp := o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (r *MemoryRepo) LoadTradesForOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Trade, len(r.trades[orderID]))
	copy(out, r.trades[orderID])
	return out, nil
}
