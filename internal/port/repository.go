package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

// Repository is the optional write-behind store for orders and trades. The
// engine tolerates a nil repository; matching never depends on it.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error)
	LoadTradesForOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Trade, error)
}
