package port

import (
	"context"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

// Cache publishes aggregated depth snapshots for external consumers.
type Cache interface {
	SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error)
}
