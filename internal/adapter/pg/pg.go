package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/port"
)

var _ port.Repository = (*Repo)(nil)

// Repo is the pgx-backed write-behind store for orders and trades.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo connects a pool to the given DSN. Call Close when finished.
func NewRepo(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO orders(id, symbol, side, type, quantity, filled_quantity, price, stop_price, account, status, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  filled_quantity = EXCLUDED.filled_quantity,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at
`, o.ID.String(), o.Symbol, string(o.Side), string(o.Type),
		o.Quantity, o.FilledQuantity, o.Price, o.StopPrice,
		o.Account, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO trades(id, seq, symbol, buy_order_id, sell_order_id, price, quantity, taker_side, buyer_account, seller_account, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`, t.ID.String(), t.Seq, t.Symbol, t.BuyOrderID.String(), t.SellOrderID.String(),
		t.Price, t.Quantity, string(t.TakerSide), t.BuyerAccount, t.SellerAccount, t.Timestamp)
	return err
}

// LoadOpenOrders returns resting-eligible orders for a symbol in FIFO order.
func (r *Repo) LoadOpenOrders(ctx context.Context, symbol string) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, side, type, quantity, filled_quantity, price, stop_price, account, status, created_at, updated_at
FROM orders
WHERE symbol = $1 AND status IN ('NEW','PARTIALLY_FILLED')
ORDER BY created_at ASC
`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var id, side, typ, status string
		if err := rows.Scan(&id, &o.Symbol, &side, &typ, &o.Quantity, &o.FilledQuantity,
			&o.Price, &o.StopPrice, &o.Account, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("pg: order id: %w", err)
		}
		o.ID = parsed
		o.Side = domain.Side(side)
		o.Type = domain.OrderType(typ)
		o.Status = domain.OrderStatus(status)
		res = append(res, &o)
	}
	return res, rows.Err()
}

func (r *Repo) LoadTradesForOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.Trade, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, seq, symbol, buy_order_id, sell_order_id, price, quantity, taker_side, buyer_account, seller_account, executed_at
FROM trades
WHERE buy_order_id = $1 OR sell_order_id = $1
ORDER BY seq ASC
`, orderID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var id, buyID, sellID, takerSide string
		if err := rows.Scan(&id, &t.Seq, &t.Symbol, &buyID, &sellID, &t.Price, &t.Quantity,
			&takerSide, &t.BuyerAccount, &t.SellerAccount, &t.Timestamp); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("pg: trade id: %w", err)
		}
		if t.BuyOrderID, err = uuid.Parse(buyID); err != nil {
			return nil, fmt.Errorf("pg: buy order id: %w", err)
		}
		if t.SellOrderID, err = uuid.Parse(sellID); err != nil {
			return nil, fmt.Errorf("pg: sell order id: %w", err)
		}
		t.TakerSide = domain.Side(takerSide)
		res = append(res, &t)
	}
	return res, rows.Err()
}
