package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/port"
	"github.com/galafis/hft-trading-engine/internal/risk"
)

// bookHandle bundles everything that must mutate atomically for one symbol:
// the book itself, the pending stop set, the last trade price the stop
// triggers are evaluated against, the ticker, and the per-order trade log.
// The mutex serialises all of it; different symbols match in parallel.
type bookHandle struct {
	mu sync.Mutex

	book      *OrderBook
	stops     []uuid.UUID // pending stop order ids in arrival order
	lastTrade decimal.Decimal
	hasTraded bool
	ticker    domain.Ticker
	trades    map[uuid.UUID][]*domain.Trade // order id -> executions
}

func newBookHandle(symbol string) *bookHandle {
	return &bookHandle{
		book:   NewOrderBook(symbol),
		ticker: domain.Ticker{Symbol: symbol},
		trades: make(map[uuid.UUID][]*domain.Trade),
	}
}

// MatchingEngine routes orders into per-symbol books, runs price/time
// priority matching, keeps the live order registry and drives the stop
// trigger cascade. Repository and cache are optional write-behind
// collaborators; the engine works with both nil.
type MatchingEngine struct {
	books  sync.Map // symbol -> *bookHandle
	orders sync.Map // uuid.UUID -> *domain.Order

	risk     *risk.Manager
	repo     port.Repository
	cache    port.Cache
	log      *zap.Logger
	clock    Clock
	tradeSeq atomic.Uint64
}

// NewMatchingEngine creates an engine guarded by the given risk manager.
// repo, cache, logger and clock may all be nil; sensible defaults apply.
func NewMatchingEngine(rm *risk.Manager, repo port.Repository, cache port.Cache, logger *zap.Logger, clock Clock) *MatchingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &MatchingEngine{
		risk:  rm,
		repo:  repo,
		cache: cache,
		log:   logger,
		clock: clock,
	}
}

// Risk exposes the engine's risk manager.
func (e *MatchingEngine) Risk() *risk.Manager { return e.risk }

// handle returns the symbol's book handle, creating it atomically on first
// touch.
func (e *MatchingEngine) handle(symbol string) *bookHandle {
	if v, ok := e.books.Load(symbol); ok {
		return v.(*bookHandle)
	}
	v, _ := e.books.LoadOrStore(symbol, newBookHandle(symbol))
	return v.(*bookHandle)
}

// SubmitOrder runs the submission protocol: risk admission, classification,
// matching, residual resting and the stop trigger cascade. It returns every
// trade the submission produced, including trades from triggered stops.
func (e *MatchingEngine) SubmitOrder(ctx context.Context, o *domain.Order) ([]*domain.Trade, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil order", domain.ErrInvalidOrder)
	}
	now := e.clock.Now()
	o.CreatedAt = now
	o.UpdatedAt = now

	if chk := e.risk.CheckOrder(o); !chk.Passed {
		o.Reject(now)
		e.orders.Store(o.ID, o)
		e.log.Warn("order rejected by risk",
			zap.String("order_id", o.ID.String()),
			zap.String("account", o.Account),
			zap.String("reason", chk.Reason))
		return nil, &domain.RiskRejectedError{Reason: chk.Reason}
	}
	e.orders.Store(o.ID, o)

	h := e.handle(o.Symbol)
	h.mu.Lock()

	var trades []*domain.Trade
	if o.Type.IsStop() {
		o.Status = domain.PendingTrigger
		h.stops = append(h.stops, o.ID)
	} else {
		trades = e.matchLocked(h, o, limitFor(o))
		if o.Type == domain.Limit && o.IsActive() && o.Remaining().IsPositive() {
			h.book.AddResting(o)
		}
		if len(trades) > 0 {
			trades = append(trades, e.cascadeLocked(h)...)
		}
	}
	snap := h.book.Snapshot(0, e.clock.Now())
	h.mu.Unlock()

	e.persist(ctx, o, trades, snap)
	if len(trades) > 0 {
		e.log.Debug("order matched",
			zap.String("order_id", o.ID.String()),
			zap.String("symbol", o.Symbol),
			zap.Int("trades", len(trades)))
	}
	return trades, nil
}

// limitFor returns the matching price bound: the order's own price for
// limit orders, nil (unbounded) for market orders.
func limitFor(o *domain.Order) *decimal.Decimal {
	if o.Type.HasLimitPrice() {
		p := o.Price
		return &p
	}
	return nil
}

// matchLocked walks the opposite side in aggressor-priority order and
// executes until the aggressor fills or the book runs out of acceptable
// liquidity. Trades execute at the resting order's price.
func (e *MatchingEngine) matchLocked(h *bookHandle, aggressor *domain.Order, limit *decimal.Decimal) []*domain.Trade {
	var trades []*domain.Trade
	for _, id := range h.book.MatchCandidates(aggressor.Side, limit) {
		if aggressor.IsFullyFilled() {
			break
		}
		v, ok := e.orders.Load(id)
		if !ok {
			continue
		}
		resting := v.(*domain.Order)
		if !resting.IsActive() {
			continue
		}

		qty := decimal.Min(aggressor.Remaining(), resting.Remaining())
		now := e.clock.Now()
		buy, sell := aggressor, resting
		if aggressor.Side == domain.Sell {
			buy, sell = resting, aggressor
		}
		trade := &domain.Trade{
			ID:            uuid.New(),
			Seq:           e.tradeSeq.Add(1),
			Symbol:        aggressor.Symbol,
			BuyOrderID:    buy.ID,
			SellOrderID:   sell.ID,
			Price:         resting.Price,
			Quantity:      qty,
			TakerSide:     aggressor.Side,
			BuyerAccount:  buy.Account,
			SellerAccount: sell.Account,
			Timestamp:     now,
		}

		aggressor.ApplyFill(qty, now)
		resting.ApplyFill(qty, now)
		h.book.Reduce(resting.ID, qty)
		if resting.IsFullyFilled() {
			h.book.Remove(resting)
		}

		e.recordTradeLocked(h, trade)
		trades = append(trades, trade)
	}
	return trades
}

// recordTradeLocked updates the last trade price, the ticker, the per-order
// trade log and the risk manager's positions.
func (e *MatchingEngine) recordTradeLocked(h *bookHandle, t *domain.Trade) {
	h.lastTrade = t.Price
	h.hasTraded = true

	tk := &h.ticker
	if tk.Volume.IsZero() {
		tk.Open = t.Price
		tk.High = t.Price
		tk.Low = t.Price
	} else {
		if t.Price.GreaterThan(tk.High) {
			tk.High = t.Price
		}
		if t.Price.LessThan(tk.Low) {
			tk.Low = t.Price
		}
	}
	tk.LastPrice = t.Price
	tk.Volume = tk.Volume.Add(t.Quantity)
	tk.Timestamp = t.Timestamp

	h.trades[t.BuyOrderID] = append(h.trades[t.BuyOrderID], t)
	h.trades[t.SellOrderID] = append(h.trades[t.SellOrderID], t)

	e.risk.OnTrade(t)
}

// cascadeLocked re-inspects the symbol's stop set after trades executed.
// Triggered stops are re-submitted as market (stop-loss) or limit
// (stop-limit) aggressors in trigger-time order; their fills may trigger
// further stops, so the scan repeats until a pass produces nothing.
func (e *MatchingEngine) cascadeLocked(h *bookHandle) []*domain.Trade {
	var extra []*domain.Trade
	for {
		triggered := e.takeTriggeredLocked(h)
		if len(triggered) == 0 {
			return extra
		}
		for _, o := range triggered {
			now := e.clock.Now()
			if chk := e.risk.CheckOrder(o); !chk.Passed {
				o.Reject(now)
				e.log.Warn("triggered stop rejected by risk",
					zap.String("order_id", o.ID.String()),
					zap.String("reason", chk.Reason))
				continue
			}
			o.Status = domain.New
			o.UpdatedAt = now

			var limit *decimal.Decimal
			if o.Type == domain.StopLimit {
				p := o.Price
				limit = &p
			}
			extra = append(extra, e.matchLocked(h, o, limit)...)
			if o.Type == domain.StopLimit && o.IsActive() && o.Remaining().IsPositive() {
				h.book.AddResting(o)
			}
		}
	}
}

// takeTriggeredLocked removes and returns every pending stop whose trigger
// condition holds against the last trade price, preserving arrival order.
func (e *MatchingEngine) takeTriggeredLocked(h *bookHandle) []*domain.Order {
	if !h.hasTraded || len(h.stops) == 0 {
		return nil
	}
	var triggered []*domain.Order
	remaining := h.stops[:0]
	for _, id := range h.stops {
		v, ok := e.orders.Load(id)
		if !ok {
			continue
		}
		o := v.(*domain.Order)
		if o.Status != domain.PendingTrigger {
			continue
		}
		fire := (o.Side == domain.Buy && h.lastTrade.GreaterThanOrEqual(o.StopPrice)) ||
			(o.Side == domain.Sell && h.lastTrade.LessThanOrEqual(o.StopPrice))
		if fire {
			triggered = append(triggered, o)
		} else {
			remaining = append(remaining, id)
		}
	}
	h.stops = remaining
	return triggered
}

// CancelOrder cancels a resting or pending-trigger order. It returns false
// for unknown ids and for orders already in a terminal state.
func (e *MatchingEngine) CancelOrder(ctx context.Context, orderID uuid.UUID) bool {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return false
	}
	o := v.(*domain.Order)
	hv, ok := e.books.Load(o.Symbol)
	if !ok {
		// No book handle means the order never got past admission.
		return false
	}
	h := hv.(*bookHandle)

	h.mu.Lock()
	now := e.clock.Now()
	var cancelled bool
	switch {
	case o.Status == domain.PendingTrigger:
		for i, id := range h.stops {
			if id == orderID {
				h.stops = append(h.stops[:i], h.stops[i+1:]...)
				break
			}
		}
		cancelled = o.Cancel(now)
	case o.IsActive():
		if h.book.Contains(orderID) {
			h.book.Remove(o)
		}
		cancelled = o.Cancel(now)
	}
	var snap *domain.BookSnapshot
	if cancelled {
		snap = h.book.Snapshot(0, now)
	}
	h.mu.Unlock()

	if cancelled {
		e.persist(ctx, o, nil, snap)
	}
	return cancelled
}

// GetOrder returns a copy of the order's current state.
func (e *MatchingEngine) GetOrder(orderID uuid.UUID) (domain.Order, error) {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}
	o := v.(*domain.Order)
	if hv, ok := e.books.Load(o.Symbol); ok {
		h := hv.(*bookHandle)
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	return *o, nil
}

// GetTradesForOrder returns the executions an order has participated in.
func (e *MatchingEngine) GetTradesForOrder(orderID uuid.UUID) ([]*domain.Trade, error) {
	v, ok := e.orders.Load(orderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}
	o := v.(*domain.Order)
	hv, ok := e.books.Load(o.Symbol)
	if !ok {
		return nil, nil
	}
	h := hv.(*bookHandle)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*domain.Trade, len(h.trades[orderID]))
	copy(out, h.trades[orderID])
	return out, nil
}

// GetOrderBook returns a read-only view of the symbol's book.
func (e *MatchingEngine) GetOrderBook(symbol string) (*BookView, error) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return &BookView{h: v.(*bookHandle), clock: e.clock}, nil
}

// GetTicker returns the symbol's trade-flow aggregates.
func (e *MatchingEngine) GetTicker(symbol string) (domain.Ticker, error) {
	v, ok := e.books.Load(symbol)
	if !ok {
		return domain.Ticker{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	h := v.(*bookHandle)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ticker, nil
}

// RestoreOpenOrders re-rests open limit orders from the repository, used on
// warm start. A nil repository makes it a no-op.
func (e *MatchingEngine) RestoreOpenOrders(ctx context.Context, symbols []string) error {
	if e.repo == nil {
		return nil
	}
	for _, symbol := range symbols {
		orders, err := e.repo.LoadOpenOrders(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load open orders for %s: %w", symbol, err)
		}
		h := e.handle(symbol)
		h.mu.Lock()
		for _, o := range orders {
			if !o.IsActive() || !o.Type.HasLimitPrice() {
				continue
			}
			e.orders.Store(o.ID, o)
			h.book.AddResting(o)
		}
		h.mu.Unlock()
	}
	return nil
}

// persist pushes order, trades and depth snapshot to the optional
// collaborators. Failures are logged, never surfaced: the match already
// happened.
func (e *MatchingEngine) persist(ctx context.Context, o *domain.Order, trades []*domain.Trade, snap *domain.BookSnapshot) {
	if e.repo != nil {
		if err := e.repo.SaveOrder(ctx, o); err != nil {
			e.log.Warn("save order", zap.Error(err))
		}
		for _, t := range trades {
			if err := e.repo.SaveTrade(ctx, t); err != nil {
				e.log.Warn("save trade", zap.Error(err))
			}
		}
	}
	if e.cache != nil && snap != nil {
		if err := e.cache.SetBook(ctx, snap.Symbol, snap); err != nil {
			e.log.Warn("cache book snapshot", zap.Error(err))
		}
	}
}

// BookView is a read-only accessor over one symbol's book. Every method
// takes the symbol lock for the duration of the read.
type BookView struct {
	h     *bookHandle
	clock Clock
}

// BestBid returns the highest bid level.
func (v *BookView) BestBid() (domain.BookLevel, bool) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.BestBid()
}

// BestAsk returns the lowest ask level.
func (v *BookView) BestAsk() (domain.BookLevel, bool) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.BestAsk()
}

// Spread returns best ask minus best bid.
func (v *BookView) Spread() (decimal.Decimal, bool) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.Spread()
}

// MidPrice returns the mean of best bid and best ask.
func (v *BookView) MidPrice() (decimal.Decimal, bool) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.MidPrice()
}

// Depth returns the top n levels of one side.
func (v *BookView) Depth(side domain.Side, n int) []domain.BookLevel {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.Depth(side, n)
}

// Snapshot returns an aggregated two-sided depth snapshot.
func (v *BookView) Snapshot(depth int) *domain.BookSnapshot {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return v.h.book.Snapshot(depth, v.clock.Now())
}

// Quote returns a two-sided top-of-book quote; ok is false when either side
// is empty.
func (v *BookView) Quote() (domain.Quote, bool) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	bid, okB := v.h.book.BestBid()
	ask, okA := v.h.book.BestAsk()
	if !okB || !okA {
		return domain.Quote{}, false
	}
	return domain.Quote{
		Symbol:    v.h.book.Symbol(),
		BidPrice:  bid.Price,
		BidSize:   bid.Quantity,
		AskPrice:  ask.Price,
		AskSize:   ask.Quantity,
		Timestamp: v.clock.Now(),
	}, true
}
