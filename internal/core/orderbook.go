package core

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

// priceLevel is one price of one side of the book: a FIFO queue of resting
// order ids plus the aggregate remaining quantity at that price.
type priceLevel struct {
	price  decimal.Decimal
	orders []uuid.UUID // FIFO, head at index 0
	total  decimal.Decimal
}

// bookSide keeps the levels of one side sorted best-first: descending prices
// for bids, ascending for asks. Level lookup is a binary search, best-of-book
// is a peek at index 0.
type bookSide struct {
	side   domain.Side
	levels []*priceLevel
}

// better reports whether price a has strictly higher priority than b on this
// side of the book.
func (s *bookSide) better(a, b decimal.Decimal) bool {
	if s.side == domain.Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// search returns the index where price sorts on this side and whether a level
// with exactly that price exists there.
func (s *bookSide) search(price decimal.Decimal) (int, bool) {
	idx := sort.Search(len(s.levels), func(i int) bool {
		return !s.better(s.levels[i].price, price)
	})
	if idx < len(s.levels) && s.levels[idx].price.Equal(price) {
		return idx, true
	}
	return idx, false
}

func (s *bookSide) getOrCreate(price decimal.Decimal) *priceLevel {
	idx, found := s.search(price)
	if found {
		return s.levels[idx]
	}
	level := &priceLevel{price: price, total: decimal.Zero}
	s.levels = append(s.levels, nil)
	copy(s.levels[idx+1:], s.levels[idx:])
	s.levels[idx] = level
	return level
}

func (s *bookSide) dropEmpty(price decimal.Decimal) {
	idx, found := s.search(price)
	if found && len(s.levels[idx].orders) == 0 {
		s.levels = append(s.levels[:idx], s.levels[idx+1:]...)
	}
}

func (s *bookSide) best() (*priceLevel, bool) {
	if len(s.levels) == 0 {
		return nil, false
	}
	return s.levels[0], true
}

// OrderBook maintains resting liquidity for one symbol. It holds only order
// ids; order records live in the engine registry. Not safe for concurrent
// use: callers hold the per-symbol lock.
type OrderBook struct {
	symbol string
	bids   *bookSide
	asks   *bookSide
	index  map[uuid.UUID]domain.Side // resting id -> side
	prices map[uuid.UUID]decimal.Decimal
}

// NewOrderBook creates an empty book for one symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   &bookSide{side: domain.Buy},
		asks:   &bookSide{side: domain.Sell},
		index:  make(map[uuid.UUID]domain.Side),
		prices: make(map[uuid.UUID]decimal.Decimal),
	}
}

// Symbol returns the instrument this book belongs to.
func (ob *OrderBook) Symbol() string { return ob.symbol }

func (ob *OrderBook) sideOf(side domain.Side) *bookSide {
	if side == domain.Buy {
		return ob.bids
	}
	return ob.asks
}

// AddResting appends the order to the tail of the queue at its price,
// creating the level if absent.
func (ob *OrderBook) AddResting(o *domain.Order) {
	level := ob.sideOf(o.Side).getOrCreate(o.Price)
	level.orders = append(level.orders, o.ID)
	level.total = level.total.Add(o.Remaining())
	ob.index[o.ID] = o.Side
	ob.prices[o.ID] = o.Price
}

// Contains reports whether the order currently rests in this book.
func (ob *OrderBook) Contains(orderID uuid.UUID) bool {
	_, ok := ob.index[orderID]
	return ok
}

// Reduce lowers the aggregate at the order's level after a partial fill.
func (ob *OrderBook) Reduce(orderID uuid.UUID, qty decimal.Decimal) {
	side, ok := ob.index[orderID]
	if !ok {
		return
	}
	s := ob.sideOf(side)
	if idx, found := s.search(ob.prices[orderID]); found {
		s.levels[idx].total = s.levels[idx].total.Sub(qty)
	}
}

// Remove takes the order out of its level queue, decrements the aggregate by
// the order's remaining quantity and deletes the level when it empties.
func (ob *OrderBook) Remove(o *domain.Order) bool {
	side, ok := ob.index[o.ID]
	if !ok {
		return false
	}
	s := ob.sideOf(side)
	price := ob.prices[o.ID]
	idx, found := s.search(price)
	if !found {
		return false
	}
	level := s.levels[idx]
	for i, id := range level.orders {
		if id == o.ID {
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			break
		}
	}
	level.total = level.total.Sub(o.Remaining())
	delete(ob.index, o.ID)
	delete(ob.prices, o.ID)
	s.dropEmpty(price)
	return true
}

// BestBid returns the highest bid level, if any.
func (ob *OrderBook) BestBid() (domain.BookLevel, bool) {
	level, ok := ob.bids.best()
	if !ok {
		return domain.BookLevel{}, false
	}
	return domain.BookLevel{Price: level.price, Quantity: level.total}, true
}

// BestAsk returns the lowest ask level, if any.
func (ob *OrderBook) BestAsk() (domain.BookLevel, bool) {
	level, ok := ob.asks.best()
	if !ok {
		return domain.BookLevel{}, false
	}
	return domain.BookLevel{Price: level.price, Quantity: level.total}, true
}

// Spread returns best ask minus best bid when both sides are populated.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// MidPrice returns the arithmetic mean of best bid and best ask.
func (ob *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, okB := ob.BestBid()
	ask, okA := ob.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// Depth returns up to n aggregated levels from the best end of the given
// side; n <= 0 returns every level. Levels are never split.
func (ob *OrderBook) Depth(side domain.Side, n int) []domain.BookLevel {
	s := ob.sideOf(side)
	if n <= 0 || n > len(s.levels) {
		n = len(s.levels)
	}
	out := make([]domain.BookLevel, 0, n)
	for _, level := range s.levels[:n] {
		out = append(out, domain.BookLevel{Price: level.price, Quantity: level.total})
	}
	return out
}

// MatchCandidates returns the resting order ids the aggressor may execute
// against, in priority order: best price level first, FIFO within a level.
// A nil limit accepts every level (market order); otherwise iteration stops
// at the first level beyond the limit.
func (ob *OrderBook) MatchCandidates(aggressor domain.Side, limit *decimal.Decimal) []uuid.UUID {
	opposite := ob.sideOf(aggressor.Opposite())
	var out []uuid.UUID
	for _, level := range opposite.levels {
		if limit != nil {
			if aggressor == domain.Buy && level.price.GreaterThan(*limit) {
				break
			}
			if aggressor == domain.Sell && level.price.LessThan(*limit) {
				break
			}
		}
		out = append(out, level.orders...)
	}
	return out
}

// Snapshot aggregates up to depth levels per side for external consumers;
// depth <= 0 includes every level.
func (ob *OrderBook) Snapshot(depth int, at time.Time) *domain.BookSnapshot {
	return &domain.BookSnapshot{
		Symbol:    ob.symbol,
		Bids:      ob.Depth(domain.Buy, depth),
		Asks:      ob.Depth(domain.Sell, depth),
		Timestamp: at,
	}
}
