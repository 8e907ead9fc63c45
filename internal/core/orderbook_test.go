package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func restingOrder(t *testing.T, side domain.Side, price, qty string) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder("AAPL", side, domain.Limit, d(qty), d(price), decimal.Zero, "test_user")
	require.NoError(t, err)
	return o
}

func TestAddRestingAndBestOfBook(t *testing.T) {
	ob := NewOrderBook("AAPL")

	ob.AddResting(restingOrder(t, domain.Buy, "150.00", "100"))
	ob.AddResting(restingOrder(t, domain.Sell, "151.00", "100"))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("150.00")))
	assert.True(t, bid.Quantity.Equal(d("100")))

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Price.Equal(d("151.00")))
}

func TestBestTracksInserts(t *testing.T) {
	ob := NewOrderBook("AAPL")

	ob.AddResting(restingOrder(t, domain.Buy, "149.90", "100"))
	ob.AddResting(restingOrder(t, domain.Buy, "150.00", "100"))
	ob.AddResting(restingOrder(t, domain.Buy, "149.80", "100"))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Price.Equal(d("150.00")))

	ob.AddResting(restingOrder(t, domain.Sell, "150.20", "100"))
	ob.AddResting(restingOrder(t, domain.Sell, "150.10", "100"))

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Price.Equal(d("150.10")))
}

func TestLevelAggregation(t *testing.T) {
	ob := NewOrderBook("AAPL")

	ob.AddResting(restingOrder(t, domain.Sell, "150.10", "500"))
	ob.AddResting(restingOrder(t, domain.Sell, "150.10", "300"))

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Quantity.Equal(d("800")))

	depth := ob.Depth(domain.Sell, 5)
	require.Len(t, depth, 1)
	assert.True(t, depth[0].Quantity.Equal(d("800")))
}

func TestSpreadAndMidPrice(t *testing.T) {
	ob := NewOrderBook("AAPL")

	_, ok := ob.Spread()
	assert.False(t, ok)

	ob.AddResting(restingOrder(t, domain.Buy, "150.00", "100"))
	ob.AddResting(restingOrder(t, domain.Sell, "151.00", "100"))

	spread, ok := ob.Spread()
	require.True(t, ok)
	assert.True(t, spread.Equal(d("1.00")))

	mid, ok := ob.MidPrice()
	require.True(t, ok)
	assert.True(t, mid.Equal(d("150.50")))
}

func TestDepthOrdering(t *testing.T) {
	ob := NewOrderBook("AAPL")

	ob.AddResting(restingOrder(t, domain.Buy, "150.00", "100"))
	ob.AddResting(restingOrder(t, domain.Buy, "149.00", "200"))
	ob.AddResting(restingOrder(t, domain.Sell, "151.00", "150"))
	ob.AddResting(restingOrder(t, domain.Sell, "152.00", "250"))

	bids := ob.Depth(domain.Buy, 2)
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(d("150.00")))
	assert.True(t, bids[1].Price.Equal(d("149.00")))

	asks := ob.Depth(domain.Sell, 2)
	require.Len(t, asks, 2)
	assert.True(t, asks[0].Price.Equal(d("151.00")))
	assert.True(t, asks[1].Price.Equal(d("152.00")))

	// n larger than the book returns what exists
	assert.Len(t, ob.Depth(domain.Buy, 10), 2)
}

func TestRemoveDropsEmptyLevels(t *testing.T) {
	ob := NewOrderBook("AAPL")

	o1 := restingOrder(t, domain.Sell, "150.10", "500")
	o2 := restingOrder(t, domain.Sell, "150.10", "300")
	ob.AddResting(o1)
	ob.AddResting(o2)

	require.True(t, ob.Remove(o1))
	assert.False(t, ob.Contains(o1.ID))

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Quantity.Equal(d("300")))

	require.True(t, ob.Remove(o2))
	_, ok = ob.BestAsk()
	assert.False(t, ok)
	assert.Empty(t, ob.Depth(domain.Sell, 10))

	// removing an unknown order is a no-op
	assert.False(t, ob.Remove(o1))
}

func TestReduceKeepsAggregateInSync(t *testing.T) {
	ob := NewOrderBook("AAPL")

	o := restingOrder(t, domain.Buy, "150.00", "100")
	ob.AddResting(o)
	ob.Reduce(o.ID, d("40"))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Quantity.Equal(d("60")))
}

func TestMatchCandidatesPriority(t *testing.T) {
	ob := NewOrderBook("AAPL")

	s1 := restingOrder(t, domain.Sell, "100", "5")
	s2 := restingOrder(t, domain.Sell, "100", "5")
	s3 := restingOrder(t, domain.Sell, "99", "5")
	ob.AddResting(s1)
	ob.AddResting(s2)
	ob.AddResting(s3)

	// Buy aggressor sees asks ascending, FIFO within a level.
	ids := ob.MatchCandidates(domain.Buy, nil)
	require.Len(t, ids, 3)
	assert.Equal(t, s3.ID, ids[0])
	assert.Equal(t, s1.ID, ids[1])
	assert.Equal(t, s2.ID, ids[2])
}

func TestMatchCandidatesRespectsLimit(t *testing.T) {
	ob := NewOrderBook("AAPL")

	cheap := restingOrder(t, domain.Sell, "100", "5")
	dear := restingOrder(t, domain.Sell, "102", "5")
	ob.AddResting(cheap)
	ob.AddResting(dear)

	limit := d("101")
	ids := ob.MatchCandidates(domain.Buy, &limit)
	require.Len(t, ids, 1)
	assert.Equal(t, cheap.ID, ids[0])

	// Sell aggressor against bids, descending with a floor.
	b1 := restingOrder(t, domain.Buy, "99", "5")
	b2 := restingOrder(t, domain.Buy, "98", "5")
	ob.AddResting(b1)
	ob.AddResting(b2)

	floor := d("98.50")
	ids = ob.MatchCandidates(domain.Sell, &floor)
	require.Len(t, ids, 1)
	assert.Equal(t, b1.ID, ids[0])
}
