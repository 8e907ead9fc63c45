package in_memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

func TestMemoryRepoOrders(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	o, err := domain.NewOrder("AAPL", domain.Buy, domain.Limit,
		decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.Zero, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.SaveOrder(ctx, o))

	open, err := repo.LoadOpenOrders(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, o.ID, open[0].ID)

	// Terminal orders are not reloaded.
	o.Cancel(o.CreatedAt)
	require.NoError(t, repo.SaveOrder(ctx, o))
	open, err = repo.LoadOpenOrders(ctx, "AAPL")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMemoryRepoTrades(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	buy, err := domain.NewOrder("AAPL", domain.Buy, domain.Limit,
		decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.Zero, "u1")
	require.NoError(t, err)
	sell, err := domain.NewOrder("AAPL", domain.Sell, domain.Limit,
		decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.Zero, "u2")
	require.NoError(t, err)

	tr := &domain.Trade{
		Symbol:      "AAPL",
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		Price:       decimal.NewFromInt(100),
		Quantity:    decimal.NewFromInt(10),
	}
	require.NoError(t, repo.SaveTrade(ctx, tr))

	forBuy, err := repo.LoadTradesForOrder(ctx, buy.ID)
	require.NoError(t, err)
	assert.Len(t, forBuy, 1)

	forSell, err := repo.LoadTradesForOrder(ctx, sell.ID)
	require.NoError(t, err)
	assert.Len(t, forSell, 1)
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache()
	ctx := context.Background()

	missing, err := c.GetBook(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, missing)

	snap := &domain.BookSnapshot{
		Symbol: "AAPL",
		Bids:   []domain.BookLevel{{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(5)}},
	}
	require.NoError(t, c.SetBook(ctx, "AAPL", snap))

	got, err := c.GetBook(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	require.Len(t, got.Bids, 1)
	assert.True(t, got.Bids[0].Price.Equal(decimal.NewFromInt(100)))
}
