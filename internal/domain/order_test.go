package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewOrder(t *testing.T) {
	o, err := NewOrder("AAPL", Buy, Limit, d("100"), d("150.50"), decimal.Zero, "user123")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", o.Symbol)
	assert.Equal(t, Buy, o.Side)
	assert.Equal(t, New, o.Status)
	assert.True(t, o.Quantity.Equal(d("100")))
	assert.True(t, o.FilledQuantity.IsZero())
	assert.True(t, o.Remaining().Equal(d("100")))
	assert.NotEqual(t, uuid.Nil, o.ID)
}

func TestNewOrderValidation(t *testing.T) {
	cases := []struct {
		name      string
		side      Side
		typ       OrderType
		qty       string
		price     string
		stopPrice string
	}{
		{"zero quantity", Buy, Limit, "0", "150", "0"},
		{"negative quantity", Buy, Limit, "-100", "150", "0"},
		{"limit without price", Buy, Limit, "100", "0", "0"},
		{"limit negative price", Sell, Limit, "100", "-1", "0"},
		{"stop limit without price", Buy, StopLimit, "100", "0", "99"},
		{"stop loss without stop price", Sell, StopLoss, "100", "0", "0"},
		{"stop limit without stop price", Sell, StopLimit, "100", "150", "0"},
		{"bad side", Side("SHORT"), Limit, "100", "150", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder("AAPL", tc.side, tc.typ, d(tc.qty), d(tc.price), d(tc.stopPrice), "user123")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestMarketOrderNeedsNoPrice(t *testing.T) {
	o, err := NewOrder("AAPL", Sell, Market, d("5"), decimal.Zero, decimal.Zero, "user123")
	require.NoError(t, err)
	assert.True(t, o.Price.IsZero())
}

func TestApplyFill(t *testing.T) {
	o, err := NewOrder("AAPL", Buy, Limit, d("100"), d("150.50"), decimal.Zero, "user123")
	require.NoError(t, err)

	now := time.Now()
	o.ApplyFill(d("50"), now)
	assert.Equal(t, PartiallyFilled, o.Status)
	assert.True(t, o.FilledQuantity.Equal(d("50")))
	assert.True(t, o.Remaining().Equal(d("50")))
	assert.True(t, o.IsActive())

	o.ApplyFill(d("50"), now)
	assert.Equal(t, Filled, o.Status)
	assert.True(t, o.IsFullyFilled())
	assert.True(t, o.IsTerminal())
}

func TestApplyFillOutOfBoundsPanics(t *testing.T) {
	o, err := NewOrder("AAPL", Buy, Limit, d("10"), d("100"), decimal.Zero, "user123")
	require.NoError(t, err)

	assert.Panics(t, func() { o.ApplyFill(d("11"), time.Now()) })
	assert.Panics(t, func() { o.ApplyFill(decimal.Zero, time.Now()) })
}

func TestCancel(t *testing.T) {
	now := time.Now()

	o, err := NewOrder("AAPL", Buy, Limit, d("10"), d("100"), decimal.Zero, "user123")
	require.NoError(t, err)
	assert.True(t, o.Cancel(now))
	assert.Equal(t, Cancelled, o.Status)
	// terminal: a second cancel is refused
	assert.False(t, o.Cancel(now))

	pending, err := NewOrder("AAPL", Sell, StopLoss, d("10"), decimal.Zero, d("95"), "user123")
	require.NoError(t, err)
	pending.Status = PendingTrigger
	assert.True(t, pending.Cancel(now))

	filled, err := NewOrder("AAPL", Buy, Limit, d("10"), d("100"), decimal.Zero, "user123")
	require.NoError(t, err)
	filled.ApplyFill(d("10"), now)
	assert.False(t, filled.Cancel(now))
}

func TestTradeNotionalValue(t *testing.T) {
	trade := Trade{
		ID:       uuid.New(),
		Symbol:   "AAPL",
		Price:    d("150.50"),
		Quantity: d("100"),
	}
	assert.True(t, trade.NotionalValue().Equal(d("15050")))
}
