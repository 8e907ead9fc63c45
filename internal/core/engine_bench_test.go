package core

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/risk"
)

func benchEngine() *MatchingEngine {
	huge := decimal.NewFromInt(1_000_000_000)
	rm := risk.NewManager(risk.Limits{
		MaxOrderSize:    huge,
		MaxPositionSize: huge,
		MaxDailyLoss:    huge,
		MaxOrderValue:   huge.Mul(huge),
	})
	return NewMatchingEngine(rm, nil, nil, nil, nil)
}

func BenchmarkSubmitLimitOrder(b *testing.B) {
	eng := benchEngine()
	ctx := context.Background()
	qty := decimal.NewFromInt(100)
	price := decimal.RequireFromString("150.00")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o, err := domain.NewOrder("AAPL", domain.Buy, domain.Limit, qty, price, decimal.Zero, "user123")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := eng.SubmitOrder(ctx, o); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMatchOrders(b *testing.B) {
	ctx := context.Background()
	qty := decimal.NewFromInt(100)
	price := decimal.RequireFromString("150.00")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng := benchEngine()
		sell, err := domain.NewOrder("AAPL", domain.Sell, domain.Limit, qty, price, decimal.Zero, "seller")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := eng.SubmitOrder(ctx, sell); err != nil {
			b.Fatal(err)
		}
		buy, err := domain.NewOrder("AAPL", domain.Buy, domain.Limit, qty, price, decimal.Zero, "buyer")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := eng.SubmitOrder(ctx, buy); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeepBookSweep(b *testing.B) {
	ctx := context.Background()
	one := decimal.NewFromInt(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		eng := benchEngine()
		for lvl := 0; lvl < 100; lvl++ {
			price := decimal.NewFromInt(int64(100 + lvl))
			o, err := domain.NewOrder("AAPL", domain.Sell, domain.Limit, one, price, decimal.Zero, "maker")
			if err != nil {
				b.Fatal(err)
			}
			if _, err := eng.SubmitOrder(ctx, o); err != nil {
				b.Fatal(err)
			}
		}
		b.StartTimer()

		sweep, err := domain.NewOrder("AAPL", domain.Buy, domain.Market, decimal.NewFromInt(100), decimal.Zero, decimal.Zero, "taker")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := eng.SubmitOrder(ctx, sweep); err != nil {
			b.Fatal(err)
		}
	}
}
