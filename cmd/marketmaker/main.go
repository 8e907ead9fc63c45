package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/galafis/hft-trading-engine/internal/core"
	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/risk"
)

// Simulates a market-making strategy: laddered bids and asks on several
// symbols, then prints the resulting book stats.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rm := risk.NewManager(risk.DefaultLimits())
	eng := core.NewMatchingEngine(rm, nil, nil, logger, nil)

	symbols := []string{"AAPL", "GOOGL", "MSFT", "TSLA"}
	qty := decimal.NewFromInt(100)
	tick := decimal.RequireFromString("0.10")
	bidBase := decimal.RequireFromString("150.00")
	askBase := decimal.RequireFromString("150.10")

	for _, symbol := range symbols {
		account := fmt.Sprintf("market_maker_%s", symbol)
		for i := 0; i < 5; i++ {
			offset := tick.Mul(decimal.NewFromInt(int64(i)))
			place(ctx, eng, symbol, domain.Buy, qty, bidBase.Sub(offset), account, logger)
			place(ctx, eng, symbol, domain.Sell, qty, askBase.Add(offset), account, logger)
		}

		view, err := eng.GetOrderBook(symbol)
		if err != nil {
			logger.Warn("orderbook missing", zap.String("symbol", symbol))
			continue
		}
		fields := []zap.Field{zap.String("symbol", symbol)}
		if bid, ok := view.BestBid(); ok {
			fields = append(fields, zap.String("best_bid", bid.Price.String()))
		}
		if ask, ok := view.BestAsk(); ok {
			fields = append(fields, zap.String("best_ask", ask.Price.String()))
		}
		if spread, ok := view.Spread(); ok {
			fields = append(fields, zap.String("spread", spread.String()))
		}
		if mid, ok := view.MidPrice(); ok {
			fields = append(fields, zap.String("mid_price", mid.String()))
		}
		logger.Info("book ready", fields...)
	}
}

func place(ctx context.Context, eng *core.MatchingEngine, symbol string, side domain.Side, qty, price decimal.Decimal, account string, logger *zap.Logger) {
	o, err := domain.NewOrder(symbol, side, domain.Limit, qty, price, decimal.Zero, account)
	if err != nil {
		logger.Warn("bad order", zap.Error(err))
		return
	}
	if _, err := eng.SubmitOrder(ctx, o); err != nil {
		logger.Warn("order refused", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	logger.Info("order placed",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("price", price.String()),
		zap.String("quantity", qty.String()))
}
