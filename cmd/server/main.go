package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/galafis/hft-trading-engine/internal/adapter/cache"
	"github.com/galafis/hft-trading-engine/internal/adapter/pg"
	api "github.com/galafis/hft-trading-engine/internal/api/http"
	"github.com/galafis/hft-trading-engine/internal/core"
	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/port"
	"github.com/galafis/hft-trading-engine/internal/risk"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}

func limitsFromEnv() risk.Limits {
	def := risk.DefaultLimits()
	return risk.Limits{
		MaxOrderSize:    envDecimal("RISK_MAX_ORDER_SIZE", def.MaxOrderSize),
		MaxPositionSize: envDecimal("RISK_MAX_POSITION_SIZE", def.MaxPositionSize),
		MaxDailyLoss:    envDecimal("RISK_MAX_DAILY_LOSS", def.MaxDailyLoss),
		MaxOrderValue:   envDecimal("RISK_MAX_ORDER_VALUE", def.MaxOrderValue),
	}
}

func main() {
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	logger.Info("starting trading engine")

	var repo port.Repository
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		pgRepo, err := pg.NewRepo(ctx, dsn)
		if err != nil {
			logger.Fatal("connect postgres", zap.Error(err))
		}
		defer pgRepo.Close()
		repo = pgRepo
		logger.Info("postgres repository attached")
	}

	var bookCache port.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		bookCache = cache.NewRedisCache(addr, os.Getenv("REDIS_PASSWORD"), 0, 5*time.Minute)
		logger.Info("redis book cache attached", zap.String("addr", addr))
	}

	rm := risk.NewManager(limitsFromEnv())
	eng := core.NewMatchingEngine(rm, repo, bookCache, logger, nil)

	if symbols := os.Getenv("RESTORE_SYMBOLS"); symbols != "" && repo != nil {
		if err := eng.RestoreOpenOrders(ctx, splitCSV(symbols)); err != nil {
			logger.Warn("restore open orders", zap.Error(err))
		}
	}

	runDemo(ctx, eng, rm, logger)

	server := api.NewServer(eng, rm, logger)
	addr := envOr("HTTP_ADDR", ":8080")
	logger.Info("serving HTTP", zap.String("addr", addr))
	if err := server.Run(addr); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runDemo submits a short scripted crossing so a fresh start shows the
// engine working end to end.
func runDemo(ctx context.Context, eng *core.MatchingEngine, rm *risk.Manager, logger *zap.Logger) {
	qty := decimal.NewFromInt(100)
	px := decimal.RequireFromString("150.50")

	sell, err := domain.NewOrder("AAPL", domain.Sell, domain.Limit, qty, px, decimal.Zero, "seller_001")
	if err != nil {
		logger.Fatal("build demo sell", zap.Error(err))
	}
	if _, err := eng.SubmitOrder(ctx, sell); err != nil {
		logger.Warn("demo sell refused", zap.Error(err))
		return
	}
	logger.Info("demo sell resting", zap.String("order_id", sell.ID.String()))

	buy, err := domain.NewOrder("AAPL", domain.Buy, domain.Limit, qty, px, decimal.Zero, "buyer_001")
	if err != nil {
		logger.Fatal("build demo buy", zap.Error(err))
	}
	trades, err := eng.SubmitOrder(ctx, buy)
	if err != nil {
		logger.Warn("demo buy refused", zap.Error(err))
		return
	}
	for _, t := range trades {
		logger.Info("demo trade",
			zap.String("trade_id", t.ID.String()),
			zap.String("price", t.Price.String()),
			zap.String("quantity", t.Quantity.String()),
			zap.String("notional", t.NotionalValue().String()))
	}
	logger.Info("demo positions",
		zap.String("buyer", rm.Position("buyer_001").String()),
		zap.String("seller", rm.Position("seller_001").String()))

	if view, err := eng.GetOrderBook("AAPL"); err == nil {
		fields := []zap.Field{zap.String("symbol", "AAPL")}
		if bid, ok := view.BestBid(); ok {
			fields = append(fields, zap.String("best_bid", bid.Price.String()))
		}
		if ask, ok := view.BestAsk(); ok {
			fields = append(fields, zap.String("best_ask", ask.Price.String()))
		}
		logger.Info("demo book", fields...)
	}
}
