package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/galafis/hft-trading-engine/internal/api/dto"
	"github.com/galafis/hft-trading-engine/internal/core"
	"github.com/galafis/hft-trading-engine/internal/domain"
	"github.com/galafis/hft-trading-engine/internal/middleware"
	"github.com/galafis/hft-trading-engine/internal/risk"
)

// Server is the demo HTTP surface over the matching engine. It is an
// external collaborator: it submits and cancels orders, resets the daily
// risk counters and observes results.
type Server struct {
	eng  *core.MatchingEngine
	risk *risk.Manager
	log  *zap.Logger
}

func NewServer(eng *core.MatchingEngine, rm *risk.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{eng: eng, risk: rm, log: logger}
}

// Router builds the gin engine with rate limiting and metrics attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())

	rl := middleware.NewRateLimiter(10 * time.Millisecond)

	orders := r.Group("/", rl.Middleware())
	orders.POST("/orders", s.submitOrder)
	orders.POST("/orders/cancel", s.cancelOrder)

	r.GET("/orders/:id", s.getOrder)
	r.GET("/orders/:id/trades", s.getTrades)
	r.GET("/orderbook", s.getOrderbook)
	r.GET("/ticker", s.getTicker)
	r.GET("/positions/:account", s.getPosition)
	r.POST("/risk/reset-day", s.resetDay)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := domain.NewOrder(req.Symbol, domain.Side(req.Side), domain.OrderType(req.Type),
		req.Quantity, req.Price, req.StopPrice, req.Account)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := s.eng.SubmitOrder(c.Request.Context(), o)
	if err != nil {
		var rejected *domain.RiskRejectedError
		if errors.As(err, &rejected) {
			middleware.OrdersTotal.WithLabelValues("rejected", o.Symbol).Inc()
			c.JSON(http.StatusUnprocessableEntity, dto.SubmitOrderResponse{
				OrderID: o.ID.String(),
				Status:  string(o.Status),
				Message: rejected.Reason,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	middleware.OrdersTotal.WithLabelValues("accepted", o.Symbol).Inc()
	middleware.TradesTotal.WithLabelValues(o.Symbol).Add(float64(len(trades)))
	s.observeDepth(o.Symbol)

	c.JSON(http.StatusOK, dto.SubmitOrderResponse{
		OrderID:   o.ID.String(),
		Status:    string(o.Status),
		Trades:    convertTrades(trades),
		Remaining: o.Remaining(),
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	ok := s.eng.CancelOrder(c.Request.Context(), id)
	c.JSON(http.StatusOK, dto.CancelOrderResponse{OrderID: req.OrderID, Cancelled: ok})
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := s.eng.GetOrder(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderResponse{Order: convertOrder(&o)})
}

func (s *Server) getTrades(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	trades, err := s.eng.GetTradesForOrder(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetTradesResponse{Trades: convertTrades(trades)})
}

func (s *Server) getOrderbook(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	depth := 10
	if d := c.Query("depth"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			depth = n
		}
	}
	view, err := s.eng.GetOrderBook(symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	snap := view.Snapshot(depth)
	resp := dto.OrderbookResponse{
		Symbol:    symbol,
		Bids:      convertLevels(snap.Bids),
		Asks:      convertLevels(snap.Asks),
		Timestamp: snap.Timestamp,
	}
	if bid, ok := view.BestBid(); ok {
		resp.BestBid = &dto.Level{Price: bid.Price, Quantity: bid.Quantity}
	}
	if ask, ok := view.BestAsk(); ok {
		resp.BestAsk = &dto.Level{Price: ask.Price, Quantity: ask.Quantity}
	}
	if spread, ok := view.Spread(); ok {
		resp.Spread = spread
	}
	if mid, ok := view.MidPrice(); ok {
		resp.MidPrice = mid
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getTicker(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	tk, err := s.eng.GetTicker(symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.TickerResponse{
		Symbol:    tk.Symbol,
		LastPrice: tk.LastPrice,
		Open:      tk.Open,
		High:      tk.High,
		Low:       tk.Low,
		Volume:    tk.Volume,
		Timestamp: tk.Timestamp,
	})
}

func (s *Server) getPosition(c *gin.Context) {
	account := c.Param("account")
	c.JSON(http.StatusOK, dto.PositionResponse{
		Account:     account,
		Position:    s.risk.Position(account),
		RealizedPnL: s.risk.RealizedPnL(account),
		DailyLoss:   s.risk.DailyLoss(account),
	})
}

func (s *Server) resetDay(c *gin.Context) {
	s.risk.ResetDay()
	s.log.Info("daily risk counters reset")
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) observeDepth(symbol string) {
	view, err := s.eng.GetOrderBook(symbol)
	if err != nil {
		return
	}
	middleware.BookDepth.WithLabelValues(symbol, "bid").Set(float64(len(view.Depth(domain.Buy, 0))))
	middleware.BookDepth.WithLabelValues(symbol, "ask").Set(float64(len(view.Depth(domain.Sell, 0))))
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:             o.ID.String(),
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Quantity:       o.Quantity,
		FilledQuantity: o.FilledQuantity,
		Price:          o.Price,
		StopPrice:      o.StopPrice,
		Account:        o.Account,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func convertTrades(trades []*domain.Trade) []dto.Trade {
	res := make([]dto.Trade, len(trades))
	for i, t := range trades {
		res[i] = dto.Trade{
			ID:            t.ID.String(),
			Seq:           t.Seq,
			Symbol:        t.Symbol,
			BuyOrderID:    t.BuyOrderID.String(),
			SellOrderID:   t.SellOrderID.String(),
			Price:         t.Price,
			Quantity:      t.Quantity,
			TakerSide:     string(t.TakerSide),
			BuyerAccount:  t.BuyerAccount,
			SellerAccount: t.SellerAccount,
			Timestamp:     t.Timestamp,
		}
	}
	return res
}

func convertLevels(levels []domain.BookLevel) []dto.Level {
	res := make([]dto.Level, len(levels))
	for i, l := range levels {
		res[i] = dto.Level{Price: l.Price, Quantity: l.Quantity}
	}
	return res
}
