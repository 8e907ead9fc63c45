package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmitOrderRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	Side      string          `json:"side" binding:"required"`
	Type      string          `json:"type" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Price     decimal.Decimal `json:"price,omitempty"`      // LIMIT and STOP_LIMIT
	StopPrice decimal.Decimal `json:"stop_price,omitempty"` // STOP_LOSS and STOP_LIMIT
	Account   string          `json:"account" binding:"required"`
}

type SubmitOrderResponse struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Trades    []Trade         `json:"trades"`
	Remaining decimal.Decimal `json:"remaining"`
	Message   string          `json:"message,omitempty"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type GetTradesResponse struct {
	Trades []Trade `json:"trades"`
}

type OrderbookResponse struct {
	Symbol    string          `json:"symbol"`
	Bids      []Level         `json:"bids"`
	Asks      []Level         `json:"asks"`
	BestBid   *Level          `json:"best_bid,omitempty"`
	BestAsk   *Level          `json:"best_ask,omitempty"`
	Spread    decimal.Decimal `json:"spread,omitempty"`
	MidPrice  decimal.Decimal `json:"mid_price,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type TickerResponse struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

type PositionResponse struct {
	Account     string          `json:"account"`
	Position    decimal.Decimal `json:"position"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	DailyLoss   decimal.Decimal `json:"daily_loss"`
}

type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type Order struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	Price          decimal.Decimal `json:"price"`
	StopPrice      decimal.Decimal `json:"stop_price"`
	Account        string          `json:"account"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Trade struct {
	ID            string          `json:"id"`
	Seq           uint64          `json:"seq"`
	Symbol        string          `json:"symbol"`
	BuyOrderID    string          `json:"buy_order_id"`
	SellOrderID   string          `json:"sell_order_id"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	TakerSide     string          `json:"taker_side"`
	BuyerAccount  string          `json:"buyer_account"`
	SellerAccount string          `json:"seller_account"`
	Timestamp     time.Time       `json:"timestamp"`
}
