package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string
type OrderType string
type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"

	Market    OrderType = "MARKET"
	Limit     OrderType = "LIMIT"
	StopLoss  OrderType = "STOP_LOSS"
	StopLimit OrderType = "STOP_LIMIT"

	New             OrderStatus = "NEW"
	PartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	Filled          OrderStatus = "FILLED"
	Cancelled       OrderStatus = "CANCELLED"
	Rejected        OrderStatus = "REJECTED"
	PendingTrigger  OrderStatus = "PENDING_TRIGGER"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// HasLimitPrice reports whether orders of this type carry a limit price.
func (t OrderType) HasLimitPrice() bool {
	return t == Limit || t == StopLimit
}

// IsStop reports whether orders of this type wait on a stop trigger.
func (t OrderType) IsStop() bool {
	return t == StopLoss || t == StopLimit
}

// Order is a submitted instruction with mutable fill state. Once submitted
// it is owned by the matching engine and mutated only under the symbol lock.
type Order struct {
	ID             uuid.UUID
	Symbol         string
	Side           Side
	Type           OrderType
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Price          decimal.Decimal // limit price, zero for MARKET and STOP_LOSS
	StopPrice      decimal.Decimal // trigger price, zero unless stop order
	Account        string
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder builds a validated order with a fresh id. Price is required and
// strictly positive for LIMIT and STOP_LIMIT; stop price for STOP_LOSS and
// STOP_LIMIT. Quantity must be strictly positive.
func NewOrder(symbol string, side Side, typ OrderType, quantity, price, stopPrice decimal.Decimal, account string) (*Order, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	switch side {
	case Buy, Sell:
	default:
		return nil, fmt.Errorf("%w: invalid side %q", ErrInvalidOrder, side)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, quantity)
	}
	if typ.HasLimitPrice() && !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s orders must have a positive price", ErrInvalidOrder, typ)
	}
	if typ.IsStop() && !stopPrice.IsPositive() {
		return nil, fmt.Errorf("%w: %s orders must have a positive stop price", ErrInvalidOrder, typ)
	}
	now := time.Now()
	return &Order{
		ID:             uuid.New(),
		Symbol:         symbol,
		Side:           side,
		Type:           typ,
		Quantity:       quantity,
		FilledQuantity: decimal.Zero,
		Price:          price,
		StopPrice:      stopPrice,
		Account:        account,
		Status:         New,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// ApplyFill records an execution against this order. The amount must be
// within (0, Remaining]; anything else is a bug in the matching loop.
func (o *Order) ApplyFill(amount decimal.Decimal, at time.Time) {
	if !amount.IsPositive() || amount.GreaterThan(o.Remaining()) {
		panic(fmt.Sprintf("order %s: fill %s out of bounds, remaining %s", o.ID, amount, o.Remaining()))
	}
	o.FilledQuantity = o.FilledQuantity.Add(amount)
	if o.IsFullyFilled() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	o.UpdatedAt = at
}

// Cancel moves the order to CANCELLED. Only NEW, PARTIALLY_FILLED and
// PENDING_TRIGGER orders can be cancelled; returns false otherwise.
func (o *Order) Cancel(at time.Time) bool {
	switch o.Status {
	case New, PartiallyFilled, PendingTrigger:
		o.Status = Cancelled
		o.UpdatedAt = at
		return true
	default:
		return false
	}
}

// Reject marks the order as refused by pre-trade checks.
func (o *Order) Reject(at time.Time) {
	o.Status = Rejected
	o.UpdatedAt = at
}

// IsFullyFilled reports whether the full quantity has executed.
func (o *Order) IsFullyFilled() bool {
	return o.FilledQuantity.GreaterThanOrEqual(o.Quantity)
}

// IsActive reports whether the order can still rest or match.
func (o *Order) IsActive() bool {
	return o.Status == New || o.Status == PartiallyFilled
}

// IsTerminal reports whether the order can no longer change state.
func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled || o.Status == Rejected
}
