package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a match between two orders. The price is
// always the resting order's price.
type Trade struct {
	ID            uuid.UUID
	Seq           uint64 // engine-assigned, monotonically increasing
	Symbol        string
	BuyOrderID    uuid.UUID
	SellOrderID   uuid.UUID
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	TakerSide     Side // side of the aggressing order
	BuyerAccount  string
	SellerAccount string
	Timestamp     time.Time
}

// NotionalValue returns price times quantity.
func (t *Trade) NotionalValue() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
