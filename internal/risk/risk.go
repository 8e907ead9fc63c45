package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/galafis/hft-trading-engine/internal/domain"
)

// Limits bounds what a single account may do. All values must be positive.
type Limits struct {
	MaxOrderSize    decimal.Decimal
	MaxPositionSize decimal.Decimal
	MaxDailyLoss    decimal.Decimal
	MaxOrderValue   decimal.Decimal
}

// DefaultLimits mirrors the production defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxOrderSize:    decimal.NewFromInt(10_000),
		MaxPositionSize: decimal.NewFromInt(100_000),
		MaxDailyLoss:    decimal.NewFromInt(50_000),
		MaxOrderValue:   decimal.NewFromInt(1_000_000),
	}
}

// Check is the outcome of a pre-trade admission check. Reason names the
// first violated rule when Passed is false.
type Check struct {
	Passed bool
	Reason string
}

func pass() Check                           { return Check{Passed: true} }
func fail(format string, args ...any) Check { return Check{Reason: fmt.Sprintf(format, args...)} }

// symbolPosition is one account's average-cost book in one symbol.
type symbolPosition struct {
	net     decimal.Decimal // signed: positive long, negative short
	avgCost decimal.Decimal // volume-weighted entry price of the open net
}

// accountState carries everything the manager tracks per account. Each
// account has its own lock so checks and trade updates against the same
// account are linearisable while different accounts proceed in parallel.
type accountState struct {
	mu          sync.Mutex
	positions   map[string]*symbolPosition // symbol -> open position
	realizedPnL decimal.Decimal            // day-scoped
	dailyLoss   decimal.Decimal            // sum of realised negative P&L, non-negative
}

func (a *accountState) totalPositionLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.positions {
		total = total.Add(p.net)
	}
	return total
}

// Manager keeps per-account positions and P&L and admits orders before they
// can touch any book.
type Manager struct {
	limits Limits

	mu       sync.RWMutex
	accounts map[string]*accountState
}

// NewManager creates a risk manager enforcing the given limits.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits:   limits,
		accounts: make(map[string]*accountState),
	}
}

// Limits returns the configured limits.
func (m *Manager) Limits() Limits { return m.limits }

func (m *Manager) account(id string) *accountState {
	m.mu.RLock()
	acct, ok := m.accounts[id]
	m.mu.RUnlock()
	if ok {
		return acct
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok = m.accounts[id]; ok {
		return acct
	}
	acct = &accountState{positions: make(map[string]*symbolPosition)}
	m.accounts[id] = acct
	return acct
}

// CheckOrder runs the admission rules in order and reports the first
// violation. It never mutates state.
func (m *Manager) CheckOrder(o *domain.Order) Check {
	if o.Quantity.GreaterThan(m.limits.MaxOrderSize) {
		return fail("order size %s exceeds maximum %s", o.Quantity, m.limits.MaxOrderSize)
	}

	if o.Type.HasLimitPrice() {
		value := o.Quantity.Mul(o.Price)
		if value.GreaterThan(m.limits.MaxOrderValue) {
			return fail("order value %s exceeds maximum %s", value, m.limits.MaxOrderValue)
		}
	}

	acct := m.account(o.Account)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	signed := o.Quantity
	if o.Side == domain.Sell {
		signed = signed.Neg()
	}
	hypothetical := acct.totalPositionLocked().Add(signed)
	if hypothetical.Abs().GreaterThan(m.limits.MaxPositionSize) {
		return fail("new position %s would exceed maximum %s", hypothetical, m.limits.MaxPositionSize)
	}

	if acct.dailyLoss.GreaterThan(m.limits.MaxDailyLoss) {
		return fail("daily loss %s exceeds maximum %s", acct.dailyLoss, m.limits.MaxDailyLoss)
	}

	return pass()
}

// OnTrade applies one executed trade: the buyer's position grows by the
// quantity, the seller's shrinks. Reducing fills realise P&L against the
// account's average cost; realised losses accumulate into the daily loss.
func (m *Manager) OnTrade(t *domain.Trade) {
	m.apply(t.BuyerAccount, t.Symbol, t.Quantity, t.Price)
	m.apply(t.SellerAccount, t.Symbol, t.Quantity.Neg(), t.Price)
}

func (m *Manager) apply(account, symbol string, delta, price decimal.Decimal) {
	acct := m.account(account)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	pos, ok := acct.positions[symbol]
	if !ok {
		pos = &symbolPosition{net: decimal.Zero, avgCost: decimal.Zero}
		acct.positions[symbol] = pos
	}

	switch {
	case pos.net.IsZero() || pos.net.Sign() == delta.Sign():
		// Opening or increasing: fold the fill into the average cost.
		newNet := pos.net.Add(delta)
		weighted := pos.avgCost.Mul(pos.net.Abs()).Add(price.Mul(delta.Abs()))
		pos.avgCost = weighted.Div(newNet.Abs())
		pos.net = newNet
	default:
		// Reducing, possibly flipping through zero.
		reduce := decimal.Min(delta.Abs(), pos.net.Abs())
		perUnit := price.Sub(pos.avgCost)
		if pos.net.Sign() < 0 {
			perUnit = perUnit.Neg()
		}
		pnl := perUnit.Mul(reduce)
		acct.realizedPnL = acct.realizedPnL.Add(pnl)
		if pnl.Sign() < 0 {
			acct.dailyLoss = acct.dailyLoss.Add(pnl.Neg())
		}

		pos.net = pos.net.Add(delta)
		switch {
		case pos.net.IsZero():
			pos.avgCost = decimal.Zero
		case reduce.LessThan(delta.Abs()):
			// Flipped through zero: the surplus opens at the trade price.
			pos.avgCost = price
		}
	}
}

// Position returns the account's signed net position summed across symbols.
func (m *Manager) Position(account string) decimal.Decimal {
	acct := m.account(account)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.totalPositionLocked()
}

// PositionIn returns the account's signed net position in one symbol.
func (m *Manager) PositionIn(account, symbol string) decimal.Decimal {
	acct := m.account(account)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if pos, ok := acct.positions[symbol]; ok {
		return pos.net
	}
	return decimal.Zero
}

// RealizedPnL returns the account's day-scoped realised P&L.
func (m *Manager) RealizedPnL(account string) decimal.Decimal {
	acct := m.account(account)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.realizedPnL
}

// DailyLoss returns the account's accumulated realised loss for the day.
func (m *Manager) DailyLoss(account string) decimal.Decimal {
	acct := m.account(account)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.dailyLoss
}

// ResetDay zeroes daily loss and realised P&L for every account. Positions
// are untouched. Called at the externally-driven day boundary.
func (m *Manager) ResetDay() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acct := range m.accounts {
		acct.mu.Lock()
		acct.dailyLoss = decimal.Zero
		acct.realizedPnL = decimal.Zero
		acct.mu.Unlock()
	}
}
