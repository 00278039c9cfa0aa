package core

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidValue is wrapped by every value-type constructor failure.
var ErrInvalidValue = errors.New("invalid value")

// Price is a quote-currency amount. Only Price+Price, Price-Price and
// Price*Quantity are meaningful; the type system rejects everything else.
type Price float64

// Quantity is a number of shares. Integral by construction.
type Quantity int64

// Timestamp is a discrete tick of the simulation's virtual clock.
type Timestamp int64

// OrderID uniquely identifies an order for the lifetime of an engine.
type OrderID int64

// AgentID uniquely identifies a trading agent.
type AgentID int64

// NewPrice validates that v is numeric (not NaN). Negative and infinite
// prices are representable so the engine can observe and reject them at
// admission time.
func NewPrice(v float64) (Price, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: price must be a number", ErrInvalidValue)
	}
	return Price(v), nil
}

// NewTimestamp validates that v is non-negative.
func NewTimestamp(v int64) (Timestamp, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: timestamp cannot be negative, got %d", ErrInvalidValue, v)
	}
	return Timestamp(v), nil
}

func (p Price) Add(o Price) Price { return p + o }
func (p Price) Sub(o Price) Price { return p - o }

// Mul returns the notional value of q shares at price p.
func (p Price) Mul(q Quantity) Price { return p * Price(q) }

// IsTradable reports whether p is a finite, non-negative price the engine
// will admit.
func (p Price) IsTradable() bool {
	return !math.IsNaN(float64(p)) && !math.IsInf(float64(p), 0) && p >= 0
}

func (q Quantity) Add(o Quantity) Quantity { return q + o }
func (q Quantity) Sub(o Quantity) Quantity { return q - o }

func minQty(a, b Quantity) Quantity {
	if a < b {
		return a
	}
	return b
}

// Side of an order.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderRequest is an agent's immutable intent to trade. It has no identity
// of its own until the engine admits it.
type OrderRequest struct {
	AgentID  AgentID
	Side     Side
	Price    Price
	Quantity Quantity
}

// Order is the mutable resting entity held by the book. Quantity only
// decreases: each fill subtracts the trade quantity, and the order is
// removed when it reaches zero or when pruned for age.
type Order struct {
	ID        OrderID
	AgentID   AgentID
	Side      Side
	Price     Price
	Quantity  Quantity
	Timestamp Timestamp
}

// Trade is the sole unit of settlement, produced only by a successful match.
type Trade struct {
	ID        int64
	Price     Price
	Quantity  Quantity
	BuyerID   AgentID
	SellerID  AgentID
	Timestamp Timestamp
}

// OrderFactory mints Orders with strictly increasing ids from a configurable
// base. Ids are a pure counter, never recycled.
type OrderFactory struct {
	nextID OrderID
}

func NewOrderFactory(startID OrderID) *OrderFactory {
	return &OrderFactory{nextID: startID}
}

// NewOrder converts a validated request plus an arrival timestamp into a
// mutable Order and advances the id counter.
func (f *OrderFactory) NewOrder(req OrderRequest, ts Timestamp) Order {
	id := f.nextID
	f.nextID++
	return Order{
		ID:        id,
		AgentID:   req.AgentID,
		Side:      req.Side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: ts,
	}
}
