package core

import (
	"fmt"
	"sort"
	"sync"
)

// SettlementPort receives every trade the engine produces, synchronously,
// in generation order, before the submission call returns.
type SettlementPort interface {
	SettleTrade(Trade)
}

// MarketData is an immutable snapshot of the book. Bids are sorted price
// desc then time asc, asks price asc then time asc. Orders are copies and
// never alias engine-internal state.
type MarketData struct {
	Bids []Order
	Asks []Order
}

// BestBid returns the highest-priority resting bid.
func (md MarketData) BestBid() (Order, bool) {
	if len(md.Bids) == 0 {
		return Order{}, false
	}
	return md.Bids[0], true
}

// BestAsk returns the highest-priority resting ask.
func (md MarketData) BestAsk() (Order, bool) {
	if len(md.Asks) == 0 {
		return Order{}, false
	}
	return md.Asks[0], true
}

// OrderResult reports the outcome of a submission: Accepted carries the
// minted order id, a rejection carries the reason. Rejections are business
// outcomes, not errors; the run always continues.
type OrderResult struct {
	Accepted bool
	OrderID  OrderID
	Reason   string
}

func accepted(id OrderID) OrderResult { return OrderResult{Accepted: true, OrderID: id} }

func rejected(reason string) OrderResult { return OrderResult{Reason: reason} }

// MatchingEngine owns the two-sided book for a single instrument and
// matches incoming orders by price-time priority.
//
// Resting orders live in an arena; each side holds sorted arena slots, so
// in-place partial fills never share mutable handles with callers.
type MatchingEngine struct {
	mu sync.Mutex

	arena []Order
	free  []int

	bids []int // arena slots, price desc then time asc, ties by arrival
	asks []int // arena slots, price asc then time asc, ties by arrival

	factory     *OrderFactory
	settlement  SettlementPort
	nextTradeID int64
	tradeCount  int64
	lastPrice   Price
	hasTraded   bool
}

// NewMatchingEngine creates an engine with an empty book. The settlement
// port may be nil, in which case trades are produced but not settled.
func NewMatchingEngine(settlement SettlementPort) *MatchingEngine {
	return &MatchingEngine{
		factory:     NewOrderFactory(1),
		settlement:  settlement,
		nextTradeID: 1,
	}
}

// GetMarketData returns a priority-sorted snapshot of both sides. The
// snapshot reflects exactly the resting orders at call time and is
// unaffected by later mutation.
func (e *MatchingEngine) GetMarketData() MarketData {
	e.mu.Lock()
	defer e.mu.Unlock()

	md := MarketData{
		Bids: make([]Order, len(e.bids)),
		Asks: make([]Order, len(e.asks)),
	}
	for i, slot := range e.bids {
		md.Bids[i] = e.arena[slot]
	}
	for i, slot := range e.asks {
		md.Asks[i] = e.arena[slot]
	}
	return md
}

// ProcessOrder admits a request at the given timestamp, matches it against
// the opposite side and rests any remainder. Structurally invalid requests
// are rejected without touching the book.
func (e *MatchingEngine) ProcessOrder(req OrderRequest, ts Timestamp) OrderResult {
	e.mu.Lock()

	if req.Quantity <= 0 {
		e.mu.Unlock()
		return rejected(fmt.Sprintf("invalid quantity %d: must be positive", req.Quantity))
	}
	if !req.Price.IsTradable() {
		e.mu.Unlock()
		return rejected(fmt.Sprintf("invalid price %v: must be a non-negative finite number", float64(req.Price)))
	}

	order := e.factory.NewOrder(req, ts)
	trades := e.match(&order)
	e.mu.Unlock()

	// Settlement runs synchronously within the submission, after the book
	// has absorbed every fill from this call.
	if e.settlement != nil {
		for _, t := range trades {
			e.settlement.SettleTrade(t)
		}
	}
	return accepted(order.ID)
}

// match executes the continuous double auction for one incoming order and
// returns the trades in generation order.
func (e *MatchingEngine) match(incoming *Order) []Trade {
	opposite := &e.asks
	if incoming.Side == Sell {
		opposite = &e.bids
	}

	var trades []Trade
	for incoming.Quantity > 0 && len(*opposite) > 0 {
		bestSlot := (*opposite)[0]
		best := &e.arena[bestSlot]

		crosses := (incoming.Side == Buy && incoming.Price >= best.Price) ||
			(incoming.Side == Sell && incoming.Price <= best.Price)
		if !crosses {
			break
		}

		qty := minQty(incoming.Quantity, best.Quantity)
		trades = append(trades, e.newTrade(qty, best.Price, incoming, best))

		incoming.Quantity = incoming.Quantity.Sub(qty)
		best.Quantity = best.Quantity.Sub(qty)

		if best.Quantity == 0 {
			*opposite = (*opposite)[1:]
			e.release(bestSlot)
		}
	}

	if incoming.Quantity > 0 {
		slot := e.alloc(*incoming)
		if incoming.Side == Buy {
			e.insertBid(slot)
		} else {
			e.insertAsk(slot)
		}
	}
	return trades
}

// newTrade fills at the resting order's price. Buyer and seller identity
// comes from each order's side, not from which arrived first.
func (e *MatchingEngine) newTrade(qty Quantity, price Price, incoming, resting *Order) Trade {
	buyer, seller := incoming.AgentID, resting.AgentID
	if incoming.Side == Sell {
		buyer, seller = resting.AgentID, incoming.AgentID
	}

	t := Trade{
		ID:        e.nextTradeID,
		Price:     price,
		Quantity:  qty,
		BuyerID:   buyer,
		SellerID:  seller,
		Timestamp: incoming.Timestamp,
	}
	e.nextTradeID++
	e.tradeCount++
	e.lastPrice = price
	e.hasTraded = true
	return t
}

// PruneBook removes every resting order aged maxAge ticks or more,
// preserving the sort order of the remainder.
func (e *MatchingEngine) PruneBook(now Timestamp, maxAge int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bids = e.pruneSide(e.bids, now, maxAge)
	e.asks = e.pruneSide(e.asks, now, maxAge)
}

func (e *MatchingEngine) pruneSide(side []int, now Timestamp, maxAge int64) []int {
	kept := side[:0]
	for _, slot := range side {
		if int64(now-e.arena[slot].Timestamp) < maxAge {
			kept = append(kept, slot)
		} else {
			e.release(slot)
		}
	}
	return kept
}

// TradeCount returns the number of trades executed since construction.
func (e *MatchingEngine) TradeCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tradeCount
}

// GetLastPrice returns the price of the most recent fill.
// The second return is false if no trade has occurred.
func (e *MatchingEngine) GetLastPrice() (Price, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPrice, e.hasTraded
}

func (e *MatchingEngine) alloc(o Order) int {
	if n := len(e.free); n > 0 {
		slot := e.free[n-1]
		e.free = e.free[:n-1]
		e.arena[slot] = o
		return slot
	}
	e.arena = append(e.arena, o)
	return len(e.arena) - 1
}

func (e *MatchingEngine) release(slot int) {
	e.arena[slot] = Order{}
	e.free = append(e.free, slot)
}

// insertBid places slot so bids stay sorted price desc, time asc. A new
// order with a key equal to a resting one goes after it: ties are broken
// strictly by arrival.
func (e *MatchingEngine) insertBid(slot int) {
	o := e.arena[slot]
	idx := sort.Search(len(e.bids), func(i int) bool {
		r := e.arena[e.bids[i]]
		return o.Price > r.Price || (o.Price == r.Price && o.Timestamp < r.Timestamp)
	})
	e.bids = insertAt(e.bids, idx, slot)
}

func (e *MatchingEngine) insertAsk(slot int) {
	o := e.arena[slot]
	idx := sort.Search(len(e.asks), func(i int) bool {
		r := e.arena[e.asks[i]]
		return o.Price < r.Price || (o.Price == r.Price && o.Timestamp < r.Timestamp)
	})
	e.asks = insertAt(e.asks, idx, slot)
}

func insertAt(side []int, idx, slot int) []int {
	side = append(side, 0)
	copy(side[idx+1:], side[idx:])
	side[idx] = slot
	return side
}
