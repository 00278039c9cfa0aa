package agents

import (
	"math/rand"

	"github.com/quantsim/marketsim/pkg/core"
)

// NoiseTrader simulates uninformed retail flow: on a coin flip it lifts the
// offer or hits the bid with a marketable order, sized to keep its worst-case
// exposure (position plus everything it already has resting) inside its
// limit.
type NoiseTrader struct {
	id            core.AgentID
	probability   float64
	maxOrderSize  core.Quantity
	positionLimit core.Quantity
	rng           *rand.Rand
}

func NewNoiseTrader(id core.AgentID, probability float64, maxOrderSize, positionLimit core.Quantity, rng *rand.Rand) *NoiseTrader {
	return &NoiseTrader{
		id:            id,
		probability:   probability,
		maxOrderSize:  maxOrderSize,
		positionLimit: positionLimit,
		rng:           rng,
	}
}

func (n *NoiseTrader) AgentID() core.AgentID { return n.id }

func (n *NoiseTrader) ProposeTrades(md core.MarketData, account core.AccountState) []core.OrderRequest {
	if n.rng.Float64() >= n.probability {
		return nil
	}

	canBuy := len(md.Asks) > 0
	canSell := len(md.Bids) > 0

	var side core.Side
	switch {
	case canBuy && !canSell:
		side = core.Buy
	case canSell && !canBuy:
		side = core.Sell
	case canBuy && canSell:
		side = core.Buy
		if n.rng.Intn(2) == 1 {
			side = core.Sell
		}
	default:
		return nil
	}

	// Worst-case position if every resting order of ours also fills.
	maxPosition := account.Position
	minPosition := account.Position
	for _, o := range md.Bids {
		if o.AgentID == n.id {
			maxPosition = maxPosition.Add(o.Quantity)
		}
	}
	for _, o := range md.Asks {
		if o.AgentID == n.id {
			minPosition = minPosition.Sub(o.Quantity)
		}
	}

	if side == core.Buy {
		best := md.Asks[0]
		price := best.Price.Add(core.Price(n.rng.Float64()))
		qty := minQty(n.positionLimit.Sub(maxPosition), best.Quantity)
		qty = minQty(qty, n.maxOrderSize)
		if qty <= 0 {
			return nil
		}
		return []core.OrderRequest{{AgentID: n.id, Side: core.Buy, Price: price, Quantity: qty}}
	}

	best := md.Bids[0]
	price := best.Price.Sub(core.Price(n.rng.Float64()))
	qty := minQty(n.positionLimit.Add(minPosition), best.Quantity)
	qty = minQty(qty, n.maxOrderSize)
	if qty <= 0 {
		return nil
	}
	return []core.OrderRequest{{AgentID: n.id, Side: core.Sell, Price: price, Quantity: qty}}
}

func minQty(a, b core.Quantity) core.Quantity {
	if a < b {
		return a
	}
	return b
}
