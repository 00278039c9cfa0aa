package agents

import (
	"math"
	"math/rand"

	"github.com/quantsim/marketsim/pkg/core"
)

// Reverter pushes the market back toward a fixed fair value, trading at a
// loss on purpose. The further the mid drifts, the more likely it fires.
type Reverter struct {
	id           core.AgentID
	fairValue    core.Price
	diffCoef     float64
	maxOrderSize core.Quantity
	rng          *rand.Rand
}

func NewReverter(id core.AgentID, fairValue core.Price, diffCoef float64, maxOrderSize core.Quantity, rng *rand.Rand) *Reverter {
	return &Reverter{
		id:           id,
		fairValue:    fairValue,
		diffCoef:     diffCoef,
		maxOrderSize: maxOrderSize,
		rng:          rng,
	}
}

func (r *Reverter) AgentID() core.AgentID { return r.id }

func (r *Reverter) ProposeTrades(md core.MarketData, _ core.AccountState) []core.OrderRequest {
	bid, hasBid := md.BestBid()
	ask, hasAsk := md.BestAsk()
	if !hasBid || !hasAsk {
		return nil
	}

	mid := bid.Price.Add(ask.Price) / 2
	diff := float64(mid.Sub(r.fairValue))
	if diff < 0 {
		diff = -diff
	}

	side := core.Sell
	touch := bid.Price
	if mid < r.fairValue {
		side = core.Buy
		touch = ask.Price
	}

	if r.rng.Float64() >= 1-math.Exp2(-r.diffCoef*diff) {
		return nil
	}

	qty := func() core.Quantity {
		return core.Quantity(1 + r.rng.Int63n(int64(r.maxOrderSize)))
	}
	return []core.OrderRequest{
		{AgentID: r.id, Side: side, Price: r.fairValue, Quantity: qty()},
		{AgentID: r.id, Side: side, Price: touch, Quantity: qty()},
	}
}
