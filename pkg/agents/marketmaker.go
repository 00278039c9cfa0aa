// Package agents provides the stock ("house") strategies used to populate a
// simulation: a market maker, a noise trader and a mean reverter. Every
// agent takes its own seeded random source so a run stays reproducible.
package agents

import (
	"math/rand"

	"github.com/quantsim/marketsim/pkg/core"
)

// MarketMaker quotes a one-lot market around its fair-value estimate: the
// mid price when both sides exist, otherwise a jittered default.
type MarketMaker struct {
	id         core.AgentID
	halfSpread core.Price
	defaultFV  core.Price
	rng        *rand.Rand
}

func NewMarketMaker(id core.AgentID, halfSpread, defaultFairValue core.Price, rng *rand.Rand) *MarketMaker {
	return &MarketMaker{
		id:         id,
		halfSpread: halfSpread,
		defaultFV:  defaultFairValue,
		rng:        rng,
	}
}

func (m *MarketMaker) AgentID() core.AgentID { return m.id }

func (m *MarketMaker) ProposeTrades(md core.MarketData, _ core.AccountState) []core.OrderRequest {
	var fair core.Price
	bid, hasBid := md.BestBid()
	ask, hasAsk := md.BestAsk()
	if hasBid && hasAsk {
		fair = bid.Price.Add(ask.Price) / 2
	} else {
		jitter := core.Price(m.rng.Intn(21)-10) / 5
		fair = m.defaultFV.Add(jitter)
	}

	return []core.OrderRequest{
		{AgentID: m.id, Side: core.Buy, Price: fair.Sub(m.halfSpread), Quantity: 1},
		{AgentID: m.id, Side: core.Sell, Price: fair.Add(m.halfSpread), Quantity: 1},
	}
}
