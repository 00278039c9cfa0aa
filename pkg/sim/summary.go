package sim

import (
	"fmt"
	"io"
	"sort"

	"github.com/quantsim/marketsim/pkg/core"
)

const summaryDepth = 10

// WriteSummary renders a human-readable end-of-run report: trade count,
// the top book levels on each side and accounts ranked by estimated value
// at the mid price. Falls back to the last trade price when the book is
// one-sided or empty.
func WriteSummary(w io.Writer, engine *core.MatchingEngine, broker *core.Broker) {
	md := engine.GetMarketData()

	fmt.Fprintf(w, "--- Final Simulation Summary ---\n")
	fmt.Fprintf(w, "Total Trades Executed: %d\n", engine.TradeCount())

	fmt.Fprintf(w, "\n# Bids (Buy Orders): %d\n", len(md.Bids))
	writeSide(w, md.Bids)
	fmt.Fprintf(w, "\n# Asks (Sell Orders): %d\n", len(md.Asks))
	writeSide(w, md.Asks)

	mid, ok := midPrice(engine, md)
	if !ok {
		fmt.Fprintf(w, "\nNo reference price available; account values omitted.\n")
		return
	}

	accounts := broker.Accounts()
	ranked := make([]core.AccountState, 0, len(accounts))
	for _, acc := range accounts {
		ranked = append(ranked, acc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi := ranked[i].Cash.Add(mid.Mul(ranked[i].Position))
		vj := ranked[j].Cash.Add(mid.Mul(ranked[j].Position))
		if vi != vj {
			return vi > vj
		}
		return ranked[i].AgentID < ranked[j].AgentID
	})

	fmt.Fprintf(w, "\n--- Final Account States ---\n")
	for _, acc := range ranked {
		value := acc.Cash.Add(mid.Mul(acc.Position))
		fmt.Fprintf(w, "  > Agent %d:\tEst. Value $%.2f,\tCash $%.2f,\tPosition: %d\n",
			acc.AgentID, float64(value), float64(acc.Cash), int64(acc.Position))
	}
}

func writeSide(w io.Writer, side []core.Order) {
	n := len(side)
	if n > summaryDepth {
		n = summaryDepth
	}
	for _, o := range side[:n] {
		fmt.Fprintf(w, "  > %d @ $%.2f (Agent: %d)\n", int64(o.Quantity), float64(o.Price), int64(o.AgentID))
	}
}

func midPrice(engine *core.MatchingEngine, md core.MarketData) (core.Price, bool) {
	bid, hasBid := md.BestBid()
	ask, hasAsk := md.BestAsk()
	if hasBid && hasAsk {
		return bid.Price.Add(ask.Price) / 2, true
	}
	return engine.GetLastPrice()
}
