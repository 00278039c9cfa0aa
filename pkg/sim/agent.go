package sim

import "github.com/quantsim/marketsim/pkg/core"

// Agent is a pluggable trading strategy. ProposeTrades is called exactly
// once per tick with the shared market snapshot and a copy of the agent's
// own account; it must return synchronously. Agents may keep private state
// across ticks.
type Agent interface {
	AgentID() core.AgentID
	ProposeTrades(md core.MarketData, account core.AccountState) []core.OrderRequest
}

// Observer is an optional read-only per-tick hook. It receives the
// end-of-tick snapshot and copies of every account state, so it cannot
// mutate engine or broker state.
type Observer func(md core.MarketData, accounts map[core.AgentID]core.AccountState)
