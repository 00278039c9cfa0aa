package sim

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/quantsim/marketsim/pkg/core"
)

// Config controls one simulation run.
type Config struct {
	// Seed drives the per-tick agent shuffle, the run's sole source of
	// nondeterminism. A fixed seed makes the whole run bit-reproducible.
	Seed int64

	// PruneAge is the maximum number of ticks an order may rest before
	// being discarded. Zero or negative disables pruning.
	PruneAge int64

	Broker core.BrokerConfig
}

// Runner advances virtual time tick by tick, polling every agent once per
// tick and routing its requests through broker validation into the engine.
type Runner struct {
	broker *core.Broker
	engine *core.MatchingEngine
	agents []Agent

	rng      *rand.Rand
	clock    core.Timestamp
	pruneAge int64
	observer Observer

	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewRunner wires a broker and engine for the given agents. Every agent is
// registered with the broker up front; an unregistered participant later is
// a fatal configuration error.
func NewRunner(cfg Config, agents []Agent, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	ids := make([]core.AgentID, len(agents))
	for i, a := range agents {
		ids[i] = a.AgentID()
	}
	broker := core.NewBroker(cfg.Broker, ids, logger)

	return &Runner{
		broker:   broker,
		engine:   core.NewMatchingEngine(broker),
		agents:   agents,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		pruneAge: cfg.PruneAge,
		logger:   logger,
		sugar:    logger.Sugar(),
	}
}

// SetObserver installs the per-tick hook. Must be set before Run.
func (r *Runner) SetObserver(obs Observer) { r.observer = obs }

// Broker exposes the ledger for the driver's summary surface.
func (r *Runner) Broker() *core.Broker { return r.broker }

// Engine exposes the matching engine for the driver's summary surface.
func (r *Runner) Engine() *core.MatchingEngine { return r.engine }

// Run executes numTicks ticks, 0 to numTicks-1, and is terminal at
// completion. It returns an error only for fatal configuration problems.
func (r *Runner) Run(numTicks int) error {
	r.sugar.Infow("run_started", "ticks", numTicks, "agents", len(r.agents))

	for tick := 0; tick < numTicks; tick++ {
		r.clock = core.Timestamp(tick)
		if err := r.runTick(); err != nil {
			return err
		}
	}

	r.sugar.Infow("run_finished", "ticks", numTicks, "trades", r.engine.TradeCount())
	return nil
}

func (r *Runner) runTick() error {
	now := r.clock

	if r.pruneAge > 0 && now > 0 {
		r.engine.PruneBook(now, r.pruneAge)
	}

	// Shuffling the persistent slice removes any structural advantage
	// from registration order.
	r.rng.Shuffle(len(r.agents), func(i, j int) {
		r.agents[i], r.agents[j] = r.agents[j], r.agents[i]
	})

	// One snapshot shared by every agent: information is frozen for the
	// whole tick.
	md := r.engine.GetMarketData()

	for _, agent := range r.agents {
		id := agent.AgentID()
		account, ok := r.broker.GetAccountState(id)
		if !ok {
			return fmt.Errorf("agent %d is not registered with the broker", id)
		}

		requests := agent.ProposeTrades(md, account)
		if !batchBelongsTo(id, requests) {
			r.sugar.Infow("batch_discarded", "tick", int64(now), "agent", int64(id),
				"reason", "request carries foreign agent id")
			continue
		}

		for _, req := range requests {
			if v := r.broker.ValidateOrder(req, md); v != nil {
				r.sugar.Debugw("risk_violation", "tick", int64(now), "agent", int64(id),
					"kind", v.Kind.String(), "msg", v.Message)
				continue
			}
			if res := r.engine.ProcessOrder(req, now); !res.Accepted {
				r.sugar.Debugw("order_rejected", "tick", int64(now), "agent", int64(id),
					"reason", res.Reason)
			}
		}
	}

	if r.observer != nil {
		r.observer(r.engine.GetMarketData(), r.broker.Accounts())
	}
	return nil
}

// batchBelongsTo reports whether every request in the batch carries the
// caller's id. A single mismatch poisons the whole batch.
func batchBelongsTo(id core.AgentID, requests []core.OrderRequest) bool {
	for _, req := range requests {
		if req.AgentID != id {
			return false
		}
	}
	return true
}
