package main

import (
	"log"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/quantsim/marketsim/params"
	"github.com/quantsim/marketsim/pkg/agents"
	"github.com/quantsim/marketsim/pkg/core"
	"github.com/quantsim/marketsim/pkg/sim"
	"github.com/quantsim/marketsim/pkg/util"
)

func main() {
	// Load config from .env file and environment variables.
	cfg := params.LoadFromEnv("")

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("simulation_configured",
		"seed", cfg.Simulation.Seed,
		"ticks", cfg.Simulation.Ticks,
		"prune_age", cfg.Simulation.PruneAge,
		"market_makers", cfg.House.MarketMakers,
		"noise_traders", cfg.House.NoiseTraders,
	)

	// House agents draw from their own seeded sources so runs stay
	// reproducible for a fixed SIM_SEED.
	seeds := rand.New(rand.NewSource(cfg.Simulation.Seed))
	var roster []sim.Agent
	for i := 1; i <= cfg.House.MarketMakers; i++ {
		roster = append(roster, agents.NewMarketMaker(
			core.AgentID(i*100), 2, cfg.House.FairValue,
			rand.New(rand.NewSource(seeds.Int63())),
		))
	}
	for i := 1; i <= cfg.House.NoiseTraders; i++ {
		roster = append(roster, agents.NewNoiseTrader(
			core.AgentID(-i*100), 0.5,
			cfg.Accounts.MaxOrderSize, cfg.Accounts.PositionLimit,
			rand.New(rand.NewSource(seeds.Int63())),
		))
	}

	runner := sim.NewRunner(sim.Config{
		Seed:     cfg.Simulation.Seed,
		PruneAge: cfg.Simulation.PruneAge,
		Broker: core.BrokerConfig{
			InitialCash:   cfg.Accounts.InitialCash,
			PositionLimit: cfg.Accounts.PositionLimit,
			MaxOrderSize:  cfg.Accounts.MaxOrderSize,
		},
	}, roster, logger)

	if err := runner.Run(cfg.Simulation.Ticks); err != nil {
		sugar.Fatalw("run_failed", "err", err)
	}

	if cfg.Simulation.Verbose {
		sim.WriteSummary(os.Stdout, runner.Engine(), runner.Broker())
	}
}

func buildLogger(cfg params.Config) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		return util.NewLoggerWithFile(cfg.LogFile, cfg.Simulation.Verbose)
	}
	return util.NewLogger(cfg.Simulation.Verbose)
}
