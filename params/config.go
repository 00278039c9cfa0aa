package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/quantsim/marketsim/pkg/core"
)

type Simulation struct {
	Seed     int64
	Ticks    int
	PruneAge int64 // ticks; <=0 keeps all resting orders
	Verbose  bool
}

type Accounts struct {
	InitialCash   core.Price
	PositionLimit core.Quantity
	MaxOrderSize  core.Quantity
}

type House struct {
	MarketMakers int
	NoiseTraders int
	FairValue    core.Price
}

type Config struct {
	Simulation Simulation
	Accounts   Accounts
	House      House
	LogFile    string
}

func Default() Config {
	return Config{
		Simulation: Simulation{
			Seed:     2025,
			Ticks:    10_000,
			PruneAge: 30,
			Verbose:  true,
		},
		Accounts: Accounts{
			InitialCash:   1_000_000,
			PositionLimit: 1000,
			MaxOrderSize:  1000,
		},
		House: House{
			MarketMakers: 10,
			NoiseTraders: 5,
			FairValue:    100,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if it exists) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v, ok := envInt64("SIM_SEED"); ok {
		cfg.Simulation.Seed = v
	}
	if v, ok := envInt64("SIM_TICKS"); ok {
		cfg.Simulation.Ticks = int(v)
	}
	if v, ok := envInt64("SIM_PRUNE_AGE"); ok {
		cfg.Simulation.PruneAge = v
	}
	if v := os.Getenv("SIM_VERBOSE"); v != "" {
		cfg.Simulation.Verbose = v == "true"
	}

	if v, ok := envFloat("ACCOUNT_INITIAL_CASH"); ok {
		cfg.Accounts.InitialCash = core.Price(v)
	}
	if v, ok := envInt64("ACCOUNT_POSITION_LIMIT"); ok {
		cfg.Accounts.PositionLimit = core.Quantity(v)
	}
	if v, ok := envInt64("ACCOUNT_MAX_ORDER_SIZE"); ok {
		cfg.Accounts.MaxOrderSize = core.Quantity(v)
	}

	if v, ok := envInt64("HOUSE_MARKET_MAKERS"); ok {
		cfg.House.MarketMakers = int(v)
	}
	if v, ok := envInt64("HOUSE_NOISE_TRADERS"); ok {
		cfg.House.NoiseTraders = int(v)
	}
	if v, ok := envFloat("HOUSE_FAIR_VALUE"); ok {
		cfg.House.FairValue = core.Price(v)
	}

	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg
}

func envInt64(key string) (int64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
