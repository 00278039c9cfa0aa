package core

import (
	"sync"

	"go.uber.org/zap"
)

// AccountState is an agent's ledger entry. It is mutated only through
// settlement, never directly by an agent.
type AccountState struct {
	AgentID  AgentID
	Cash     Price
	Position Quantity
}

// RiskViolationKind enumerates pre-trade rejection causes.
type RiskViolationKind int8

const (
	ViolationAccountMissing RiskViolationKind = iota
	ViolationOrderSizeTooLarge
	ViolationSelfTrade
	ViolationPositionLimitExceeded
	ViolationInsufficientCash
)

func (k RiskViolationKind) String() string {
	switch k {
	case ViolationAccountMissing:
		return "account_missing"
	case ViolationOrderSizeTooLarge:
		return "order_size_too_large"
	case ViolationSelfTrade:
		return "self_trade"
	case ViolationPositionLimitExceeded:
		return "position_limit_exceeded"
	case ViolationInsufficientCash:
		return "insufficient_cash"
	default:
		return "unknown"
	}
}

// RiskViolation describes why a request was dropped before reaching the
// book. It is transient and never persisted.
type RiskViolation struct {
	Kind    RiskViolationKind
	Message string
	Request OrderRequest
}

// BrokerConfig carries the default account parameters applied at
// registration.
type BrokerConfig struct {
	InitialCash     Price
	InitialPosition Quantity
	PositionLimit   Quantity
	MaxOrderSize    Quantity
}

// DefaultBrokerConfig mirrors the simulation's stock account setup.
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		InitialCash:   1_000_000,
		PositionLimit: 1000,
		MaxOrderSize:  1000,
	}
}

// Broker owns the per-agent ledger and risk configuration. It validates
// requests before they reach the engine and settles the trades the engine
// reports back; it is the engine's SettlementPort.
type Broker struct {
	mu             sync.RWMutex
	cfg            BrokerConfig
	accounts       map[AgentID]*AccountState
	positionLimits map[AgentID]Quantity
	maxOrderSizes  map[AgentID]Quantity
	logger         *zap.Logger
}

// NewBroker creates a broker and registers an account for every given
// agent id with the configured initial cash, position and limits.
func NewBroker(cfg BrokerConfig, agentIDs []AgentID, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broker{
		cfg:            cfg,
		accounts:       make(map[AgentID]*AccountState, len(agentIDs)),
		positionLimits: make(map[AgentID]Quantity, len(agentIDs)),
		maxOrderSizes:  make(map[AgentID]Quantity, len(agentIDs)),
		logger:         logger,
	}
	for _, id := range agentIDs {
		b.accounts[id] = &AccountState{
			AgentID:  id,
			Cash:     cfg.InitialCash,
			Position: cfg.InitialPosition,
		}
		b.positionLimits[id] = cfg.PositionLimit
		b.maxOrderSizes[id] = cfg.MaxOrderSize
	}
	return b
}

// GetAccountState returns a copy of the agent's ledger entry.
// The second return is false for unregistered agents.
func (b *Broker) GetAccountState(id AgentID) (AccountState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acc, ok := b.accounts[id]
	if !ok {
		return AccountState{}, false
	}
	return *acc, true
}

// Accounts returns copies of every ledger entry.
func (b *Broker) Accounts() map[AgentID]AccountState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[AgentID]AccountState, len(b.accounts))
	for id, acc := range b.accounts {
		out[id] = *acc
	}
	return out
}

// SetPositionLimit overrides the position limit for one agent.
func (b *Broker) SetPositionLimit(id AgentID, limit Quantity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positionLimits[id] = limit
}

// SetMaxOrderSize overrides the max single-order size for one agent.
func (b *Broker) SetMaxOrderSize(id AgentID, size Quantity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxOrderSizes[id] = size
}

// ValidateOrder checks a request against the agent's risk configuration.
// It returns nil on pass or the first violation in precedence order:
// account registration, order size, self-trade, position limit, then cash
// (buys only). Validation never mutates state.
func (b *Broker) ValidateOrder(req OrderRequest, md MarketData) *RiskViolation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	acc, ok := b.accounts[req.AgentID]
	if !ok {
		return &RiskViolation{
			Kind:    ViolationAccountMissing,
			Message: "no account registered for agent",
			Request: req,
		}
	}

	maxSize, ok := b.maxOrderSizes[req.AgentID]
	if !ok {
		maxSize = b.cfg.MaxOrderSize
	}
	if req.Quantity > maxSize {
		return &RiskViolation{
			Kind:    ViolationOrderSizeTooLarge,
			Message: "order size exceeds maximum",
			Request: req,
		}
	}

	if v := b.checkSelfTrade(req, md); v != nil {
		return v
	}

	limit, ok := b.positionLimits[req.AgentID]
	if !ok {
		limit = b.cfg.PositionLimit
	}
	potential := acc.Position.Add(req.Quantity)
	if req.Side == Sell {
		potential = acc.Position.Sub(req.Quantity)
	}
	if potential > limit || potential < -limit {
		return &RiskViolation{
			Kind:    ViolationPositionLimitExceeded,
			Message: "resulting position would exceed limit",
			Request: req,
		}
	}

	if req.Side == Buy {
		required := req.Price.Mul(req.Quantity)
		if acc.Cash < required {
			return &RiskViolation{
				Kind:    ViolationInsufficientCash,
				Message: "insufficient cash for buy order",
				Request: req,
			}
		}
	}

	return nil
}

// checkSelfTrade rejects a request that would cross the agent's own best
// resting order on the opposite side.
func (b *Broker) checkSelfTrade(req OrderRequest, md MarketData) *RiskViolation {
	var own bool
	switch req.Side {
	case Buy:
		best, ok := md.BestAsk()
		own = ok && req.Price >= best.Price && best.AgentID == req.AgentID
	case Sell:
		best, ok := md.BestBid()
		own = ok && req.Price <= best.Price && best.AgentID == req.AgentID
	}
	if own {
		return &RiskViolation{
			Kind:    ViolationSelfTrade,
			Message: "order would cross own resting order",
			Request: req,
		}
	}
	return nil
}

// SettleTrade applies one trade to the ledger: the buyer pays
// price*quantity and gains the shares, the seller mirrors. An id not in
// the ledger is a silent no-op; validation prevents that case upstream.
func (b *Broker) SettleTrade(t Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value := t.Price.Mul(t.Quantity)
	if buyer, ok := b.accounts[t.BuyerID]; ok {
		buyer.Cash = buyer.Cash.Sub(value)
		buyer.Position = buyer.Position.Add(t.Quantity)
	}
	if seller, ok := b.accounts[t.SellerID]; ok {
		seller.Cash = seller.Cash.Add(value)
		seller.Position = seller.Position.Sub(t.Quantity)
	}

	b.logger.Debug("trade_settled",
		zap.Int64("trade_id", t.ID),
		zap.Float64("price", float64(t.Price)),
		zap.Int64("qty", int64(t.Quantity)),
		zap.Int64("buyer", int64(t.BuyerID)),
		zap.Int64("seller", int64(t.SellerID)),
	)
}
