package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/marketsim/pkg/core"
)

func newTestBroker(ids ...core.AgentID) *core.Broker {
	return core.NewBroker(core.DefaultBrokerConfig(), ids, nil)
}

func restingAsk(agent core.AgentID, price core.Price, qty core.Quantity) core.MarketData {
	return core.MarketData{Asks: []core.Order{{ID: 1, AgentID: agent, Side: core.Sell, Price: price, Quantity: qty}}}
}

func restingBid(agent core.AgentID, price core.Price, qty core.Quantity) core.MarketData {
	return core.MarketData{Bids: []core.Order{{ID: 1, AgentID: agent, Side: core.Buy, Price: price, Quantity: qty}}}
}

func TestValidateOrderAccountMissing(t *testing.T) {
	broker := newTestBroker(1)

	v := broker.ValidateOrder(buy(42, 100, 1), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationAccountMissing, v.Kind)
}

func TestValidateOrderPrecedence(t *testing.T) {
	// Order size is checked before position and cash: a breach of all
	// three must surface as order_size_too_large.
	broker := core.NewBroker(core.BrokerConfig{
		InitialCash:   100,
		PositionLimit: 10,
		MaxOrderSize:  5,
	}, []core.AgentID{1}, nil)

	v := broker.ValidateOrder(buy(1, 10, 6), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationOrderSizeTooLarge, v.Kind)
}

func TestValidateOrderSelfTrade(t *testing.T) {
	tests := []struct {
		name string
		req  core.OrderRequest
		md   core.MarketData
		want bool
	}{
		{"buy crossing own ask", buy(1, 101, 1), restingAsk(1, 100, 5), true},
		{"buy at own ask price", buy(1, 100, 1), restingAsk(1, 100, 5), true},
		{"buy below own ask", buy(1, 99, 1), restingAsk(1, 100, 5), false},
		{"buy crossing another agent's ask", buy(1, 101, 1), restingAsk(2, 100, 5), false},
		{"sell crossing own bid", sell(1, 99, 1), restingBid(1, 100, 5), true},
		{"sell above own bid", sell(1, 101, 1), restingBid(1, 100, 5), false},
		{"empty book", buy(1, 101, 1), core.MarketData{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := newTestBroker(1)
			v := broker.ValidateOrder(tt.req, tt.md)
			if tt.want {
				require.NotNil(t, v)
				assert.Equal(t, core.ViolationSelfTrade, v.Kind)
			} else {
				assert.Nil(t, v)
			}
		})
	}
}

func TestValidateOrderPositionLimit(t *testing.T) {
	broker := core.NewBroker(core.BrokerConfig{
		InitialCash:   1_000_000,
		PositionLimit: 10,
		MaxOrderSize:  100,
	}, []core.AgentID{1}, nil)

	v := broker.ValidateOrder(buy(1, 10, 11), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationPositionLimitExceeded, v.Kind)

	v = broker.ValidateOrder(sell(1, 10, 11), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationPositionLimitExceeded, v.Kind, "short side of the band")

	assert.Nil(t, broker.ValidateOrder(buy(1, 10, 10), core.MarketData{}), "exactly at the limit passes")
}

func TestValidateOrderCash(t *testing.T) {
	broker := core.NewBroker(core.BrokerConfig{
		InitialCash:   100,
		PositionLimit: 1000,
		MaxOrderSize:  1000,
	}, []core.AgentID{1}, nil)

	v := broker.ValidateOrder(buy(1, 10.5, 10), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationInsufficientCash, v.Kind)

	assert.Nil(t, broker.ValidateOrder(buy(1, 10, 10), core.MarketData{}), "exactly affordable passes")
	assert.Nil(t, broker.ValidateOrder(sell(1, 10.5, 10), core.MarketData{}), "sells are never cash-checked")
}

func TestValidateOrderNeverMutates(t *testing.T) {
	broker := newTestBroker(1)
	before, _ := broker.GetAccountState(1)

	broker.ValidateOrder(buy(1, 100, 5), core.MarketData{})
	broker.ValidateOrder(buy(1, 100, 5000), core.MarketData{}) // violates

	after, _ := broker.GetAccountState(1)
	assert.Equal(t, before, after)
}

func TestPerAgentOverrides(t *testing.T) {
	broker := newTestBroker(1, 2)
	broker.SetMaxOrderSize(1, 3)
	broker.SetPositionLimit(2, 5)

	v := broker.ValidateOrder(buy(1, 10, 4), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationOrderSizeTooLarge, v.Kind)
	assert.Nil(t, broker.ValidateOrder(buy(2, 10, 4), core.MarketData{}), "override is per agent")

	v = broker.ValidateOrder(sell(2, 10, 6), core.MarketData{})
	require.NotNil(t, v)
	assert.Equal(t, core.ViolationPositionLimitExceeded, v.Kind)
}

func TestSettleTrade(t *testing.T) {
	broker := newTestBroker(1, 2)

	broker.SettleTrade(core.Trade{
		ID: 1, Price: 101, Quantity: 3, BuyerID: 1, SellerID: 2, Timestamp: 0,
	})

	buyer, _ := broker.GetAccountState(1)
	seller, _ := broker.GetAccountState(2)

	initial := core.DefaultBrokerConfig().InitialCash
	assert.Equal(t, initial.Sub(303), buyer.Cash)
	assert.Equal(t, core.Quantity(3), buyer.Position)
	assert.Equal(t, initial.Add(303), seller.Cash)
	assert.Equal(t, core.Quantity(-3), seller.Position)
}

func TestSettleTradeUnknownAgentIsNoOp(t *testing.T) {
	broker := newTestBroker(1)
	before, _ := broker.GetAccountState(1)

	broker.SettleTrade(core.Trade{ID: 1, Price: 100, Quantity: 5, BuyerID: 7, SellerID: 8})
	after, _ := broker.GetAccountState(1)
	assert.Equal(t, before, after)

	// Known buyer, unknown seller: only the buyer side moves.
	broker.SettleTrade(core.Trade{ID: 2, Price: 100, Quantity: 5, BuyerID: 1, SellerID: 8})
	buyer, _ := broker.GetAccountState(1)
	assert.Equal(t, before.Cash.Sub(500), buyer.Cash)
	assert.Equal(t, core.Quantity(5), buyer.Position)
}

func TestAccountsReturnsCopies(t *testing.T) {
	broker := newTestBroker(1)

	accounts := broker.Accounts()
	acc := accounts[1]
	acc.Cash = 0
	accounts[1] = acc

	fresh, ok := broker.GetAccountState(1)
	require.True(t, ok)
	assert.Equal(t, core.DefaultBrokerConfig().InitialCash, fresh.Cash)
}

func TestEngineSettlesThroughBroker(t *testing.T) {
	// Matching scenario: A rests BUY 5 @ 101, B sells 3 @ 100.
	broker := newTestBroker(1, 2)
	engine := core.NewMatchingEngine(broker)

	require.True(t, engine.ProcessOrder(buy(1, 101, 5), 0).Accepted)
	require.True(t, engine.ProcessOrder(sell(2, 100, 3), 1).Accepted)

	a, _ := broker.GetAccountState(1)
	b, _ := broker.GetAccountState(2)
	initial := core.DefaultBrokerConfig().InitialCash

	assert.Equal(t, core.Quantity(3), a.Position)
	assert.Equal(t, initial.Sub(303), a.Cash)
	assert.Equal(t, core.Quantity(-3), b.Position)
	assert.Equal(t, initial.Add(303), b.Cash)
}
