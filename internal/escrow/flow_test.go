package escrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	orders []Order
	err    error
}

func (g *recordingGateway) CreateOrder(_ context.Context, order Order) (*Checkout, error) {
	g.orders = append(g.orders, order)
	if g.err != nil {
		return nil, g.err
	}
	return &Checkout{OrderID: "order_1", Amount: order.AmountMinor, Currency: order.Currency, Prefill: order.Prefill}, nil
}

func TestFlowHappyPath(t *testing.T) {
	gw := &recordingGateway{}
	flow, err := NewFlow(50000, "Arjun Mehta", gw)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, flow.State())

	payer := Payer{Name: "Priya", Email: "priya@example.com"}
	checkout, err := flow.Start(context.Background(), payer)
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, flow.State())
	assert.Equal(t, "order_1", checkout.OrderID)

	require.Len(t, gw.orders, 1)
	assert.Equal(t, int64(5000000), gw.orders[0].AmountMinor)
	assert.Equal(t, CurrencyINR, gw.orders[0].Currency)
	assert.Equal(t, payer, gw.orders[0].Prefill)
	assert.Equal(t, flow.ID(), gw.orders[0].Receipt)

	require.NoError(t, flow.Succeed("pay_123"))
	view := flow.View()
	assert.Equal(t, StateSuccess, view.State)
	assert.Equal(t, "pay_123", view.PaymentID)
}

func TestFlowFailureReturnsToIdle(t *testing.T) {
	flow, err := NewFlow(100, "", &recordingGateway{})
	require.NoError(t, err)

	_, err = flow.Start(context.Background(), Payer{})
	require.NoError(t, err)

	require.NoError(t, flow.Fail("card declined"))
	assert.Equal(t, StateIdle, flow.State())
	assert.Equal(t, "card declined", flow.View().LastError)

	// A retry is allowed after a failure.
	_, err = flow.Start(context.Background(), Payer{})
	require.NoError(t, err)
	require.NoError(t, flow.Abort())
	assert.Equal(t, StateIdle, flow.State())
}

func TestFlowGatewayErrorReturnsToIdle(t *testing.T) {
	flow, err := NewFlow(100, "", &recordingGateway{err: errors.New("sdk not loaded")})
	require.NoError(t, err)

	_, err = flow.Start(context.Background(), Payer{})
	require.Error(t, err)
	assert.Equal(t, StateIdle, flow.State())
	assert.Contains(t, flow.View().LastError, "sdk not loaded")
}

func TestFlowRejectsOtherTransitions(t *testing.T) {
	flow, err := NewFlow(100, "", &recordingGateway{})
	require.NoError(t, err)

	assert.ErrorIs(t, flow.Succeed("pay_1"), ErrInvalidTransition)
	assert.ErrorIs(t, flow.Fail("x"), ErrInvalidTransition)
	assert.ErrorIs(t, flow.Abort(), ErrInvalidTransition)
	assert.Equal(t, StateIdle, flow.State())

	_, err = flow.Start(context.Background(), Payer{})
	require.NoError(t, err)
	_, err = flow.Start(context.Background(), Payer{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, flow.Succeed("pay_1"))
	for _, err := range []error{flow.Succeed("pay_2"), flow.Fail("x"), flow.Abort()} {
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	_, err = flow.Start(context.Background(), Payer{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateSuccess, flow.State())
}

func TestNewFlowValidation(t *testing.T) {
	_, err := NewFlow(0, "x", &recordingGateway{})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewFlow(10, "x", nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Demo{KeyID: "rzp_test"}, nil)

	flow, err := reg.Open("u1", 250, "Sneha")
	require.NoError(t, err)

	got, err := reg.Get(flow.ID())
	require.NoError(t, err)
	assert.Same(t, flow, got)
	assert.Equal(t, "u1", got.View().Owner)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)

	checkout, err := got.Start(context.Background(), Payer{Name: "Client"})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), checkout.Amount)
	assert.Equal(t, "rzp_test", checkout.KeyID)
	assert.Equal(t, DefaultMerchant, checkout.Name)
	assert.Contains(t, checkout.OrderID, "order_demo_")
}

func TestRegistrySweepEvictsFinishedFlows(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(Demo{KeyID: "rzp_test"}, nil)
	reg.now = func() time.Time { return clock }

	var processing []*Flow
	for i := 0; i < 1000; i++ {
		flow, err := reg.Open("u1", 100, "Sneha")
		require.NoError(t, err)
		_, err = flow.Start(context.Background(), Payer{})
		require.NoError(t, err)
		if i%100 == 0 {
			processing = append(processing, flow)
			continue
		}
		require.NoError(t, flow.Succeed("pay_1"))
	}
	idle, err := reg.Open("u2", 100, "Arjun")
	require.NoError(t, err)
	require.Equal(t, 1001, reg.Len())

	// Nothing is older than the ttl yet.
	assert.Zero(t, reg.Sweep(time.Hour))

	clock = clock.Add(2 * time.Hour)
	fresh, err := reg.Open("u3", 100, "Priya")
	require.NoError(t, err)

	assert.Equal(t, 991, reg.Sweep(time.Hour))
	assert.Equal(t, len(processing)+1, reg.Len())

	for _, flow := range processing {
		_, err := reg.Get(flow.ID())
		assert.NoError(t, err)
	}
	_, err = reg.Get(idle.ID())
	assert.ErrorIs(t, err, ErrFlowNotFound)
	_, err = reg.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestJanitorSchedulesSweep(t *testing.T) {
	j := NewJanitor(NewRegistry(Demo{}, nil), time.Second, 0, nil)
	assert.Equal(t, DefaultFlowTTL, j.ttl)
	require.NoError(t, j.Start())
	j.Stop()
}
