package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
)

var (
	ErrInvalidTransition = errors.New("invalid escrow transition")
	ErrInvalidAmount     = errors.New("escrow amount must be positive")
)

// Payer is the contact shown prefilled in the checkout widget.
type Payer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Flow is one escrow deposit. It only moves when a caller asks it to:
// Start hands the order to the gateway, and the gateway outcome is reported
// back through Succeed or Fail.
type Flow struct {
	id          string
	owner       string
	amount      int
	beneficiary string
	gateway     Gateway
	now         func() time.Time

	mu        sync.Mutex
	state     State
	checkout  *Checkout
	paymentID string
	lastError string
	updatedAt time.Time
}

// View is a point-in-time copy of a flow.
type View struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner,omitempty"`
	Amount      int       `json:"amount"`
	Beneficiary string    `json:"beneficiary"`
	State       State     `json:"state"`
	Checkout    *Checkout `json:"checkout,omitempty"`
	PaymentID   string    `json:"paymentId,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewFlow creates an idle deposit of amount rupees for beneficiary.
func NewFlow(amount int, beneficiary string, gateway Gateway) (*Flow, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if gateway == nil {
		return nil, errors.New("payment gateway is required")
	}

	f := &Flow{
		id:          uuid.NewString(),
		amount:      amount,
		beneficiary: strings.TrimSpace(beneficiary),
		gateway:     gateway,
		now:         time.Now,
		state:       StateIdle,
	}
	f.updatedAt = f.now()
	return f, nil
}

func (f *Flow) ID() string { return f.id }

// Owner is the uid of the payer who opened the flow, if any.
func (f *Flow) Owner() string { return f.owner }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		ID:          f.id,
		Owner:       f.owner,
		Amount:      f.amount,
		Beneficiary: f.beneficiary,
		State:       f.state,
		Checkout:    f.checkout,
		PaymentID:   f.paymentID,
		LastError:   f.lastError,
		UpdatedAt:   f.updatedAt,
	}
}

// transition moves from one state to another or reports ErrInvalidTransition.
// Callers hold f.mu.
func (f *Flow) transition(from, to State) error {
	if f.state != from {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, f.state)
	}
	f.state = to
	f.updatedAt = f.now()
	return nil
}

// Start moves an idle flow to processing and asks the gateway for a checkout
// order. If the gateway cannot create the order the flow returns to idle.
func (f *Flow) Start(ctx context.Context, payer Payer) (*Checkout, error) {
	f.mu.Lock()
	if err := f.transition(StateIdle, StateProcessing); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.checkout = nil
	f.lastError = ""
	f.mu.Unlock()

	checkout, err := f.gateway.CreateOrder(ctx, Order{
		AmountMinor: MinorUnits(f.amount),
		Currency:    CurrencyINR,
		Receipt:     f.id,
		Description: DepositDescription,
		Prefill:     payer,
		Notes:       map[string]string{"beneficiary": f.beneficiary},
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if f.state == StateProcessing {
			f.state = StateIdle
			f.lastError = err.Error()
			f.updatedAt = f.now()
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The flow may have been aborted while the order was being created.
	if f.state != StateProcessing {
		return nil, fmt.Errorf("%w: flow left processing before the order was created", ErrInvalidTransition)
	}

	f.checkout = checkout
	return checkout, nil
}

// Succeed records the gateway's success callback.
func (f *Flow) Succeed(paymentID string) error {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return errors.New("payment id is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transition(StateProcessing, StateSuccess); err != nil {
		return err
	}
	f.paymentID = paymentID
	return nil
}

// Fail records the gateway's failure callback and returns the flow to idle.
func (f *Flow) Fail(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transition(StateProcessing, StateIdle); err != nil {
		return err
	}
	f.lastError = strings.TrimSpace(reason)
	return nil
}

// Abort returns a processing flow to idle, e.g. when the payer closes the checkout.
func (f *Flow) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transition(StateProcessing, StateIdle); err != nil {
		return err
	}
	f.checkout = nil
	return nil
}
