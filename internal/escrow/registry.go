package escrow

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrFlowNotFound = errors.New("escrow flow not found")

// Registry keeps the flows opened through the API. Nothing is persisted.
type Registry struct {
	gateway Gateway
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewRegistry(gateway Gateway, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{gateway: gateway, logger: logger, now: time.Now, flows: make(map[string]*Flow)}
}

// Open creates an idle flow owned by the user owner.
func (r *Registry) Open(owner string, amount int, beneficiary string) (*Flow, error) {
	flow, err := NewFlow(amount, beneficiary, r.gateway)
	if err != nil {
		return nil, err
	}
	flow.owner = owner
	flow.now = r.now
	flow.updatedAt = r.now()

	r.mu.Lock()
	r.flows[flow.ID()] = flow
	r.mu.Unlock()

	r.logger.Debug("escrow flow opened",
		zap.String("flow_id", flow.ID()),
		zap.String("owner", owner),
		zap.Int("amount", amount),
		zap.String("beneficiary", beneficiary),
	)
	return flow, nil
}

func (r *Registry) Get(id string) (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flow, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Sweep drops idle and successful flows that have not changed for longer than
// ttl and returns how many were removed. Processing flows wait for the
// gateway outcome and are always kept.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, flow := range r.flows {
		view := flow.View()
		if view.State == StateProcessing || view.UpdatedAt.After(cutoff) {
			continue
		}
		delete(r.flows, id)
		removed++
	}
	return removed
}
