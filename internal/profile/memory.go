package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	broker *Broker
	now    func() time.Time

	mu       sync.RWMutex
	profiles map[string]*marketplace.UserProfile
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		broker:   NewBroker(nil, logger),
		now:      time.Now,
		profiles: make(map[string]*marketplace.UserProfile),
	}
}

func (m *MemoryStore) Create(_ context.Context, p *marketplace.UserProfile) error {
	if p == nil || strings.TrimSpace(p.UID) == "" {
		return ErrInvalidPatch
	}

	m.mu.Lock()
	if _, ok := m.profiles[p.UID]; ok {
		m.mu.Unlock()
		return ErrExists
	}
	stored := p.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now().UTC()
	}
	m.profiles[p.UID] = stored
	m.broker.Publish(Snapshot{UID: p.UID, Profile: stored, Exists: true})
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Get(_ context.Context, uid string) (*marketplace.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, uid string, patch Patch) (*marketplace.UserProfile, error) {
	m.mu.Lock()
	current, ok := m.profiles[uid]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	updated, err := ApplyPatch(current, patch, m.now())
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.profiles[uid] = updated
	m.broker.Publish(Snapshot{UID: uid, Profile: updated, Exists: true})
	m.mu.Unlock()

	return updated.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*marketplace.UserProfile, error) {
	m.mu.RLock()
	out := make([]*marketplace.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Clone())
	}
	m.mu.RUnlock()

	// Map iteration order is random; uid breaks ties between equal timestamps.
	sortByUID(out)
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, uid string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Holding the read lock keeps writers from publishing between the
	// initial snapshot and the registration.
	m.mu.RLock()
	defer m.mu.RUnlock()

	initial := Snapshot{UID: uid}
	if p, ok := m.profiles[uid]; ok {
		initial.Profile = p
		initial.Exists = true
	}
	return m.broker.Subscribe(ctx, uid, initial), nil
}

func (m *MemoryStore) Close() {
	m.broker.Close()
}
