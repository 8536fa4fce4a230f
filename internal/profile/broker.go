package profile

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

// Snapshot is the state of one profile at a point in time. Exists is false
// while the profile has not been written yet.
type Snapshot struct {
	UID     string                   `json:"uid"`
	Profile *marketplace.UserProfile `json:"profile,omitempty"`
	Exists  bool                     `json:"exists"`
	Err     error                    `json:"-"`
}

// Subscription receives snapshots of one profile. Only the latest pending
// snapshot is kept, so a slow reader skips intermediate states.
type Subscription struct {
	uid    string
	ch     chan Snapshot
	done   chan struct{}
	once   sync.Once
	remove func(*Subscription)

	mu     sync.Mutex
	closed bool
}

// Updates is closed once the subscription ends.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.ch
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.remove(s)

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if snap.Profile != nil {
		snap.Profile = snap.Profile.Clone()
	}

	select {
	case s.ch <- snap:
		return
	default:
	}
	// Replace the stale pending snapshot.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

// WatchFunc starts watching uid for out-of-process changes and returns a
// function that stops it.
type WatchFunc func(uid string) (stop func())

// Broker fans snapshots out to the subscribers of each profile.
type Broker struct {
	watch  WatchFunc
	logger *zap.Logger

	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	watchers map[string]func()
}

// NewBroker creates a broker. watch may be nil when every change is
// published through the broker itself.
func NewBroker(watch WatchFunc, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		watch:    watch,
		logger:   logger,
		subs:     make(map[string]map[*Subscription]struct{}),
		watchers: make(map[string]func()),
	}
}

// Subscribe registers a subscriber and hands it the initial snapshot.
func (b *Broker) Subscribe(ctx context.Context, uid string, initial Snapshot) *Subscription {
	sub := &Subscription{
		uid:    uid,
		ch:     make(chan Snapshot, 1),
		done:   make(chan struct{}),
		remove: b.remove,
	}
	sub.deliver(initial)

	b.mu.Lock()
	set, ok := b.subs[uid]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[uid] = set
	}
	set[sub] = struct{}{}
	first := len(set) == 1
	if first && b.watch != nil {
		b.watchers[uid] = b.watch(uid)
	}
	b.mu.Unlock()

	b.logger.Debug("profile subscription added", zap.String("uid", uid))

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	return sub
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[sub.uid]
	delete(set, sub)
	if len(set) > 0 {
		return
	}
	delete(b.subs, sub.uid)
	if stop, ok := b.watchers[sub.uid]; ok {
		delete(b.watchers, sub.uid)
		if stop != nil {
			stop()
		}
	}
	b.logger.Debug("profile subscriptions drained", zap.String("uid", sub.uid))
}

// Publish delivers snap to every subscriber of snap.UID.
func (b *Broker) Publish(snap Snapshot) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs[snap.UID]))
	for sub := range b.subs[snap.UID] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(snap)
	}
}

// Watching reports whether uid has at least one subscriber.
func (b *Broker) Watching(uid string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[uid]) > 0
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	var all []*Subscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}
