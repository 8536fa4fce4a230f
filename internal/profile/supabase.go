package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	supabase "github.com/nedpals/supabase-go"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

const defaultPollInterval = 3 * time.Second

// SupabaseStore keeps profiles in a Supabase (PostgREST) table. PostgREST
// has no change feed, so subscriptions poll while somebody is watching.
type SupabaseStore struct {
	client       *supabase.Client
	broker       *Broker
	logger       *zap.Logger
	pollInterval time.Duration
	now          func() time.Time
}

func NewSupabaseStore(url, key string, pollInterval time.Duration, logger *zap.Logger) (*SupabaseStore, error) {
	url, key = strings.TrimSpace(url), strings.TrimSpace(key)
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key must be provided")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	s := &SupabaseStore{
		client:       supabase.CreateClient(url, key),
		logger:       logger,
		pollInterval: pollInterval,
		now:          time.Now,
	}
	s.broker = NewBroker(s.poll, logger)
	return s, nil
}

func (s *SupabaseStore) Create(ctx context.Context, p *marketplace.UserProfile) error {
	if p == nil || p.UID == "" {
		return ErrInvalidPatch
	}

	if _, err := s.Get(ctx, p.UID); err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	stored := p.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	var rows []marketplace.UserProfile
	if err := s.client.DB.From(Collection).Insert(*stored).Execute(&rows); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	s.broker.Publish(Snapshot{UID: stored.UID, Profile: stored, Exists: true})
	return nil
}

func (s *SupabaseStore) Get(ctx context.Context, uid string) (*marketplace.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []marketplace.UserProfile
	if err := s.client.DB.From(Collection).Select("*").Eq("uid", uid).Execute(&rows); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Update(ctx context.Context, uid string, patch Patch) (*marketplace.UserProfile, error) {
	current, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	updated, err := ApplyPatch(current, patch, s.now())
	if err != nil {
		return nil, err
	}

	values, err := changedColumns(updated, patch)
	if err != nil {
		return nil, err
	}

	var rows []marketplace.UserProfile
	if err := s.client.DB.From(Collection).Update(values).Eq("uid", uid).Execute(&rows); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.broker.Publish(Snapshot{UID: uid, Profile: updated, Exists: true})
	return updated, nil
}

func (s *SupabaseStore) List(ctx context.Context) ([]*marketplace.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []marketplace.UserProfile
	if err := s.client.DB.From(Collection).Select("*").Execute(&rows); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	out := make([]*marketplace.UserProfile, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *SupabaseStore) Subscribe(ctx context.Context, uid string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, uid, snapshotOf(ctx, s, uid)), nil
}

func (s *SupabaseStore) Close() {
	s.broker.Close()
}

// poll publishes changes of uid made elsewhere until the returned stop is called.
func (s *SupabaseStore) poll(uid string) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		last := snapshotOf(ctx, s, uid)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current := snapshotOf(ctx, s, uid)
			if current.Err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("profile poll failed", zap.String("uid", uid), zap.Error(current.Err))
				}
				continue
			}
			if sameState(last, current) {
				continue
			}
			last = current
			s.broker.Publish(current)
		}
	}()

	return cancel
}

// changedColumns picks the patched columns, plus updatedAt, from updated.
func changedColumns(updated *marketplace.UserProfile, patch Patch) (map[string]any, error) {
	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}

	values := make(map[string]any, len(patch)+1)
	for k := range patch {
		// omitempty drops cleared fields, which must still be written.
		v, ok := all[k]
		if !ok {
			v = nil
		}
		values[k] = v
	}
	values["updatedAt"] = updated.UpdatedAt
	return values, nil
}
