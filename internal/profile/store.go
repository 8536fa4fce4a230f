package profile

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/spigell/workhive/internal/marketplace"
)

// Collection is the name of the table (or document collection) holding profiles.
const Collection = "hive_profiles"

var (
	ErrNotFound = errors.New("profile not found")
	ErrExists   = errors.New("profile already exists")
)

// Store keeps one profile per user id.
type Store interface {
	Create(ctx context.Context, p *marketplace.UserProfile) error
	Get(ctx context.Context, uid string) (*marketplace.UserProfile, error)
	Update(ctx context.Context, uid string, patch Patch) (*marketplace.UserProfile, error)
	// List returns every profile, newest first.
	List(ctx context.Context) ([]*marketplace.UserProfile, error)
	// Subscribe delivers the current state of the profile and then every
	// change until the subscription is cancelled or ctx ends.
	Subscribe(ctx context.Context, uid string) (*Subscription, error)
}

func sortNewestFirst(profiles []*marketplace.UserProfile) {
	slices.SortStableFunc(profiles, func(a, b *marketplace.UserProfile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// CountRoles tallies profiles per role, as shown on the admin dashboard.
func CountRoles(profiles []*marketplace.UserProfile) map[marketplace.Role]int {
	counts := map[marketplace.Role]int{
		marketplace.RoleClient:     0,
		marketplace.RoleFreelancer: 0,
		marketplace.RoleAdmin:      0,
	}
	for _, p := range profiles {
		counts[p.Role]++
	}
	return counts
}

func snapshotOf(ctx context.Context, s interface {
	Get(ctx context.Context, uid string) (*marketplace.UserProfile, error)
}, uid string) Snapshot {
	p, err := s.Get(ctx, uid)
	switch {
	case errors.Is(err, ErrNotFound):
		return Snapshot{UID: uid}
	case err != nil:
		return Snapshot{UID: uid, Err: err}
	default:
		return Snapshot{UID: uid, Profile: p, Exists: true}
	}
}

func sortByUID(profiles []*marketplace.UserProfile) {
	slices.SortFunc(profiles, func(a, b *marketplace.UserProfile) int {
		return strings.Compare(a.UID, b.UID)
	})
}

// sameState reports whether two snapshots describe the same stored revision.
func sameState(a, b Snapshot) bool {
	if a.Exists != b.Exists || (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if !a.Exists {
		return true
	}
	return a.Profile.CreatedAt.Equal(b.Profile.CreatedAt) && equalTime(a.Profile.UpdatedAt, b.Profile.UpdatedAt)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
