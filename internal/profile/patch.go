package profile

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/workhive/internal/marketplace"
)

var ErrInvalidPatch = errors.New("invalid profile update")

// Patch is a partial profile update keyed by the wire field names.
type Patch map[string]any

var editableFields = map[string]struct{}{
	"displayName": {},
	"bio":         {},
	"location":    {},
	"skills":      {},
	"companyName": {},
	"website":     {},
	"avatarUrl":   {},
}

var protectedFields = map[string]struct{}{
	"uid":       {},
	"email":     {},
	"role":      {},
	"createdAt": {},
	"updatedAt": {},
}

// Validate rejects empty patches, protected fields and unknown fields.
func (p Patch) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrInvalidPatch)
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := protectedFields[k]; ok {
			return fmt.Errorf("%w: field %q cannot be changed", ErrInvalidPatch, k)
		}
		if _, ok := editableFields[k]; !ok {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidPatch, k)
		}
	}
	return nil
}

// ApplyPatch returns a copy of profile with patch applied and updatedAt set to now.
// Skills may be given as a list or as a comma-separated string.
func ApplyPatch(profile *marketplace.UserProfile, patch Patch, now time.Time) (*marketplace.UserProfile, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated := profile.Clone()
	if _, ok := patch["skills"]; ok {
		updated.Skills = nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToSliceHookFunc(","),
		ErrorUnused: true,
		Result:      updated,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]any(patch)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	if _, ok := patch["skills"]; ok {
		updated.Skills = marketplace.AddSkills(nil, updated.Skills...)
	}

	now = now.UTC()
	updated.UpdatedAt = &now
	return updated, nil
}
