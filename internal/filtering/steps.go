package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

// toggle carries the enable/disable state shared by every step.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type languageFilter struct {
	toggle
	language string
}

// NewLanguage creates a filter that keeps freelancers speaking the configured language.
func NewLanguage() Filter {
	return &languageFilter{}
}

func (f *languageFilter) Name() string { return "language" }

func (f *languageFilter) Validate(cfg *Config) error {
	f.language = ""
	if cfg != nil {
		f.language = strings.TrimSpace(cfg.Language)
	}
	return nil
}

func (f *languageFilter) Apply(_ context.Context, deps Deps, v *marketplace.Freelancers) (*marketplace.Freelancers, Step, error) {
	initial := v.Len()
	if f.language == "" {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	excluded := v.Keep(func(fr *marketplace.Freelancer) bool {
		return fr.SpeaksLanguage(f.language)
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding freelancers by language",
			zap.String("language", f.language),
			zap.Strings("excluded_freelancers", excluded),
			zap.Int("freelancers_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *languageFilter) Status() Status {
	details := map[string]string{}
	if f.language != "" {
		details["language"] = f.language
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type locationFilter struct {
	toggle
	location string
}

// NewLocation creates a filter that keeps freelancers whose location contains
// the configured text, ignoring case.
func NewLocation() Filter {
	return &locationFilter{}
}

func (f *locationFilter) Name() string { return "location" }

func (f *locationFilter) Validate(cfg *Config) error {
	f.location = ""
	if cfg != nil {
		f.location = strings.TrimSpace(cfg.Location)
	}
	return nil
}

func (f *locationFilter) Apply(_ context.Context, deps Deps, v *marketplace.Freelancers) (*marketplace.Freelancers, Step, error) {
	initial := v.Len()
	if f.location == "" {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	excluded := v.Keep(func(fr *marketplace.Freelancer) bool {
		return fr.LocatedIn(f.location)
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding freelancers by location",
			zap.String("location", f.location),
			zap.Strings("excluded_freelancers", excluded),
			zap.Int("freelancers_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *locationFilter) Status() Status {
	details := map[string]string{}
	if f.location != "" {
		details["location"] = f.location
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type verifiedFilter struct {
	toggle
	only bool
}

// NewVerified creates a filter that drops unverified freelancers when asked to.
func NewVerified() Filter {
	return &verifiedFilter{}
}

func (f *verifiedFilter) Name() string { return "verified" }

func (f *verifiedFilter) Validate(cfg *Config) error {
	f.only = cfg != nil && cfg.VerifiedOnly
	return nil
}

func (f *verifiedFilter) Apply(_ context.Context, _ Deps, v *marketplace.Freelancers) (*marketplace.Freelancers, Step, error) {
	initial := v.Len()
	if !f.only {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	excluded := v.Keep(func(fr *marketplace.Freelancer) bool { return fr.Verified })
	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *verifiedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"verified_only": strconv.FormatBool(f.only)},
	}
}
