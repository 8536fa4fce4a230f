package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
)

// Filter represents a single filtering step applied to the talent catalog.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, f *marketplace.Freelancers) (*marketplace.Freelancers, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config holds the search criteria picked in the talent search.
// Empty values mean "any".
type Config struct {
	Language     string `json:"language,omitempty"`
	Location     string `json:"location,omitempty"`
	VerifiedOnly bool   `json:"verifiedOnly,omitempty"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Default returns the standard pipeline: language, location, verified.
func Default() []Filter {
	return []Filter{NewLanguage(), NewLocation(), NewVerified()}
}

// ReasonNotRequested marks steps switched off because the search left them empty.
const ReasonNotRequested = "not requested"

// ForCriteria returns the default pipeline with the steps cfg leaves empty
// disabled, so Describe reports which filters actually ran.
func ForCriteria(cfg *Config) []Filter {
	steps := Default()
	if cfg == nil {
		cfg = &Config{}
	}
	if strings.TrimSpace(cfg.Language) == "" {
		DisableByName(steps, "language", ReasonNotRequested)
	}
	if strings.TrimSpace(cfg.Location) == "" {
		DisableByName(steps, "location", ReasonNotRequested)
	}
	if !cfg.VerifiedOnly {
		DisableByName(steps, "verified", ReasonNotRequested)
	}
	return steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially. The input collection is
// not modified; the survivors keep their catalog order.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, f *marketplace.Freelancers) (*marketplace.Freelancers, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := f.Clone()
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		current = next
	}

	return current, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
