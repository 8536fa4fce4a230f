package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/workhive/internal/marketplace"
)

func catalog() *marketplace.Freelancers {
	return &marketplace.Freelancers{Items: []*marketplace.Freelancer{
		{ID: "f1", Location: "Mumbai, MH", Languages: []string{"English", "Hindi"}, Verified: true},
		{ID: "f2", Location: "Bangalore, KA", Languages: []string{"English", "Kannada"}, Verified: true},
		{ID: "f3", Location: "Navi Mumbai", Languages: []string{"Marathi", "Hindi"}},
		{ID: "f4", Location: "Delhi, DL", Languages: []string{"English"}},
	}}
}

func TestRunLanguageAndLocation(t *testing.T) {
	src := catalog()
	cfg := &Config{Language: "Hindi", Location: "mumbai"}

	got, err := Run(context.Background(), cfg, Deps{}, Default(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := got.IDs()
	if len(ids) != 2 || ids[0] != "f1" || ids[1] != "f3" {
		t.Fatalf("unexpected survivors: %v", ids)
	}

	if src.Len() != 4 {
		t.Fatalf("input catalog must not be modified, has %d items", src.Len())
	}
}

func TestLanguageFilterIsExact(t *testing.T) {
	got, err := Run(context.Background(), &Config{Language: "hindi"}, Deps{}, Default(), catalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected no matches for lower-case language, got %v", got.IDs())
	}
}

func TestRunEmptyConfigKeepsEverything(t *testing.T) {
	got, err := Run(context.Background(), nil, Deps{}, Default(), catalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("expected all freelancers, got %v", got.IDs())
	}
}

func TestVerifiedOnly(t *testing.T) {
	got, err := Run(context.Background(), &Config{VerifiedOnly: true}, Deps{}, Default(), catalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := got.IDs()
	if len(ids) != 2 || ids[0] != "f1" || ids[1] != "f2" {
		t.Fatalf("unexpected survivors: %v", ids)
	}
}

func TestDisabledStepIsSkippedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	steps := Default()
	DisableByName(steps, "location", "not needed")

	got, err := Run(context.Background(), &Config{Location: "Delhi"}, Deps{Logger: zap.New(core)}, steps, catalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("expected disabled location step to keep everyone, got %v", got.IDs())
	}

	if logs.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}

	for _, status := range Describe(steps) {
		if status.Name == "location" && (status.Enabled || status.Reason != "not needed") {
			t.Fatalf("unexpected status: %+v", status)
		}
	}
}

func TestForCriteriaReportsActiveSteps(t *testing.T) {
	cfg := &Config{Language: "Hindi"}
	steps := ForCriteria(cfg)

	got, err := Run(context.Background(), cfg, Deps{}, steps, catalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected only the language step to apply, got %v", got.IDs())
	}

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected every default step to be described, got %+v", statuses)
	}
	for _, status := range statuses {
		switch status.Name {
		case "language":
			if !status.Enabled || status.Details["language"] != "Hindi" {
				t.Fatalf("unexpected language status: %+v", status)
			}
		default:
			if status.Enabled || status.Reason != ReasonNotRequested {
				t.Fatalf("expected %s to be disabled as not requested: %+v", status.Name, status)
			}
		}
	}

	for _, status := range Describe(ForCriteria(nil)) {
		if status.Enabled {
			t.Fatalf("nil criteria must leave every step disabled: %+v", status)
		}
	}
}

type failingFilter struct{ toggle }

func (failingFilter) Name() string { return "failing" }

func (failingFilter) Validate(*Config) error { return errors.New("bad config") }

func (failingFilter) Apply(context.Context, Deps, *marketplace.Freelancers) (*marketplace.Freelancers, Step, error) {
	return nil, Step{}, nil
}

func TestRunValidationError(t *testing.T) {
	_, err := Run(context.Background(), nil, Deps{}, []Filter{&failingFilter{}}, catalog())
	if err == nil {
		t.Fatal("expected validation error")
	}
}
