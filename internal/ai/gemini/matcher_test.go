package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/workhive/internal/marketplace"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastSchema *genai.Schema
}

func (s *stubGenerator) GenerateJSON(_ context.Context, _ string, prompt string, schema *genai.Schema) (string, error) {
	s.lastPrompt = prompt
	s.lastSchema = schema
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func sampleJob() *marketplace.Job {
	return &marketplace.Job{
		ID:             "j1",
		Title:          "Storefront rebuild",
		Description:    "Rebuild our storefront in React",
		Budget:         50000,
		SkillsRequired: []string{"React"},
		Location:       "Mumbai",
	}
}

func sampleFreelancer() *marketplace.Freelancer {
	return &marketplace.Freelancer{
		ID:         "f1",
		Name:       "Arjun Mehta",
		Role:       "Senior Full Stack Architect",
		Location:   "Mumbai, MH",
		Skills:     []string{"React", "Node.js"},
		HourlyRate: 2500,
		Languages:  []string{"English", "Hindi"},
	}
}

func TestMatcherEvaluate(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 87, "reasoning": "Strong React background in the same city."}`}
	matcher := NewMatcher(stub, 0, zap.NewNop())

	assessment, err := matcher.Evaluate(context.Background(), sampleJob(), sampleFreelancer())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 87 {
		t.Fatalf("expected score 87, got %d", assessment.Score)
	}

	if assessment.Reasoning == "" {
		t.Fatalf("expected reasoning to be populated")
	}

	if assessment.Raw != stub.response {
		t.Fatalf("expected raw response to be kept")
	}

	if stub.lastSchema != matchSchema {
		t.Fatalf("expected structured schema to be requested")
	}

	for _, want := range []string{
		"Title: Storefront rebuild",
		"Required Skills: React",
		"Budget: 50000 INR",
		"Skills: React, Node.js",
		"Rate: 2500 INR/hr",
		"Languages: English, Hindi",
	} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, stub.lastPrompt)
		}
	}

	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("prompt has unreplaced placeholders:\n%s", stub.lastPrompt)
	}
}

func TestMatcherEvaluatePropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	matcher := NewMatcher(stub, 0, zap.NewNop())

	if _, err := matcher.Evaluate(context.Background(), sampleJob(), sampleFreelancer()); err == nil {
		t.Fatal("expected error")
	}
}

func TestMatcherEvaluateRequiresInputs(t *testing.T) {
	matcher := NewMatcher(&stubGenerator{}, 0, nil)

	if _, err := matcher.Evaluate(context.Background(), nil, sampleFreelancer()); err == nil {
		t.Fatal("expected error for nil job")
	}
	if _, err := matcher.Evaluate(context.Background(), sampleJob(), nil); err == nil {
		t.Fatal("expected error for nil freelancer")
	}
}

func TestParseResponse(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		score     int
		reasoning string
		wantErr   bool
	}{
		{name: "plain", raw: `{"score": 70, "reasoning": "ok"}`, score: 70, reasoning: "ok"},
		{name: "code block", raw: "```json\n{\"score\": \"64\", \"reasoning\": \"Looks good\"}\n```", score: 64, reasoning: "Looks good"},
		{name: "fractional", raw: `{"score": 80.6, "reasoning": "x"}`, score: 81, reasoning: "x"},
		{name: "missing score", raw: `{"reasoning": "x"}`, wantErr: true},
		{name: "not json", raw: "I think 80", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assessment, err := parseResponse(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if assessment.Score != tc.score || assessment.Reasoning != tc.reasoning {
				t.Fatalf("unexpected assessment: %+v", assessment)
			}
		})
	}
}
