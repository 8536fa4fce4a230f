package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/logger"
	"github.com/spigell/workhive/internal/marketplace"
)

type contentGenerator interface {
	GenerateJSON(ctx context.Context, system, message string, schema *genai.Schema) (string, error)
}

type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var errMissingScore = errors.New("gemini response has no score")

// matchSchema is the structured output requested from the model.
var matchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":     {Type: genai.TypeInteger},
		"reasoning": {Type: genai.TypeString},
	},
	Required: []string{"score", "reasoning"},
}

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) Evaluate(ctx context.Context, job *marketplace.Job, freelancer *marketplace.Freelancer) (*ai.Assessment, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if freelancer == nil {
		return nil, fmt.Errorf("freelancer is required")
	}

	prompt := buildPrompt(job, freelancer)

	m.logger.Debug("gemini match request", append([]zap.Field{
		zap.String("job_id", job.ID),
		zap.String("freelancer_id", freelancer.ID),
	}, logger.Preview("prompt", prompt, m.maxLogLen)...)...)

	raw, err := m.generator.GenerateJSON(ctx, "", prompt, matchSchema)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini match response", append([]zap.Field{
		zap.String("job_id", job.ID),
		zap.String("freelancer_id", freelancer.ID),
	}, logger.Preview("response", raw, m.maxLogLen)...)...)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(job *marketplace.Job, freelancer *marketplace.Freelancer) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job:\n{{JOB_TITLE}}\n{{JOB_DESCRIPTION}}\n\nFreelancer:\n{{FREELANCER_NAME}} ({{FREELANCER_ROLE}})\n\nJSON Response:"
	}

	r := strings.NewReplacer(
		"{{JOB_TITLE}}", job.Title,
		"{{JOB_DESCRIPTION}}", job.Description,
		"{{JOB_SKILLS}}", strings.Join(job.SkillsRequired, ", "),
		"{{JOB_BUDGET}}", strconv.Itoa(job.Budget),
		"{{JOB_LOCATION}}", job.Location,
		"{{FREELANCER_NAME}}", freelancer.Name,
		"{{FREELANCER_ROLE}}", freelancer.Role,
		"{{FREELANCER_SKILLS}}", strings.Join(freelancer.Skills, ", "),
		"{{FREELANCER_RATE}}", strconv.Itoa(freelancer.HourlyRate),
		"{{FREELANCER_LOCATION}}", freelancer.Location,
		"{{FREELANCER_LANGUAGES}}", strings.Join(freelancer.Languages, ", "),
	)
	return r.Replace(template)
}

func parseResponse(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return nil, errMissingScore
	}

	return &ai.Assessment{
		Score:     int(math.Round(score)),
		Reasoning: coerceString(data["reasoning"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
