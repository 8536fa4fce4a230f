package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/workhive/internal/utils"
)

const (
	defaultModel = "gemini-2.5-flash"

	baseRetryDelay  = 2 * time.Second
	quotaRetryDelay = 5 * time.Second
	maxQuotaDelay   = 30 * time.Second
)

var (
	wait = utils.WaitFor

	retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (g genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := g.client.Chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator wraps the Google GenAI client. Every call starts a fresh chat
// seeded with the supplied history, so no provider-side state outlives a call.
type Generator struct {
	chats       chatCreator
	model       string
	maxAttempts int
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// maxAttempts below one means a single attempt.
func NewGenerator(ctx context.Context, apiKey, model string, maxAttempts int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:       genaiChats{client: client},
		model:       model,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// GenerateContent sends a single message and returns the textual reply.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	return g.send(ctx, newConfig(system), nil, message)
}

// GenerateJSON sends a single message and asks for a JSON reply matching schema.
func (g *Generator) GenerateJSON(ctx context.Context, system, message string, schema *genai.Schema) (string, error) {
	cfg := newConfig(system)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = schema
	return g.send(ctx, cfg, nil, message)
}

// Converse replies to message in the context of history.
func (g *Generator) Converse(ctx context.Context, system string, history []*genai.Content, message string) (string, error) {
	return g.send(ctx, newConfig(system), history, message)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func newConfig(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return cfg
}

func (g *Generator) send(ctx context.Context, cfg *genai.GenerateContentConfig, history []*genai.Content, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	attempts := g.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		output, err := g.sendOnce(ctx, cfg, history, message)
		if err == nil {
			return output, nil
		}

		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt >= attempts {
			return "", err
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (g *Generator) sendOnce(ctx context.Context, cfg *genai.GenerateContentConfig, history []*genai.Content, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, cfg, history)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// retryDelay decides whether err is worth another attempt and how long to wait first.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return time.Duration(attempt) * baseRetryDelay, true
	case http.StatusTooManyRequests:
		delay := quotaRetryDelay
		if m := retryAfterRe.FindStringSubmatch(apiErr.Message); m != nil {
			if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
				delay = time.Duration(secs * float64(time.Second))
			}
		}
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	default:
		return 0, false
	}
}
