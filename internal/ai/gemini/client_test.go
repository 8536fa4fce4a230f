package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
	chat    *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, history: history, chat: chat})
	return chat, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noWait(t *testing.T) {
	t.Helper()
	original := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = original })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", textResponse("retry ok"), nil)

	g := &Generator{
		chats:       chats,
		model:       "gemini-pro",
		maxAttempts: 2,
		logger:      zap.NewNop(),
	}

	output, err := g.GenerateContent(context.Background(), "system", "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}

	for _, call := range chats.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorSingleAttemptByDefault(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{chats: chats, model: "gemini-pro", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "", "msg"); err == nil {
		t.Fatal("expected error")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(chats.calls))
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	chats := newFakeChatCreator()
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	chats.enqueue("gemini-pro", nil, tempErr)
	chats.enqueue("gemini-pro", nil, tempErr)

	g := &Generator{
		chats:       chats,
		model:       "gemini-pro",
		maxAttempts: 2,
		logger:      zap.NewNop(),
	}

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	chats := newFakeChatCreator()
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	chats.enqueue("gemini-pro", nil, quotaErr)

	g := &Generator{
		chats:       chats,
		model:       "gemini-pro",
		maxAttempts: 3,
		logger:      zap.NewNop(),
	}

	_, err := g.GenerateContent(context.Background(), "sys", "msg")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(chats.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(chats.calls))
	}
}

func TestGenerateJSONSetsSchema(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("m", textResponse(`{"score": 1, "reasoning": "x"}`), nil)

	g := &Generator{chats: chats, model: "m", logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), "", "prompt", matchSchema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := chats.calls[0].config
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("unexpected mime type: %q", cfg.ResponseMIMEType)
	}
	if cfg.ResponseSchema != matchSchema {
		t.Fatal("expected match schema to be passed through")
	}
	if cfg.SystemInstruction != nil {
		t.Fatal("did not expect system instruction for empty system prompt")
	}
}

func TestGeneratorRejectsEmptyResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("m", &genai.GenerateContentResponse{}, nil)

	g := &Generator{chats: chats, model: "m", logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "", "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGeneratorNotInitialized(t *testing.T) {
	var g *Generator
	if _, err := g.GenerateContent(context.Background(), "", "x"); err == nil {
		t.Fatal("expected error for nil generator")
	}
}
