package gemini

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/marketplace"
)

type stubConversation struct {
	system  string
	history []*genai.Content
	message string
}

func (s *stubConversation) Converse(_ context.Context, system string, history []*genai.Content, message string) (string, error) {
	s.system = system
	s.history = history
	s.message = message
	return "reply", nil
}

func TestAssistantReplyForwardsHistory(t *testing.T) {
	stub := &stubConversation{}
	assistant := NewAssistant(stub, nil)

	history := []ai.Turn{
		{Speaker: ai.SpeakerModel, Text: "Hello!"},
		{Speaker: ai.SpeakerUser, Text: "What is escrow?"},
	}

	reply, err := assistant.Reply(context.Background(), marketplace.RoleClient, history, "And fees?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "reply" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if len(stub.history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(stub.history))
	}
	if stub.history[0].Role != genai.RoleModel || stub.history[1].Role != genai.RoleUser {
		t.Fatalf("unexpected roles: %q, %q", stub.history[0].Role, stub.history[1].Role)
	}
	if stub.message != "And fees?" {
		t.Fatalf("unexpected message: %q", stub.message)
	}
	if !strings.Contains(stub.system, "hiring and project management") {
		t.Fatalf("expected client persona, got: %s", stub.system)
	}
}

func TestSystemInstructionForFreelancer(t *testing.T) {
	got := SystemInstruction(marketplace.RoleFreelancer)
	if !strings.Contains(got, "The user is a freelancer.") || !strings.Contains(got, "freelancing and career growth") {
		t.Fatalf("unexpected instruction: %s", got)
	}
}
