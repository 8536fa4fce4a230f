package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/marketplace"
)

type conversationGenerator interface {
	Converse(ctx context.Context, system string, history []*genai.Content, message string) (string, error)
}

// Assistant is the platform help bot backed by Gemini.
type Assistant struct {
	generator conversationGenerator
	logger    *zap.Logger
}

func NewAssistant(generator conversationGenerator, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{generator: generator, logger: logger}
}

func (a *Assistant) Reply(ctx context.Context, role marketplace.Role, history []ai.Turn, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		content := &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: turn.Text}},
		}
		if turn.Speaker == ai.SpeakerModel {
			content.Role = genai.RoleModel
		}
		contents = append(contents, content)
	}

	a.logger.Debug("assistant request",
		zap.String("role", string(role)),
		zap.Int("history", len(contents)),
	)

	return a.generator.Converse(ctx, SystemInstruction(role), contents, message)
}

// SystemInstruction returns the assistant persona for the given user role.
func SystemInstruction(role marketplace.Role) string {
	advice := "freelancing and career growth"
	if role == marketplace.RoleClient {
		advice = "hiring and project management"
	}

	return fmt.Sprintf(`You are HiveMind, an intelligent AI assistant for the Work Hive platform. The user is a %s.
Your goal is to help them navigate the platform, understand features like Escrow and AI Matching, and provide general advice on %s.
Keep your responses concise, professional, and helpful. Do not provide code unless explicitly asked.`, role, advice)
}
