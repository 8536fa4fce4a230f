package ai

import (
	"context"

	"github.com/spigell/workhive/internal/marketplace"
)

// Assessment is the structured verdict of a language model on a job/freelancer pair.
type Assessment struct {
	Score     int
	Reasoning string
	Raw       string
}

type Matcher interface {
	Evaluate(ctx context.Context, job *marketplace.Job, freelancer *marketplace.Freelancer) (*Assessment, error)
}

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Turn is one message of a conversation transcript.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Assistant answers free-text questions for a user of the given role.
// History holds the earlier turns, oldest first, without the new message.
type Assistant interface {
	Reply(ctx context.Context, role marketplace.Role, history []Turn, message string) (string, error)
}
