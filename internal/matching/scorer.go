package matching

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/marketplace"
)

const (
	// MockReasoning is returned when no model credential is configured.
	MockReasoning = "API Key missing. Mock reasoning: Skills align well with requirements."
	// FailedReasoning is returned when the model call fails or its reply is unusable.
	FailedReasoning = "AI Analysis failed."

	mockScoreFloor = 60
	mockScoreSpan  = 40
)

// Scorer turns a job/freelancer pair into a MatchResult. It never fails:
// without a matcher it produces a placeholder score, and model errors
// degrade to a zero score.
type Scorer struct {
	matcher ai.Matcher
	logger  *zap.Logger
	intn    func(n int) int
}

// NewScorer returns a scorer backed by matcher. A nil matcher means no
// credential is configured.
func NewScorer(matcher ai.Matcher, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{matcher: matcher, logger: logger, intn: rand.IntN}
}

// Mock reports whether the scorer runs without a model.
func (s *Scorer) Mock() bool {
	return s.matcher == nil
}

// Score rates one freelancer for job. It never fails: errors yield a zero score with FailedReasoning.
func (s *Scorer) Score(ctx context.Context, job *marketplace.Job, freelancer *marketplace.Freelancer) marketplace.MatchResult {
	result, _ := s.score(ctx, job, freelancer)
	return result
}

// score also reports whether the result came from the model, which is the
// only kind of result worth caching.
func (s *Scorer) score(ctx context.Context, job *marketplace.Job, freelancer *marketplace.Freelancer) (marketplace.MatchResult, bool) {
	result := marketplace.MatchResult{FreelancerID: freelancer.ID}

	if s.matcher == nil {
		result.Score = mockScoreFloor + s.intn(mockScoreSpan)
		result.Reasoning = MockReasoning
		return result, false
	}

	assessment, err := s.matcher.Evaluate(ctx, job, freelancer)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("match scoring failed",
				zap.String("job_id", job.ID),
				zap.String("freelancer_id", freelancer.ID),
				zap.Error(err),
			)
		}
		result.Reasoning = FailedReasoning
		return result, false
	}

	result.Score = assessment.Score
	result.Reasoning = assessment.Reasoning
	return result, true
}
