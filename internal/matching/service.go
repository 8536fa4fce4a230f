package matching

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/workhive/internal/filtering"
	"github.com/spigell/workhive/internal/marketplace"
)

// ResultCache stores match results between runs.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Options struct {
	// Concurrency limits in-flight scoring requests. Zero means one request
	// per candidate at once.
	Concurrency int
	CacheTTL    time.Duration
}

type Service struct {
	scorer *Scorer
	cache  ResultCache
	opts   Options
	logger *zap.Logger
}

// NewService creates the matching service. cache may be nil.
func NewService(scorer *Scorer, cache ResultCache, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = NewScorer(nil, logger)
	}
	return &Service{scorer: scorer, cache: cache, opts: opts, logger: logger}
}

// Mock reports whether scores are placeholders because no model is configured.
func (s *Service) Mock() bool {
	return s.scorer.Mock()
}

func cacheKey(job *marketplace.Job, freelancerID string) string {
	return "match:" + job.Fingerprint() + ":" + freelancerID
}

// Match scores every candidate against job concurrently and returns the
// results keyed by freelancer id once all of them have completed. If ctx
// ends first, the outstanding requests are abandoned and the context error
// is returned without results.
func (s *Service) Match(ctx context.Context, job *marketplace.Job, candidates []*marketplace.Freelancer) (map[string]marketplace.MatchResult, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]marketplace.MatchResult, len(candidates))
		group   errgroup.Group
	)
	if s.opts.Concurrency > 0 {
		group.SetLimit(s.opts.Concurrency)
	}

	for _, candidate := range candidates {
		group.Go(func() error {
			res := s.scoreCached(ctx, job, candidate)
			mu.Lock()
			results[candidate.ID] = res
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("matching completed",
		zap.String("job_id", job.ID),
		zap.Int("candidates", len(candidates)),
	)

	return results, nil
}

func (s *Service) scoreCached(ctx context.Context, job *marketplace.Job, f *marketplace.Freelancer) marketplace.MatchResult {
	if s.cache == nil || s.scorer.Mock() {
		return s.scorer.Score(ctx, job, f)
	}

	key := cacheKey(job, f.ID)
	var cached marketplace.MatchResult
	found, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.logger.Debug("match cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return cached
	}

	res, fromModel := s.scorer.score(ctx, job, f)
	if fromModel {
		if err := s.cache.SetJSON(ctx, key, res, s.opts.CacheTTL); err != nil {
			s.logger.Debug("match cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res
}

// Discovery is the outcome of Discover: the ranked survivors and the state
// of every filter step that narrowed them.
type Discovery struct {
	Results []Ranked
	Filters []filtering.Status
}

// Discover narrows the catalog with criteria and ranks the survivors. With a
// job the survivors are scored first; without one they keep catalog order.
func (s *Service) Discover(ctx context.Context, job *marketplace.Job, catalog *marketplace.Freelancers, criteria *filtering.Config) (*Discovery, error) {
	steps := filtering.ForCriteria(criteria)
	visible, err := filtering.Run(ctx, criteria, filtering.Deps{Logger: s.logger}, steps, catalog)
	if err != nil {
		return nil, err
	}

	out := &Discovery{Filters: filtering.Describe(steps)}
	if job == nil {
		out.Results = Rank(visible.Items, nil)
		return out, nil
	}

	results, err := s.Match(ctx, job, visible.Items)
	if err != nil {
		return nil, err
	}

	out.Results = Rank(visible.Items, results)
	return out, nil
}
