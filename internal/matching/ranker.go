package matching

import (
	"cmp"
	"slices"

	"github.com/spigell/workhive/internal/marketplace"
)

// Ranked is a candidate paired with its match result, if any.
type Ranked struct {
	Freelancer *marketplace.Freelancer  `json:"freelancer"`
	Match      *marketplace.MatchResult `json:"match,omitempty"`
}

// Score returns the match score, zero when the candidate was not scored.
func (r Ranked) Score() int {
	if r.Match == nil {
		return 0
	}
	return r.Match.Score
}

// Rank orders candidates by score, highest first. Candidates without a
// result count as zero. Ties keep their input order.
func Rank(candidates []*marketplace.Freelancer, results map[string]marketplace.MatchResult) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, f := range candidates {
		entry := Ranked{Freelancer: f}
		if res, ok := results[f.ID]; ok {
			entry.Match = &res
		}
		ranked = append(ranked, entry)
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	return ranked
}

// Candidates returns the freelancers in ranked order.
func Candidates(ranked []Ranked) []*marketplace.Freelancer {
	out := make([]*marketplace.Freelancer, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Freelancer)
	}
	return out
}
