package marketplace

// MatchResult is the compatibility of one freelancer with one job.
// Score is expected in 0-100 but is taken as reported by the model.
type MatchResult struct {
	FreelancerID string `json:"freelancerId"`
	Score        int    `json:"score"`
	Reasoning    string `json:"reasoning"`
}
