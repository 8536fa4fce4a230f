package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/spigell/workhive/internal/filtering"
	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/matching"
)

const (
	modeModel = "model"
	modeMock  = "mock"
)

func matchMode(s *matching.Service) string {
	if s.Mock() {
		return modeMock
	}
	return modeModel
}

// handleFreelancers lists the catalog narrowed by the language, location and
// verified query parameters.
func (h *Handler) handleFreelancers(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	criteria := &filtering.Config{
		Language: q.Get("language"),
		Location: q.Get("location"),
	}
	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			return NewAppError(http.StatusBadRequest, "verified must be a boolean", nil, err)
		}
		criteria.VerifiedOnly = verified
	}

	found, err := h.deps.Matching.Discover(r.Context(), nil, h.deps.Catalog, criteria)
	if err != nil {
		return matchError(err)
	}
	return ok(w, matching.Candidates(found.Results))
}

type matchRequest struct {
	Job     marketplace.JobDraft `json:"job"`
	Filters filtering.Config     `json:"filters"`
}

type matchResponse struct {
	Job     *marketplace.Job   `json:"job"`
	Mode    string             `json:"mode"`
	Results []matching.Ranked  `json:"results"`
	Filters []filtering.Status `json:"filters"`
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) error {
	var req matchRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	job, err := marketplace.NewJob(req.Job)
	if err != nil {
		return NewAppError(http.StatusBadRequest, err.Error(), nil, err)
	}

	found, err := h.deps.Matching.Discover(r.Context(), job, h.deps.Catalog, &req.Filters)
	if err != nil {
		return matchError(err)
	}

	return ok(w, matchResponse{
		Job:     job,
		Mode:    matchMode(h.deps.Matching),
		Results: found.Results,
		Filters: found.Filters,
	})
}

func matchError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(http.StatusServiceUnavailable, "Matching was cancelled", nil, err)
	}
	return err
}
