package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/chat"
	"github.com/spigell/workhive/internal/escrow"
	"github.com/spigell/workhive/internal/identity"
	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/matching"
	"github.com/spigell/workhive/internal/profile"
)

// Pinger reports whether a backing service answers. *cache.Redis satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API. Chat and Escrow may be nil, in which
// case their routes answer 503. A nil Cache is reported as disabled.
type Deps struct {
	Identity *identity.Service
	Tokens   *identity.Tokens
	Profiles profile.Store
	Matching *matching.Service
	Catalog  *marketplace.Freelancers
	Chat     *chat.Manager
	Escrow   *escrow.Registry
	Cache    Pinger
}

type Handler struct {
	deps   Deps
	logger *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case deps.Identity == nil:
		return nil, errors.New("identity service is required")
	case deps.Tokens == nil:
		return nil, errors.New("token issuer is required")
	case deps.Profiles == nil:
		return nil, errors.New("profile store is required")
	case deps.Matching == nil:
		return nil, errors.New("matching service is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = &marketplace.Freelancers{}
	}
	return &Handler{deps: deps, logger: logger}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestID, h.accessLog, h.recoverer)

	r.Get("/health", h.wrap(h.handleHealth))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.wrap(h.handleSignUp))
		r.Post("/signin", h.wrap(h.handleSignIn))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/profiles", func(r chi.Router) {
			r.With(h.requireRole(marketplace.RoleAdmin)).Get("/", h.wrap(h.handleListProfiles))
			r.Get("/me", h.wrap(h.handleGetProfile))
			r.Patch("/me", h.wrap(h.handleUpdateProfile))
			r.Get("/me/live", h.handleLiveProfile)
		})

		r.Get("/freelancers", h.wrap(h.handleFreelancers))
		r.Post("/matches", h.wrap(h.handleMatch))

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", h.wrap(h.handleOpenChat))
			r.Get("/{id}", h.wrap(h.handleGetChat))
			r.Post("/{id}/messages", h.wrap(h.handleSendChat))
			r.Delete("/{id}", h.wrap(h.handleCloseChat))
		})

		r.Route("/escrow", func(r chi.Router) {
			r.Post("/", h.wrap(h.handleOpenEscrow))
			r.Get("/{id}", h.wrap(h.handleGetEscrow))
			r.Post("/{id}/start", h.wrap(h.handleStartEscrow))
			r.Post("/{id}/success", h.wrap(h.handleEscrowSuccess))
			r.Post("/{id}/failure", h.wrap(h.handleEscrowFailure))
			r.Post("/{id}/abort", h.wrap(h.handleAbortEscrow))
		})

		r.Get("/i18n", h.wrap(h.handleTranslations))
		r.With(h.requireRole(marketplace.RoleAdmin)).Put("/i18n/locale", h.wrap(h.handleSetLocale))
	})

	r.NotFound(h.wrap(func(http.ResponseWriter, *http.Request) error {
		return NewAppError(http.StatusNotFound, MessageNotFound, nil, nil)
	}))
	r.MethodNotAllowed(h.wrap(func(http.ResponseWriter, *http.Request) error {
		return NewAppError(http.StatusMethodNotAllowed, "Method not allowed", nil, nil)
	}))

	return r
}

const (
	cacheDisabled    = "disabled"
	cacheOK          = "ok"
	cacheUnavailable = "unavailable"

	healthPingTimeout = 2 * time.Second
)

type healthResponse struct {
	Status    string `json:"status"`
	MatchMode string `json:"matchMode"`
	Catalog   int    `json:"catalog"`
	Cache     string `json:"cache"`
}

// handleHealth stays 200 when the cache is down: matching works without it.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) error {
	return ok(w, healthResponse{
		Status:    "ok",
		MatchMode: matchMode(h.deps.Matching),
		Catalog:   h.deps.Catalog.Len(),
		Cache:     h.cacheState(r.Context()),
	})
}

func (h *Handler) cacheState(ctx context.Context) string {
	if h.deps.Cache == nil {
		return cacheDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := h.deps.Cache.Ping(ctx); err != nil {
		h.logger.Warn("cache ping failed", zap.Error(err))
		return cacheUnavailable
	}
	return cacheOK
}
