package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/escrow"
	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/profile"
)

func escrowError(err error) error {
	switch {
	case errors.Is(err, escrow.ErrInvalidTransition):
		return NewAppError(http.StatusConflict, err.Error(), nil, err)
	case errors.Is(err, escrow.ErrInvalidAmount):
		return NewAppError(http.StatusBadRequest, "Amount must be a positive number of rupees", nil, err)
	case errors.Is(err, escrow.ErrFlowNotFound):
		return NewAppError(http.StatusNotFound, "Escrow flow not found", nil, err)
	default:
		return err
	}
}

func (h *Handler) escrowRegistry() (*escrow.Registry, error) {
	if h.deps.Escrow == nil {
		return nil, NewAppError(http.StatusServiceUnavailable, "Payments are not available", nil, nil)
	}
	return h.deps.Escrow, nil
}

// ownedFlow returns the flow from the path if the caller opened it. Admins
// can see every flow.
func (h *Handler) ownedFlow(r *http.Request) (*escrow.Flow, error) {
	reg, err := h.escrowRegistry()
	if err != nil {
		return nil, err
	}
	flow, err := reg.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, escrowError(err)
	}
	claims := claimsFrom(r.Context())
	if flow.Owner() != claims.UID() && claims.Role != marketplace.RoleAdmin {
		return nil, escrowError(escrow.ErrFlowNotFound)
	}
	return flow, nil
}

type openEscrowRequest struct {
	Amount      int    `json:"amount"`
	Beneficiary string `json:"beneficiary"`
}

func (h *Handler) handleOpenEscrow(w http.ResponseWriter, r *http.Request) error {
	reg, err := h.escrowRegistry()
	if err != nil {
		return err
	}

	var req openEscrowRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	flow, err := reg.Open(claimsFrom(r.Context()).UID(), req.Amount, req.Beneficiary)
	if err != nil {
		return escrowError(err)
	}
	return created(w, flow.View())
}

func (h *Handler) handleGetEscrow(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.ownedFlow(r)
	if err != nil {
		return err
	}
	return ok(w, flow.View())
}

type startEscrowRequest struct {
	Contact string `json:"contact"`
}

// handleStartEscrow prefills the checkout with the caller's profile. The body
// is optional and only carries a phone contact.
func (h *Handler) handleStartEscrow(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.ownedFlow(r)
	if err != nil {
		return err
	}

	var req startEscrowRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			return err
		}
	}

	claims := claimsFrom(r.Context())
	payer := escrow.Payer{Email: claims.Email, Contact: strings.TrimSpace(req.Contact)}
	p, err := h.deps.Profiles.Get(r.Context(), claims.UID())
	switch {
	case err == nil:
		payer.Name = p.DisplayName
		if p.Email != "" {
			payer.Email = p.Email
		}
	case errors.Is(err, profile.ErrNotFound):
	default:
		h.logger.Warn("payer profile unavailable", zap.String("uid", claims.UID()), zap.Error(err))
	}

	if _, err := flow.Start(r.Context(), payer); err != nil {
		if errors.Is(err, escrow.ErrInvalidTransition) {
			return escrowError(err)
		}
		return NewAppError(http.StatusBadGateway, "Payment gateway is unavailable. Please try again.", flow.View(), err)
	}
	return ok(w, flow.View())
}

type escrowSuccessRequest struct {
	PaymentID string `json:"paymentId"`
}

func (h *Handler) handleEscrowSuccess(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.ownedFlow(r)
	if err != nil {
		return err
	}

	var req escrowSuccessRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		return NewAppError(http.StatusBadRequest, "paymentId is required", nil, nil)
	}

	if err := flow.Succeed(req.PaymentID); err != nil {
		return escrowError(err)
	}
	return ok(w, flow.View())
}

type escrowFailureRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleEscrowFailure(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.ownedFlow(r)
	if err != nil {
		return err
	}

	var req escrowFailureRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	if err := flow.Fail(req.Reason); err != nil {
		return escrowError(err)
	}
	return ok(w, flow.View())
}

func (h *Handler) handleAbortEscrow(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.ownedFlow(r)
	if err != nil {
		return err
	}
	if err := flow.Abort(); err != nil {
		return escrowError(err)
	}
	return ok(w, flow.View())
}
