package httpapi

import (
	"errors"
	"net/http"

	"github.com/spigell/workhive/internal/identity"
)

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) error {
	var req identity.SignUpRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	session, err := h.deps.Identity.SignUp(r.Context(), req)
	if err != nil {
		return authError(err)
	}
	return created(w, session)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) error {
	var req identity.SignInRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	session, err := h.deps.Identity.SignIn(r.Context(), req)
	if err != nil {
		return authError(err)
	}
	return ok(w, session)
}

// authError keeps the user-facing text of identity.Message and picks the
// status from the error kind.
func authError(err error) error {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, identity.ErrEmailInUse):
		status = http.StatusConflict
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrWrongPassword),
		errors.Is(err, identity.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, identity.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	return NewAppError(status, identity.Message(err), nil, err)
}
