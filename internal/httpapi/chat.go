package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spigell/workhive/internal/chat"
	"github.com/spigell/workhive/internal/marketplace"
)

type chatView struct {
	ID         string           `json:"id"`
	Role       marketplace.Role `json:"role"`
	Transcript []chat.Message   `json:"transcript"`
}

func viewOf(s *chat.Session) chatView {
	return chatView{ID: s.ID(), Role: s.Role(), Transcript: s.Transcript()}
}

func (h *Handler) chatManager() (*chat.Manager, error) {
	if h.deps.Chat == nil {
		return nil, NewAppError(http.StatusServiceUnavailable, "Chat is not available", nil, nil)
	}
	return h.deps.Chat, nil
}

// ownedSession returns the session from the path if it belongs to the caller.
// Foreign sessions are reported as missing.
func (h *Handler) ownedSession(r *http.Request) (*chat.Session, error) {
	m, err := h.chatManager()
	if err != nil {
		return nil, err
	}
	s, err := m.Get(chi.URLParam(r, "id"))
	if err != nil || s.Owner() != claimsFrom(r.Context()).UID() {
		return nil, NewAppError(http.StatusNotFound, "Chat session not found", nil, err)
	}
	return s, nil
}

func (h *Handler) handleOpenChat(w http.ResponseWriter, r *http.Request) error {
	m, err := h.chatManager()
	if err != nil {
		return err
	}
	claims := claimsFrom(r.Context())
	return created(w, viewOf(m.Open(claims.UID(), claims.Role)))
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) error {
	s, err := h.ownedSession(r)
	if err != nil {
		return err
	}
	return ok(w, viewOf(s))
}

type chatMessageRequest struct {
	Text string `json:"text"`
}

type chatReply struct {
	Reply   chat.Message `json:"reply"`
	Session chatView     `json:"session"`
}

func (h *Handler) handleSendChat(w http.ResponseWriter, r *http.Request) error {
	s, err := h.ownedSession(r)
	if err != nil {
		return err
	}

	var req chatMessageRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	reply, err := h.deps.Chat.Send(r.Context(), s.ID(), req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return NewAppError(http.StatusBadRequest, "Message must not be empty", nil, err)
	case errors.Is(err, chat.ErrSessionNotFound):
		return NewAppError(http.StatusNotFound, "Chat session not found", nil, err)
	case err != nil:
		return err
	}

	return ok(w, chatReply{Reply: reply, Session: viewOf(s)})
}

func (h *Handler) handleCloseChat(w http.ResponseWriter, r *http.Request) error {
	s, err := h.ownedSession(r)
	if err != nil {
		return err
	}
	if err := h.deps.Chat.Close(s.ID()); err != nil && !errors.Is(err, chat.ErrSessionNotFound) {
		return err
	}
	return ok(w, nil)
}
