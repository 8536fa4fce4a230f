package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/profile"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

func profileError(err error) error {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return NewAppError(http.StatusNotFound, "Profile not found", nil, err)
	case errors.Is(err, profile.ErrInvalidPatch):
		return NewAppError(http.StatusBadRequest, err.Error(), nil, err)
	default:
		return err
	}
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) error {
	p, err := h.deps.Profiles.Get(r.Context(), claimsFrom(r.Context()).UID())
	if err != nil {
		return profileError(err)
	}
	return ok(w, p)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	var patch profile.Patch
	if err := decode(r, &patch); err != nil {
		return err
	}

	p, err := h.deps.Profiles.Update(r.Context(), claimsFrom(r.Context()).UID(), patch)
	if err != nil {
		return profileError(err)
	}
	return ok(w, p)
}

type profileList struct {
	Profiles []*marketplace.UserProfile `json:"profiles"`
	Counts   map[marketplace.Role]int   `json:"counts"`
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) error {
	profiles, err := h.deps.Profiles.List(r.Context())
	if err != nil {
		return err
	}
	return ok(w, profileList{Profiles: profiles, Counts: profile.CountRoles(profiles)})
}

// liveFrame is one websocket message of the profile stream.
type liveFrame struct {
	Exists  bool                     `json:"exists"`
	Profile *marketplace.UserProfile `json:"profile,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// handleLiveProfile streams the caller's profile until either side closes
// the connection.
func (h *Handler) handleLiveProfile(w http.ResponseWriter, r *http.Request) {
	uid := claimsFrom(r.Context()).UID()
	logger := h.logger.With(zap.String("rid", requestIDFrom(r.Context())), zap.String("uid", uid))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.deps.Profiles.Subscribe(ctx, uid)
	if err != nil {
		logger.Error("profile subscription failed", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(liveWriteWait))
		return
	}
	defer sub.Unsubscribe()

	// The client only sends control frames; a read error means it is gone.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	logger.Debug("live profile stream opened")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("live profile stream closed")
			return
		case snap, open := <-sub.Updates():
			if !open {
				return
			}
			frame := liveFrame{Exists: snap.Exists, Profile: snap.Profile}
			if snap.Err != nil {
				frame.Error = "profile unavailable"
				logger.Warn("profile snapshot failed", zap.Error(snap.Err))
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				logger.Debug("live profile write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
