package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/identity"
	"github.com/spigell/workhive/internal/marketplace"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	claimsKey
)

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

func requestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.logger.Info("http access",
			zap.String("rid", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("resp_bytes", ww.BytesWritten()),
			zap.String("remote", r.RemoteAddr),
			zap.String("ua", r.UserAgent()),
		)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.Error("handler panic",
				zap.String("rid", requestIDFrom(r.Context())),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			writeJSON(w, http.StatusInternalServerError, MessageInternalServerError, nil)
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate accepts a bearer token, or a token query parameter for
// websocket clients that cannot set headers.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return h.wrapMiddleware(func(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
		token, found := bearerToken(r.Header.Get("Authorization"))
		if !found {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			return nil, NewAppError(http.StatusUnauthorized, MessageUnauthorized, nil, nil)
		}

		claims, err := h.deps.Tokens.Validate(token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				return nil, NewAppError(http.StatusUnauthorized, "Token expired", nil, err)
			}
			return nil, NewAppError(http.StatusUnauthorized, "Invalid token", nil, err)
		}

		return r.WithContext(context.WithValue(r.Context(), claimsKey, claims)), nil
	}, next)
}

func (h *Handler) requireRole(roles ...marketplace.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.wrapMiddleware(func(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
			claims := claimsFrom(r.Context())
			for _, role := range roles {
				if claims.Role == role {
					return r, nil
				}
			}
			return nil, NewAppError(http.StatusForbidden, MessageForbidden, nil, nil)
		}, next)
	}
}

// wrapMiddleware runs check before next and writes the envelope if it fails.
func (h *Handler) wrapMiddleware(check func(http.ResponseWriter, *http.Request) (*http.Request, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var passed *http.Request
		h.wrap(func(w http.ResponseWriter, r *http.Request) error {
			var err error
			passed, err = check(w, r)
			return err
		})(w, r)
		if passed != nil {
			next.ServeHTTP(w, passed)
		}
	})
}

func claimsFrom(ctx context.Context) identity.Claims {
	claims, _ := ctx.Value(claimsKey).(identity.Claims)
	return claims
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
