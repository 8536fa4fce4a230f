package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Envelope wraps every JSON response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Status: status, Message: message, Data: data})
}

func ok(w http.ResponseWriter, data any) error {
	writeJSON(w, http.StatusOK, MessageOK, data)
	return nil
}

func created(w http.ResponseWriter, data any) error {
	writeJSON(w, http.StatusCreated, MessageCreated, data)
	return nil
}

// apiFunc is a handler that reports failures by returning them.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) wrap(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		status, msg, data := normalizeError(err)
		if status >= 500 {
			h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		} else {
			h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
		}
		writeJSON(w, status, msg, data)
	}
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAppError(http.StatusBadRequest, "Request body is required", nil, err)
		}
		return NewAppError(http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err), nil, err)
	}
	return nil
}
