package handler

import (
	"context"
	"net/http"
	"time"

	"freshmart/internal/session"

	"github.com/rs/zerolog"
)

// SessionCreator starts sessions.
type SessionCreator interface {
	Create(ctx context.Context) (*session.Session, string, time.Time, error)
}

// SessionHandler issues session tokens.
type SessionHandler struct {
	sessions SessionCreator
	logger   zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions SessionCreator, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "session").Logger(),
	}
}

// SessionResponse carries a new session's bearer token.
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, token, expires, err := h.sessions.Create(r.Context())
	if err != nil {
		respondError(w, err, nil, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: s.ID,
		Token:     token,
		ExpiresAt: expires,
	})
}
