package handler

import (
	"context"
	"net/http"

	"freshmart/internal/model"

	"github.com/rs/zerolog"
)

// AuthHandler handles phone sign-in and the signed-in profile.
type AuthHandler struct {
	logger zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		logger: logger.With().Str("handler", "auth").Logger(),
	}
}

// SendCodeRequest asks for a one-time code.
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// VerifyRequest submits a one-time code.
type VerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// ProfileRequest updates the display name.
type ProfileRequest struct {
	Name string `json:"name"`
}

// UserResponse carries the signed-in user.
type UserResponse struct {
	User    model.User     `json:"user"`
	Notices []model.Notice `json:"notices"`
}

// SendCode handles POST /api/auth/otp.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	notices, err := s.SendCode(r.Context(), req.Phone)
	if err != nil {
		respondError(w, err, notices, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, NoticesResponse{Notices: nonNil(notices)})
}

// Verify handles POST /api/auth/verify.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	u, notices, err := s.Verify(r.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(w, err, notices, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: u, Notices: nonNil(notices)})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}

	var (
		u        model.User
		signedIn bool
	)
	s.Do(func() {
		u, signedIn = s.Account.User()
	})
	if !signedIn {
		respondError(w, model.ErrUnauthenticated, nil, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: u, Notices: []model.Notice{}})
}

// UpdateProfile handles PUT /api/auth/me.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	var (
		u   model.User
		err error
	)
	notices := s.Do(func() {
		u, err = s.Account.UpdateProfile(ctx, req.Name)
	})
	if err != nil {
		respondError(w, err, notices, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: u, Notices: nonNil(notices)})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.logger)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	notices := s.Do(func() {
		s.Account.Logout(ctx)
	})
	writeJSON(w, http.StatusOK, NoticesResponse{Notices: nonNil(notices)})
}
