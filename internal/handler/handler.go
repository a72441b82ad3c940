// Package handler exposes the session stores over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"freshmart/internal/middleware"
	"freshmart/internal/model"
	"freshmart/internal/session"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// statusClientClosedRequest is the non-standard status for a request the
// client abandoned.
const statusClientClosedRequest = 499

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, notices []model.Notice, logger zerolog.Logger) {
	ev := logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Str("error", code).Int("status", status).Msg(message)
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message, Notices: notices})
}

// respondError maps err onto a status code. Anything that is not a domain
// error is reported as an internal error without its detail.
func respondError(w http.ResponseWriter, err error, notices []model.Notice, logger zerolog.Logger) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status := statusClientClosedRequest
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		logger.Debug().Err(err).Int("status", status).Msg("request abandoned")
		writeJSON(w, status, model.ErrorResponse{Error: model.ErrCodeRequestCancelled, Message: "request cancelled", Notices: notices})
		return
	}

	de, ok := model.AsDomainError(err)
	if !ok {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", notices, logger)
		return
	}
	writeError(w, statusFor(de), de.Code, de.Message, notices, logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidCoupon):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthenticated), errors.Is(err, model.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes the JSON request body into dst and writes a 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", nil, logger)
		return false
	}
	return true
}

// currentSession returns the session set by middleware.RequireSession.
func currentSession(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (*session.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing session", nil, logger)
		return nil, false
	}
	return s, true
}

// NoticesResponse is the body of mutations that return nothing else.
type NoticesResponse struct {
	Notices []model.Notice `json:"notices"`
}

func nonNil(n []model.Notice) []model.Notice {
	if n == nil {
		return []model.Notice{}
	}
	return n
}
