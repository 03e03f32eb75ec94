package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JagadeshwaranK/MedPlusMart/internal/application/auth"
	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
)

// httpError maps a service error to a status code and a client-safe message.
// Anything unrecognised is logged and reported as a 500.
func httpError(w http.ResponseWriter, err error) {
	var invalid *auth.InvalidCodeError
	switch {
	case errors.As(err, &invalid):
		left := invalid.AttemptsLeft
		writeJSON(w, http.StatusUnauthorized, MessageEnvelope{Message: "Invalid OTP", AttemptsLeft: &left})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "OTP not found or expired")
	case errors.Is(err, domain.ErrAttemptsExceeded):
		writeError(w, http.StatusTooManyRequests, "Too many attempts. Please request a new OTP.")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusUnauthorized, "OTP expired")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Authentication failed")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
