package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
)

// MessageEnvelope is the generic response wrapper. Every error body uses it.
type MessageEnvelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AttemptsLeft *int   `json:"attemptsLeft,omitempty"`
}

// SendOTPEnvelope answers a passcode request. OTP is present only outside production.
type SendOTPEnvelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	OTP       *string   `json:"otp"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PhoneLoginEnvelope wraps a successful passcode login.
type PhoneLoginEnvelope struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    domain.PhoneUser `json:"user"`
}

// FederatedLoginEnvelope wraps a successful federated login.
type FederatedLoginEnvelope struct {
	Success bool            `json:"success"`
	Token   string          `json:"token"`
	User    domain.Identity `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Message: msg})
}
