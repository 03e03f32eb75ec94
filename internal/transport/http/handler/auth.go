package handler

import (
	"encoding/json"
	"net/http"

	"github.com/JagadeshwaranK/MedPlusMart/internal/application/auth"
	"github.com/JagadeshwaranK/MedPlusMart/internal/pkg/validate"
)

// AuthHandler serves the passcode and federated login endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "Phone number is required")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid phone number")
		return
	}
	res, err := h.svc.SendOTP(r.Context(), req.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}
	env := SendOTPEnvelope{Success: true, Message: "OTP sent successfully", ExpiresAt: res.ExpiresAt}
	if res.Code != "" {
		env.OTP = &res.Code
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PhoneNumber == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "Phone number and OTP are required")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid phone number")
		return
	}
	sess, err := h.svc.VerifyOTP(r.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PhoneLoginEnvelope{Success: true, Token: sess.Token, User: sess.User})
}

func (h *AuthHandler) Federated(w http.ResponseWriter, r *http.Request) {
	var req auth.FederatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "No credential provided")
		return
	}
	sess, err := h.svc.FederatedLogin(r.Context(), req.Credential)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FederatedLoginEnvelope{Success: true, Token: sess.Token, User: sess.User})
}
