package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/virtual-id-api/internal/application/idcard"
	"github.com/virtual-id-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// VerifyEnvelope wraps a successful OTP verification.
type VerifyEnvelope struct {
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IDCardEnvelope wraps a successful send-id-card response.
type IDCardEnvelope struct {
	Message    string          `json:"message"`
	PassData   idcard.PassData `json:"passData"`
	WalletLink string          `json:"walletLink,omitempty"`
	Platform   string          `json:"platform,omitempty"`
}

// TestEnvelope reports which required integrations are configured.
type TestEnvelope struct {
	Status      string          `json:"status"`
	Environment map[string]bool `json:"environment"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, Details: details})
}

// httpError maps domain errors to status codes. fallback is the public
// message used for 5xx responses; the wrapped error goes to details.
func httpError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrOTPNotFound), errors.Is(err, domain.ErrOTPExpired), errors.Is(err, domain.ErrOTPMismatch):
		writeError(w, http.StatusBadRequest, otpMessage(err))
	case errors.Is(err, domain.ErrBadRequest):
		writeErrorDetails(w, http.StatusBadRequest, "Missing required fields", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrDelivery):
		writeErrorDetails(w, http.StatusInternalServerError, fallback, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		writeErrorDetails(w, http.StatusBadGateway, fallback, err.Error())
	default:
		writeErrorDetails(w, http.StatusInternalServerError, fallback, err.Error())
	}
}

// otpMessage returns the sentinel's own text ("No OTP found", "OTP expired", "Invalid OTP").
func otpMessage(err error) string {
	for _, target := range []error{domain.ErrOTPNotFound, domain.ErrOTPExpired, domain.ErrOTPMismatch} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
