package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/virtual-id-api/internal/application/otp"
	"github.com/virtual-id-api/internal/pkg/validate"
)

// OTPHandler handles the send-otp and verify-otp endpoints.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// otpCode accepts the code as a JSON string or number.
type otpCode string

func (c *otpCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = otpCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("otp must be a string or number")
	}
	*c = otpCode(n.String())
	return nil
}

type verifyOTPRequest struct {
	Email string  `json:"email" validate:"required,email"`
	OTP   otpCode `json:"otp" validate:"required"`
}

func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing required fields", err.Error())
		return
	}
	if err := h.svc.RequestCode(r.Context(), req.Email); err != nil {
		httpError(w, err, "Failed to send OTP")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP sent successfully"})
}

func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing required fields", err.Error())
		return
	}
	v, err := h.svc.VerifyCode(r.Context(), req.Email, string(req.OTP))
	if err != nil {
		httpError(w, err, "Failed to verify OTP")
		return
	}
	resp := VerifyEnvelope{Message: "OTP verified successfully", Token: v.Token}
	if v.Token != "" {
		resp.ExpiresAt = &v.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}
