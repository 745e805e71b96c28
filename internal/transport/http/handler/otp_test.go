package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/virtual-id-api/internal/application/otp"
	"github.com/virtual-id-api/internal/domain"
)

// --- mock ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) RequestCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockOTPSvc) VerifyCode(ctx context.Context, email, code string) (*otp.Verification, error) {
	args := m.Called(ctx, email, code)
	if v, _ := args.Get(0).(*otp.Verification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func otpRouter(svc otp.Service) http.Handler {
	h := NewOTPHandler(svc)
	r := chi.NewRouter()
	r.Post("/send-otp", h.SendOTP)
	r.Post("/verify-otp", h.VerifyOTP)
	return r
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

// --- send-otp ---

func TestSendOTP_Success(t *testing.T) {
	svc := new(mockOTPSvc)
	svc.On("RequestCode", mock.Anything, "student@tnstate.edu").Return(nil)

	rec := postJSON(t, otpRouter(svc), "/send-otp", `{"email":"student@tnstate.edu"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OTP sent successfully", decodeMessage(t, rec).Message)
	svc.AssertExpectations(t)
}

func TestSendOTP_MissingEmail(t *testing.T) {
	svc := new(mockOTPSvc)

	rec := postJSON(t, otpRouter(svc), "/send-otp", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decodeMessage(t, rec).Error)
	svc.AssertNotCalled(t, "RequestCode", mock.Anything, mock.Anything)
}

func TestSendOTP_InvalidBody(t *testing.T) {
	rec := postJSON(t, otpRouter(new(mockOTPSvc)), "/send-otp", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOTP_DeliveryFailure(t *testing.T) {
	svc := new(mockOTPSvc)
	svc.On("RequestCode", mock.Anything, "student@tnstate.edu").
		Return(fmt.Errorf("%w: sendgrid: status 401", domain.ErrDelivery))

	rec := postJSON(t, otpRouter(svc), "/send-otp", `{"email":"student@tnstate.edu"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeMessage(t, rec)
	assert.Equal(t, "Failed to send OTP", env.Error)
	assert.Contains(t, env.Details, "status 401")
}

// --- verify-otp ---

func TestVerifyOTP_Success(t *testing.T) {
	svc := new(mockOTPSvc)
	svc.On("VerifyCode", mock.Anything, "student@tnstate.edu", "123456").
		Return(&otp.Verification{Email: "student@tnstate.edu"}, nil)

	rec := postJSON(t, otpRouter(svc), "/verify-otp", `{"email":"student@tnstate.edu","otp":"123456"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var env VerifyEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "OTP verified successfully", env.Message)
	assert.Empty(t, env.Token)
	assert.Nil(t, env.ExpiresAt)
}

func TestVerifyOTP_NumericCodeWithToken(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	svc := new(mockOTPSvc)
	svc.On("VerifyCode", mock.Anything, "student@tnstate.edu", "123456").
		Return(&otp.Verification{Email: "student@tnstate.edu", Token: "signed", ExpiresAt: exp}, nil)

	rec := postJSON(t, otpRouter(svc), "/verify-otp", `{"email":"student@tnstate.edu","otp":123456}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var env VerifyEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "signed", env.Token)
	require.NotNil(t, env.ExpiresAt)
	assert.True(t, exp.Equal(*env.ExpiresAt))
}

func TestVerifyOTP_MissingCode(t *testing.T) {
	svc := new(mockOTPSvc)

	rec := postJSON(t, otpRouter(svc), "/verify-otp", `{"email":"student@tnstate.edu"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decodeMessage(t, rec).Error)
	svc.AssertNotCalled(t, "VerifyCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_Failures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{"not found", domain.ErrOTPNotFound, "No OTP found"},
		{"expired", domain.ErrOTPExpired, "OTP expired"},
		{"mismatch", fmt.Errorf("verify: %w", domain.ErrOTPMismatch), "Invalid OTP"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockOTPSvc)
			svc.On("VerifyCode", mock.Anything, "student@tnstate.edu", "000000").Return(nil, tc.err)

			rec := postJSON(t, otpRouter(svc), "/verify-otp", `{"email":"student@tnstate.edu","otp":"000000"}`)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.msg, decodeMessage(t, rec).Error)
		})
	}
}

func TestVerifyOTP_StoreFailure(t *testing.T) {
	svc := new(mockOTPSvc)
	svc.On("VerifyCode", mock.Anything, "student@tnstate.edu", "123456").Return(nil, errors.New("redis: connection refused"))

	rec := postJSON(t, otpRouter(svc), "/verify-otp", `{"email":"student@tnstate.edu","otp":"123456"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to verify OTP", decodeMessage(t, rec).Error)
}
