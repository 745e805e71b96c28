package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/virtual-id-api/internal/application/idcard"
	"github.com/virtual-id-api/internal/domain"
	"github.com/virtual-id-api/internal/pkg/logging"
	"github.com/virtual-id-api/internal/pkg/validate"
	"github.com/virtual-id-api/internal/transport/http/middleware"
)

// IDCardHandler handles ID card delivery and pass downloads.
type IDCardHandler struct {
	svc            idcard.Service
	requireSession bool
}

// NewIDCardHandler builds the handler. When requireSession is set, send-id-card
// only accepts requests whose verification token subject matches the email.
func NewIDCardHandler(svc idcard.Service, requireSession bool) *IDCardHandler {
	return &IDCardHandler{svc: svc, requireSession: requireSession}
}

type sendIDCardRequest struct {
	Email       string                 `json:"email" validate:"required,email"`
	StudentData *domain.StudentProfile `json:"studentData" validate:"required"`
}

func (h *IDCardHandler) SendIDCard(w http.ResponseWriter, r *http.Request) {
	var req sendIDCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "Missing required fields", err.Error())
		return
	}

	if h.requireSession {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || !strings.EqualFold(claims.Subject, strings.TrimSpace(req.Email)) {
			writeError(w, http.StatusUnauthorized, "verified session required")
			return
		}
	}

	res, err := h.svc.SendIDCard(r.Context(), req.Email, *req.StudentData, r.UserAgent())
	if err != nil {
		httpError(w, err, "Failed to send ID card")
		return
	}
	writeJSON(w, http.StatusOK, IDCardEnvelope{
		Message:    "ID card sent successfully",
		PassData:   res.PassData,
		WalletLink: res.WalletLink,
		Platform:   string(res.Platform),
	})
}

func (h *IDCardHandler) DownloadPass(w http.ResponseWriter, r *http.Request) {
	passID := chi.URLParam(r, "passId")
	rc, err := h.svc.DownloadPass(r.Context(), passID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pass not found")
			return
		}
		httpError(w, err, "Failed to download pass")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/vnd.apple.pkpass")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "student-id.pkpass"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("pass download interrupted", "pass_id", passID, "err", err)
	}
}
