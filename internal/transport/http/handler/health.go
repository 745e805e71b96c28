package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/virtual-id-api/internal/config"
)

// HealthHandler handles health-check and test endpoints.
type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler { return &HealthHandler{cfg: cfg} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusBadRequest, "unknown action")
}

// Test reports whether each required integration has its settings, never the values.
func (h *HealthHandler) Test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TestEnvelope{
		Status: "Backend is working!",
		Environment: map[string]bool{
			"sendgrid_api":   h.cfg.SendGridAPIKey != "",
			"sendgrid_email": h.cfg.MailFrom != "",
			"pass2u_api":     h.cfg.Pass2UAPIKey != "",
			"pass2u_model":   h.cfg.Pass2UModelID != "",
		},
	})
}
