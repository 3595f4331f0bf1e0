package handlers

import (
	"net/http"

	"github.com/soundprediction/predicato/pkg/config"
)

// ConfigHandler serves GET /api/config.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler builds a ConfigHandler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Current handles GET /api/config: a redacted snapshot of the running
// configuration, for operational introspection.
func (h *ConfigHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Redacted())
}
