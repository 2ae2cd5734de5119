package api

import (
	"net/http"
	"strconv"

	"github.com/phrazzld/coursegen/internal/api/shared"
	"github.com/phrazzld/coursegen/internal/generation"
	"github.com/phrazzld/coursegen/internal/service"
)

// ProvidersResponse lists the configured providers.
type ProvidersResponse struct {
	Providers []generation.ProviderStatus `json:"providers"`
}

// ProviderHandler reports provider availability.
type ProviderHandler struct {
	service service.GenerationService
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(svc service.GenerationService) *ProviderHandler {
	return &ProviderHandler{service: svc}
}

// ListProviders handles GET /api/providers. With ?probe=true every
// available provider is health-checked first.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	probe := false
	if raw := r.URL.Query().Get("probe"); raw != "" {
		var err error
		if probe, err = strconv.ParseBool(raw); err != nil {
			respondInvalid(w, r, "Invalid probe: must be a boolean", err)
			return
		}
	}

	statuses := h.service.ProviderStatuses(r.Context(), probe)
	shared.RespondWithJSON(w, r, http.StatusOK, ProvidersResponse{Providers: statuses})
}
