package plan

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/subscription-billing/internal/transport"
)

type Handler struct {
	transport.BaseHandler
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{BaseHandler: transport.BaseHandler{Logger: logger}}
}

// GetPlans handles GET /api/v1/plans. The catalog is static config, so
// this is read-only by construction.
func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"plans": All()})
}
