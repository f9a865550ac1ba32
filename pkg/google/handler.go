package google

import (
	"context"
	"net/http"

	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Syncer interface {
	SyncAll(ctx context.Context) (SyncResult, error)
}

type Handler struct {
	mirror Syncer
}

func NewHandler(mirror Syncer) *Handler {
	return &Handler{mirror}
}

// SyncAll godoc
// @Summary Push the whole schedule to the shared Google Calendar
// @Tags Integrations
// @Produce json
// @Success 200 {object} SyncResult
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 502 {object} rest.ErrorResponse "Google Calendar unavailable"
// @Router /api/integrations/google/sync [post]
// @Security XUserId
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	if _, err := user.RequireRole(r.Context(), user.RoleAdmin); err != nil {
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	result, err := h.mirror.SyncAll(r.Context())
	if err != nil {
		log.Errorf("Google Calendar sync failed: %v", err)
		rest.WriteError(w, http.StatusBadGateway, "Google Calendar unavailable", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}
