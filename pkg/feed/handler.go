package feed

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(ctx context.Context, reminderMinutes int) (string, error)
}

type Runner interface {
	Run(ctx context.Context, sourceId string) (schedule.ImportResult, error)
}

type Handler struct {
	exporter Renderer
	runner   Runner
}

func NewHandler(exporter Renderer, runner Runner) *Handler {
	return &Handler{
		exporter: exporter,
		runner:   runner,
	}
}

// GetFeed godoc
// @Summary Schedule as an iCalendar feed
// @Tags Schedule
// @Produce text/calendar
// @Param reminder query int false "Minutes before each event for a reminder alarm"
// @Success 200 {string} string "iCalendar feed"
// @Failure 400 {object} rest.ErrorResponse "Invalid reminder"
// @Router /api/schedule/feed.ics [get]
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	reminder := 0
	if reminderString := r.URL.Query().Get("reminder"); reminderString != "" {
		parsed, err := strconv.Atoi(reminderString)
		if err != nil || parsed < 0 || parsed > 24*60 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid reminder", "'reminder' must be between 0 and 1440 minutes")
			return
		}
		reminder = parsed
	}

	feed, err := h.exporter.Render(r.Context(), reminder)
	if err != nil {
		log.Errorf("failed to render feed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="schedule.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(feed)); err != nil {
		log.Errorf("failed to write feed: %v", err)
	}
}

// RunImport godoc
// @Summary Import a configured iCalendar source now
// @Tags Schedule
// @Produce json
// @Param sourceId path string true "Import source ID"
// @Success 200 {object} schedule.ImportResult
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 404 {object} rest.ErrorResponse "Unknown source"
// @Failure 502 {object} rest.ErrorResponse "Import failed"
// @Router /api/schedule/import/{sourceId} [post]
// @Security XUserId
func (h *Handler) RunImport(w http.ResponseWriter, r *http.Request) {
	if _, err := user.RequireRole(r.Context(), user.RoleAdmin); err != nil {
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	sourceId := mux.Vars(r)["sourceId"]
	result, err := h.runner.Run(r.Context(), sourceId)
	if err != nil {
		if errors.Is(err, ErrUnknownSource) {
			rest.WriteError(w, http.StatusNotFound, "Unknown source", sourceId)
			return
		}
		log.Errorf("import of %s failed: %v", sourceId, err)
		rest.WriteError(w, http.StatusBadGateway, "Import failed", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}
