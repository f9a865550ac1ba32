package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

const defaultUpNextLimit = 3

type EventDTO struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	EventType   string    `json:"eventType"`
	Imported    bool      `json:"imported"`
}

type EventDetailsDTO struct {
	EventDTO
	TimeRange  string `json:"timeRange"`
	Color      string `json:"color"`
	Accent     string `json:"accent"`
	PreviousId string `json:"previousId,omitempty"`
	NextId     string `json:"nextId,omitempty"`
}

type DayDTO struct {
	Date   string     `json:"date"`
	Events []EventDTO `json:"events"`
}

type NowDTO struct {
	Happening []EventDTO `json:"happening"`
	UpNext    []EventDTO `json:"upNext"`
}

type EventTypeDTO struct {
	Type   string `json:"type"`
	Color  string `json:"color"`
	Accent string `json:"accent"`
}

type Handler struct {
	service  Service
	renderer Renderer
	venue    *time.Location
}

func NewHandler(service Service, renderer Renderer, venue *time.Location) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
		venue:    venue,
	}
}

// ListEvents godoc
// @Summary List schedule events
// @Tags Schedule
// @Produce json
// @Param types query string false "Comma separated event types"
// @Param q query string false "Text search in name, description and location"
// @Param favorites query bool false "Only the current user's favorites"
// @Success 200 {array} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid filter"
// @Router /api/schedule/event [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	events, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTOs(events))
}

// GetEvent godoc
// @Summary Get a schedule event with its neighbours on the same day
// @Tags Schedule
// @Produce json
// @Param id path string true "Event ID"
// @Param tz query string false "central (default) or an IANA timezone"
// @Success 200 {object} EventDetailsDTO
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/schedule/event/{id} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	loc, err := ResolveLocation(r.URL.Query().Get("tz"), h.venue)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid timezone", err.Error())
		return
	}
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}

	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	days, err := h.service.Days(r.Context(), filter, loc)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	colors := Palette[event.EventType]
	details := EventDetailsDTO{
		EventDTO:  eventToDTO(event),
		TimeRange: FormatEventTimeRange(event.StartDate.In(loc), event.EndDate.In(loc)),
		Color:     colors.Class,
		Accent:    colors.Accent,
	}
	for _, day := range days {
		prev, next := Neighbours(day.Events, id)
		if prev != nil {
			details.PreviousId = prev.ID.String()
		}
		if next != nil {
			details.NextId = next.ID.String()
		}
	}
	rest.WriteJSON(w, http.StatusOK, details)
}

// CreateEvent godoc
// @Summary Create a schedule event
// @Tags Schedule
// @Accept json
// @Produce json
// @Param event body EventDTO true "Event"
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Router /api/schedule/event [post]
// @Security XUserId
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	created, err := h.service.CreateEvent(r.Context(), dtoToEvent(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(created))
}

// UpdateEvent godoc
// @Summary Update a schedule event
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param event body EventDTO true "Event"
// @Success 200 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/schedule/event/{id} [put]
// @Security XUserId
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	var dto EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	event := dtoToEvent(dto)
	event.ID = id

	updated, err := h.service.UpdateEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(updated))
}

// DeleteEvent godoc
// @Summary Delete a schedule event
// @Tags Schedule
// @Param id path string true "Event ID"
// @Success 204
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/schedule/event/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Days godoc
// @Summary Schedule grouped by day
// @Tags Schedule
// @Produce json
// @Param tz query string false "central (default) or an IANA timezone"
// @Success 200 {array} DayDTO
// @Router /api/schedule/days [get]
func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	days, ok := h.daysFromRequest(w, r)
	if !ok {
		return
	}
	dtos := make([]DayDTO, 0, len(days))
	for _, day := range days {
		dtos = append(dtos, DayDTO{Date: day.Key(), Events: eventsToDTOs(day.Events)})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Now godoc
// @Summary Events happening now and up next
// @Tags Schedule
// @Produce json
// @Param limit query int false "Number of upcoming events" default(3)
// @Success 200 {object} NowDTO
// @Router /api/schedule/now [get]
func (h *Handler) Now(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpNextLimit
	if limitString := r.URL.Query().Get("limit"); limitString != "" {
		parsed, err := strconv.Atoi(limitString)
		if err != nil || parsed < 0 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid limit", "'limit' must be a non-negative integer")
			return
		}
		limit = parsed
	}

	happening, err := h.service.Happening(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	upNext, err := h.service.UpNext(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, NowDTO{
		Happening: eventsToDTOs(happening),
		UpNext:    eventsToDTOs(upNext),
	})
}

// ExportCsv godoc
// @Summary Export the schedule as CSV
// @Tags Schedule
// @Produce text/csv
// @Success 200 {string} string "CSV"
// @Router /api/schedule/export.csv [get]
func (h *Handler) ExportCsv(w http.ResponseWriter, r *http.Request) {
	days, ok := h.daysFromRequest(w, r)
	if !ok {
		return
	}
	csv, err := h.renderer.RenderDays(days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		log.Errorf("failed to write csv: %v", err)
	}
}

// AddFavorite godoc
// @Summary Mark an event as favorite
// @Tags Schedule
// @Param id path string true "Event ID"
// @Success 204
// @Router /api/schedule/event/{id}/favorite [put]
// @Security XUserId
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, true)
}

// RemoveFavorite godoc
// @Summary Remove an event from favorites
// @Tags Schedule
// @Param id path string true "Event ID"
// @Success 204
// @Router /api/schedule/event/{id}/favorite [delete]
// @Security XUserId
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, false)
}

func (h *Handler) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	id, ok := eventIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.SetFavorite(r.Context(), id, favorite); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventTypes godoc
// @Summary Event types with their colours
// @Tags Schedule
// @Produce json
// @Success 200 {array} EventTypeDTO
// @Router /api/schedule/types [get]
func (h *Handler) EventTypes(w http.ResponseWriter, r *http.Request) {
	dtos := make([]EventTypeDTO, 0, len(AllEventTypes))
	for _, t := range AllEventTypes {
		dtos = append(dtos, EventTypeDTO{Type: string(t), Color: Palette[t].Class, Accent: Palette[t].Accent})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) daysFromRequest(w http.ResponseWriter, r *http.Request) ([]Day, bool) {
	loc, err := ResolveLocation(r.URL.Query().Get("tz"), h.venue)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid timezone", err.Error())
		return nil, false
	}
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return nil, false
	}
	days, err := h.service.Days(r.Context(), filter, loc)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return days, true
}

func eventIdFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidEvent):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, user.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
	default:
		log.Errorf("schedule request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		Id:          e.ID.String(),
		Name:        e.Name,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Location:    e.Location,
		Description: e.Description,
		EventType:   string(e.EventType),
		Imported:    e.SourceId != "",
	}
}

func eventsToDTOs(events []Event) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	return dtos
}

// dtoToEvent accepts event types in any letter case. Unknown types are kept
// as sent so validation can report them.
func dtoToEvent(dto EventDTO) Event {
	eventType := EventType(dto.EventType)
	if parsed, err := ParseEventType(dto.EventType); err == nil {
		eventType = parsed
	}
	return Event{
		Name:        dto.Name,
		StartDate:   dto.StartDate,
		EndDate:     dto.EndDate,
		Location:    dto.Location,
		Description: dto.Description,
		EventType:   eventType,
	}
}
