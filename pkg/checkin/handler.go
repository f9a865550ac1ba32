package checkin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

// CheckinRequestDTO carries the scanned badge code, or the participant's
// username when Manual is set.
type CheckinRequestDTO struct {
	Code   string `json:"code"`
	Manual bool   `json:"manual,omitempty"`
}

type ParticipantDTO struct {
	Uid         string `json:"uid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type CheckinDTO struct {
	Participant ParticipantDTO `json:"participant"`
	CheckedInAt time.Time      `json:"checkedInAt"`
}

type SummaryDTO struct {
	Attendees       []CheckinDTO `json:"attendees"`
	SuccessfulScans int          `json:"successfulScans"`
	FailedScans     int          `json:"failedScans"`
}

type ScanDTO struct {
	Id          int            `json:"id"`
	Participant ParticipantDTO `json:"participant"`
	EventId     uuid.UUID      `json:"eventId"`
	EventName   string         `json:"eventName"`
	Successful  bool           `json:"successful"`
	Timestamp   time.Time      `json:"timestamp"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// CheckIn godoc
// @Summary Check a participant in at an event
// @Tags Checkin
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body CheckinRequestDTO true "Scanned participant code"
// @Success 200 {object} CheckinDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Failure 409 {object} rest.ErrorResponse "Already checked in"
// @Failure 422 {object} rest.ErrorResponse "Unknown code"
// @Router /api/schedule/event/{id}/checkin [post]
// @Security XUserId
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventId, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event ID", err.Error())
		return
	}
	var request CheckinRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	method := MethodScan
	if request.Manual {
		method = MethodManual
	}

	result, err := h.service.CheckIn(r.Context(), eventId, request.Code, method)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, CheckinDTO{
		Participant: participantToDTO(result.Participant),
		CheckedInAt: result.Checkin.CreatedAt,
	})
}

// GetCheckins godoc
// @Summary Attendees and scan counts of an event
// @Tags Checkin
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} SummaryDTO
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/schedule/event/{id}/checkin [get]
// @Security XUserId
func (h *Handler) GetCheckins(w http.ResponseWriter, r *http.Request) {
	eventId, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event ID", err.Error())
		return
	}
	summary, err := h.service.Summary(r.Context(), eventId)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := SummaryDTO{
		Attendees:       make([]CheckinDTO, 0, len(summary.Attendees)),
		SuccessfulScans: summary.SuccessfulScans,
		FailedScans:     summary.FailedScans,
	}
	for _, a := range summary.Attendees {
		dto.Attendees = append(dto.Attendees, CheckinDTO{Participant: participantToDTO(a.User), CheckedInAt: a.CheckedInAt})
	}
	rest.WriteJSON(w, http.StatusOK, dto)
}

// ScanHistory godoc
// @Summary Most recent scans across all events
// @Tags Checkin
// @Produce json
// @Success 200 {array} ScanDTO
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Router /api/checkin/scans [get]
// @Security XUserId
func (h *Handler) ScanHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ScanHistory(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ScanDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, ScanDTO{
			Id:          rec.Id,
			Participant: participantToDTO(rec.Participant),
			EventId:     rec.EventId,
			EventName:   rec.EventName,
			Successful:  rec.Successful,
			Timestamp:   rec.CreatedAt,
		})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func participantToDTO(u user.User) ParticipantDTO {
	return ParticipantDTO{Uid: u.Uid, Username: u.Username, DisplayName: u.DisplayName}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, user.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, schedule.ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, ErrAlreadyCheckedIn):
		rest.WriteError(w, http.StatusConflict, "Already checked in", err.Error())
	case errors.Is(err, ErrUnknownCode):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Unknown code", err.Error())
	default:
		log.Errorf("check-in failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
