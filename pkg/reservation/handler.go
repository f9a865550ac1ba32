package reservation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

type ReservationRequestDTO struct {
	TeamName string   `json:"teamName"`
	Theme    string   `json:"theme"`
	TimeSlot string   `json:"timeSlot"`
	Members  []string `json:"members"`
}

type ReservationDTO struct {
	Id        int       `json:"id"`
	TeamName  string    `json:"teamName"`
	Members   []string  `json:"members"`
	Theme     string    `json:"theme"`
	Room      string    `json:"room"`
	TimeSlot  string    `json:"timeSlot"`
	CreatedAt time.Time `json:"createdAt"`
}

type ComboDTO struct {
	Theme    string `json:"theme"`
	TimeSlot string `json:"timeSlot"`
}

type ThemeDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Room  string `json:"room"`
}

type TimeSlotDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type OptionsDTO struct {
	Themes    []ThemeDTO    `json:"themes"`
	TimeSlots []TimeSlotDTO `json:"timeSlots"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// Options godoc
// @Summary Bookable themes and time slots
// @Tags Reservation
// @Produce json
// @Success 200 {object} OptionsDTO
// @Router /api/reservation/options [get]
// @Security XUserId
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	options := OptionsDTO{
		Themes:    make([]ThemeDTO, 0, len(Themes)),
		TimeSlots: make([]TimeSlotDTO, 0, len(TimeSlots)),
	}
	for _, info := range Themes {
		options.Themes = append(options.Themes, ThemeDTO{Value: string(info.Theme), Label: info.Label, Room: info.Room})
	}
	for _, slot := range TimeSlots {
		options.TimeSlots = append(options.TimeSlots, TimeSlotDTO{Value: string(slot), Label: slot.Label()})
	}
	rest.WriteJSON(w, http.StatusOK, options)
}

// Taken godoc
// @Summary Theme and time slot combinations already booked
// @Tags Reservation
// @Produce json
// @Success 200 {array} ComboDTO
// @Failure 401 {object} rest.ErrorResponse "Unauthorized"
// @Router /api/reservation/taken [get]
// @Security XUserId
func (h *Handler) Taken(w http.ResponseWriter, r *http.Request) {
	taken, err := h.service.Taken(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ComboDTO, 0, len(taken))
	for _, combo := range taken {
		dtos = append(dtos, ComboDTO{Theme: string(combo.Theme), TimeSlot: string(combo.TimeSlot)})
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Reserve godoc
// @Summary Reserve a themed room for a time slot
// @Tags Reservation
// @Accept json
// @Produce json
// @Param reservation body ReservationRequestDTO true "Reservation"
// @Success 201 {object} ReservationDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid reservation"
// @Failure 409 {object} rest.ErrorResponse "Slot taken or already reserved"
// @Failure 422 {object} rest.ErrorResponse "Unknown team member"
// @Router /api/reservation [post]
// @Security XUserId
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var dto ReservationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	reservation, err := h.service.Reserve(r.Context(), Request{
		TeamName: dto.TeamName,
		Theme:    Theme(dto.Theme),
		TimeSlot: TimeSlot(dto.TimeSlot),
		Members:  dto.Members,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(reservation))
}

// Mine godoc
// @Summary Current user's themed room reservation
// @Tags Reservation
// @Produce json
// @Success 200 {object} ReservationDTO
// @Failure 404 {object} rest.ErrorResponse "No reservation"
// @Router /api/reservation/mine [get]
// @Security XUserId
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.service.Mine(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(reservation))
}

// List godoc
// @Summary All themed room reservations
// @Tags Reservation
// @Produce json
// @Success 200 {array} ReservationDTO
// @Failure 403 {object} rest.ErrorResponse "Forbidden"
// @Router /api/admin/reservation [get]
// @Security XUserId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ReservationDTO, 0, len(all))
	for _, reservation := range all {
		dtos = append(dtos, toDTO(reservation))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func roomOf(theme Theme) string {
	for _, info := range Themes {
		if info.Theme == theme {
			return info.Room
		}
	}
	return ""
}

func toDTO(r Reservation) ReservationDTO {
	return ReservationDTO{
		Id:        r.Id,
		TeamName:  r.TeamName,
		Members:   r.Members,
		Theme:     string(r.Theme),
		Room:      roomOf(r.Theme),
		TimeSlot:  string(r.TimeSlot),
		CreatedAt: r.CreatedAt,
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, user.ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, ErrInvalidReservation):
		rest.WriteError(w, http.StatusBadRequest, "Invalid reservation", err.Error())
	case errors.Is(err, ErrInvalidMember):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Invalid team member", err.Error())
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrAlreadyReserved):
		rest.WriteError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, ErrReservationNotFound):
		rest.WriteError(w, http.StatusNotFound, "Reservation not found", "")
	default:
		log.Errorf("reservation request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
