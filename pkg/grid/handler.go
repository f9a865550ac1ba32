package grid

import (
	"errors"
	"net/http"
	"time"

	"github.com/hackgrid/hackgrid/internal/rest"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

type GridDTO struct {
	BaseHour int         `json:"baseHour"`
	Slots    []SlotDTO   `json:"slots"`
	Days     []string    `json:"days"`
	Columns  []ColumnDTO `json:"columns"`
}

type SlotDTO struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`
}

type ColumnDTO struct {
	Date  string    `json:"date"`
	Cells []CellDTO `json:"cells"`
}

type CellDTO struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Location     string    `json:"location,omitempty"`
	EventType    string    `json:"eventType"`
	TimeRange    string    `json:"timeRange"`
	Color        string    `json:"color"`
	Accent       string    `json:"accent"`
	RowStart     int       `json:"rowStart"`
	RowSpan      float64   `json:"rowSpan"`
	LeftPercent  float64   `json:"left"`
	WidthPercent float64   `json:"width"`
	Column       int       `json:"column"`
	GroupWidth   int       `json:"groupWidth"`
	Rollover     bool      `json:"rollover,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetGrid godoc
// @Summary Positioned schedule grid
// @Description Lays out the filtered events of one day, or all days, on a half-hour grid
// @Tags Schedule
// @Produce json
// @Param day query string false "YYYY-MM-DD or All" default(All)
// @Param types query string false "Comma separated event types"
// @Param q query string false "Text search"
// @Param tz query string false "central (default) or an IANA timezone"
// @Param favorites query bool false "Only the current user's favorites"
// @Success 200 {object} GridDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid parameters"
// @Router /api/schedule/grid [get]
func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := schedule.FilterFromQuery(query)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}

	grid, err := h.service.Day(r.Context(), query.Get("day"), filter, query.Get("tz"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDay):
			rest.WriteError(w, http.StatusBadRequest, "Invalid day", err.Error())
		case errors.Is(err, ErrInvalidTimezone):
			rest.WriteError(w, http.StatusBadRequest, "Invalid timezone", err.Error())
		case errors.Is(err, user.ErrNoUser):
			rest.WriteError(w, http.StatusUnauthorized, "Favorites require a user", "")
		default:
			log.Errorf("grid request failed: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, gridToDTO(grid))
}

func gridToDTO(g Grid) GridDTO {
	dto := GridDTO{
		BaseHour: g.BaseHour,
		Slots:    make([]SlotDTO, 0, len(g.Slots)),
		Days:     g.DayKeys,
		Columns:  make([]ColumnDTO, 0, len(g.Columns)),
	}
	for _, s := range g.Slots {
		dto.Slots = append(dto.Slots, SlotDTO{Index: s.Index, Label: s.Label})
	}
	for _, c := range g.Columns {
		column := ColumnDTO{Date: c.Key(), Cells: make([]CellDTO, 0, len(c.Cells))}
		for _, cell := range c.Cells {
			column.Cells = append(column.Cells, CellDTO{
				Id:           cell.Event.ID.String(),
				Name:         cell.Event.Name,
				StartDate:    cell.Event.StartDate,
				EndDate:      cell.Event.EndDate,
				Location:     cell.Event.Location,
				EventType:    string(cell.Event.EventType),
				TimeRange:    cell.TimeRange,
				Color:        cell.Colors.Class,
				Accent:       cell.Colors.Accent,
				RowStart:     cell.Placement.RowStart,
				RowSpan:      cell.Placement.RowSpan,
				LeftPercent:  cell.Placement.LeftPercent,
				WidthPercent: cell.Placement.WidthPercent,
				Column:       cell.Placement.Column,
				GroupWidth:   cell.Placement.GroupWidth,
				Rollover:     cell.Placement.Rollover,
			})
		}
		dto.Columns = append(dto.Columns, column)
	}
	return dto
}
