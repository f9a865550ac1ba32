package grid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/layout"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

type Service interface {
	// Day lays out the events of day (YYYY-MM-DD or AllDays) in the
	// timezone selected by tz ("central" or an IANA name).
	Day(ctx context.Context, day string, filter schedule.Filter, tz string) (Grid, error)
}

type ServiceImpl struct {
	schedule        schedule.Service
	venue           *time.Location
	defaultBaseHour int
	clock           utils.Clock
}

func NewService(scheduleService schedule.Service, venue *time.Location, defaultBaseHour int, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		schedule:        scheduleService,
		venue:           venue,
		defaultBaseHour: defaultBaseHour,
		clock:           clock,
	}
}

func (s *ServiceImpl) Day(ctx context.Context, day string, filter schedule.Filter, tz string) (Grid, error) {
	loc, err := schedule.ResolveLocation(tz, s.venue)
	if err != nil {
		return Grid{}, fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}
	days, err := s.schedule.Days(ctx, filter, loc)
	if err != nil {
		return Grid{}, fmt.Errorf("failed to get schedule days: %w", err)
	}

	selected := days
	if day != "" && day != AllDays {
		date, err := time.ParseInLocation(time.DateOnly, day, loc)
		if err != nil {
			return Grid{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDay, day)
		}
		selected = []schedule.Day{{Date: date}}
		for _, d := range days {
			if d.Key() == day {
				selected = []schedule.Day{d}
				break
			}
		}
	}

	var visible []layout.Item
	for _, d := range selected {
		for _, e := range d.Events {
			visible = append(visible, layout.Item{Start: e.StartDate.In(loc)})
		}
	}
	baseHour := s.defaultBaseHour
	if len(visible) > 0 {
		baseHour = layout.BaseHour(visible)
	}

	reference := s.clock.Now().In(loc)
	if len(visible) > 0 {
		reference = visible[0].Start
	} else if len(selected) > 0 {
		reference = selected[0].Date
	}

	grid := Grid{
		BaseHour: baseHour,
		Slots:    slots(layout.EndOfDaySlots(reference, baseHour), baseHour),
		DayKeys:  make([]string, 0, len(days)),
		Columns:  make([]DayColumn, 0, len(selected)),
	}
	for _, d := range days {
		grid.DayKeys = append(grid.DayKeys, d.Key())
	}
	for _, d := range selected {
		grid.Columns = append(grid.Columns, column(d.Date, d.Events, baseHour))
	}
	log.Debugf("grid for %q in %s: base hour %d, %d columns", day, loc, baseHour, len(grid.Columns))
	return grid, nil
}
