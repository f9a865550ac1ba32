package grid

import (
	"strings"
	"time"

	"github.com/hackgrid/hackgrid/pkg/layout"
	"github.com/hackgrid/hackgrid/pkg/schedule"
)

// AllDays selects every day of the schedule side by side.
const AllDays = "All"

type Grid struct {
	BaseHour int
	Slots    []Slot
	// DayKeys lists every day with visible events, for day selection.
	DayKeys []string
	Columns []DayColumn
}

type Slot struct {
	Index int
	Hour  int
	// Label is empty on half-hour rows.
	Label string
}

type DayColumn struct {
	Date  time.Time
	Cells []Cell
}

func (c DayColumn) Key() string {
	return c.Date.Format(time.DateOnly)
}

type Cell struct {
	Event     schedule.Event
	Placement layout.Placement
	Colors    schedule.Colors
	TimeRange string
}

func slots(count, baseHour int) []Slot {
	out := make([]Slot, count)
	for i := range out {
		hour, minute := layout.SlotLabel(i, baseHour)
		out[i] = Slot{Index: i, Hour: hour}
		if minute == 0 {
			out[i].Label = slotLabel(hour)
		}
	}
	return out
}

func slotLabel(hour int) string {
	t := time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC)
	return strings.ToLower(t.Format("3:04pm"))
}

func column(date time.Time, events []schedule.Event, baseHour int) DayColumn {
	loc := date.Location()
	items := make([]layout.Item, len(events))
	for i, e := range events {
		items[i] = layout.Item{
			ID:    e.ID.String(),
			Start: e.StartDate.In(loc),
			End:   e.EndDate.In(loc),
		}
	}
	placements := layout.Arrange(items, baseHour)

	cells := make([]Cell, len(events))
	for i, e := range events {
		cells[i] = Cell{
			Event:     e,
			Placement: placements[i],
			Colors:    schedule.Palette[e.EventType],
			TimeRange: schedule.FormatTimeRange(items[i].Start, items[i].End),
		}
	}
	return DayColumn{Date: date, Cells: cells}
}
