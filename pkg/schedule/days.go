package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Day is one calendar date of the schedule in a display timezone.
type Day struct {
	Date   time.Time
	Events []Event
}

// Key is the day's date formatted as YYYY-MM-DD.
func (d Day) Key() string {
	return d.Date.Format(time.DateOnly)
}

// GroupByDay buckets events by the calendar date of their start in loc. Days
// are returned in chronological order, events inside a day by start time.
func GroupByDay(events []Event, loc *time.Location) []Day {
	byDate := make(map[time.Time][]Event)
	for _, e := range events {
		start := e.StartDate.In(loc)
		y, m, d := start.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		byDate[date] = append(byDate[date], e)
	}

	days := make([]Day, 0, len(byDate))
	for date, dayEvents := range byDate {
		SortByStart(dayEvents)
		days = append(days, Day{Date: date, Events: dayEvents})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// SortByStart orders events by start time, keeping the input order of ties.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
}

// Neighbours returns the events just before and after id in events.
func Neighbours(events []Event, id uuid.UUID) (prev *Event, next *Event) {
	for i := range events {
		if events[i].ID != id {
			continue
		}
		if i > 0 {
			prev = &events[i-1]
		}
		if i < len(events)-1 {
			next = &events[i+1]
		}
		return prev, next
	}
	return nil, nil
}

// ResolveLocation maps a timezone mode to a location. "central" (or empty)
// is the venue timezone; anything else must be an IANA zone name.
func ResolveLocation(mode string, venue *time.Location) (*time.Location, error) {
	if mode == "" || mode == "central" {
		return venue, nil
	}
	loc, err := time.LoadLocation(mode)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", mode, err)
	}
	return loc, nil
}

func sortByStartAndName(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].Name < events[j].Name
	})
}
