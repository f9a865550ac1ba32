package layout

import (
	"math"
	"time"
)

const (
	// DefaultBaseHour is the grid origin used when a day has no events.
	DefaultBaseHour = 6
	// SlotMinutes is the height of one grid row.
	SlotMinutes = 30
)

// BaseHour returns the earliest start hour among items, or DefaultBaseHour.
func BaseHour(items []Item) int {
	if len(items) == 0 {
		return DefaultBaseHour
	}
	base := items[0].Start.Hour()
	for _, item := range items[1:] {
		if h := item.Start.Hour(); h < base {
			base = h
		}
	}
	return base
}

// rolledHour returns the hour of t on the grid that starts at baseHour. Hours
// before baseHour are treated as belonging to the following night.
func rolledHour(t time.Time, baseHour int) (int, bool) {
	hours := t.Hour()
	if hours < baseHour {
		return hours + 24, true
	}
	return hours, false
}

// RowIndex maps a timestamp to its half-hour row relative to baseHour.
func RowIndex(t time.Time, baseHour int) int {
	hours, _ := rolledHour(t, baseHour)
	row := (hours - baseHour) * 2
	if t.Minute() >= SlotMinutes {
		row++
	}
	return row
}

// RowSpan is the number of rows an item covers. Spans can be fractional
// (a 45 minute item covers 1.5 rows) and are never below one row.
func RowSpan(start, end time.Time) float64 {
	minutes := end.Sub(start).Minutes()
	return math.Max(1, minutes/SlotMinutes)
}

// EndOfDaySlots returns how many rows are needed to reach the end of the
// calendar day of day, starting at baseHour on that day.
func EndOfDaySlots(day time.Time, baseHour int) int {
	y, m, d := day.Date()
	base := time.Date(y, m, d, baseHour, 0, 0, 0, day.Location())
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
	minutes := end.Sub(base).Minutes()
	return int(math.Ceil(minutes/SlotMinutes)) + 1
}

// SlotLabel returns the wall-clock hour and minute at which row index starts.
// Hours past midnight wrap to 0..23.
func SlotLabel(index, baseHour int) (hour, minute int) {
	hour = (index/2 + baseHour) % 24
	if index%2 != 0 {
		minute = SlotMinutes
	}
	return hour, minute
}
