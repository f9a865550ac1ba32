package schedule

import (
	"strings"
	"time"
)

func clockTime(t time.Time) string {
	return strings.ToLower(t.Format("3:04pm"))
}

// FormatTimeRange renders "9:00 - 10:30am", repeating the am/pm suffix only
// when the range crosses noon or midnight.
func FormatTimeRange(start, end time.Time) string {
	startTime := clockTime(start)
	endTime := clockTime(end)
	if startTime[len(startTime)-2:] == endTime[len(endTime)-2:] {
		startTime = startTime[:len(startTime)-2]
	}
	return startTime + " - " + endTime
}

// FormatEventTimeRange prefixes FormatTimeRange with the weekday and date.
func FormatEventTimeRange(start, end time.Time) string {
	return start.Format("Monday, Jan 2") + ", " + FormatTimeRange(start, end)
}
