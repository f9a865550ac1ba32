package event_bus

import "time"

const (
	ScheduleEventCreated EventType = "schedule.event.created"
	ScheduleEventUpdated EventType = "schedule.event.updated"
	ScheduleEventDeleted EventType = "schedule.event.deleted"
)

// ScheduleEventChanged describes a schedule entry after a mutation. For
// deletions only Id is guaranteed to be set.
type ScheduleEventChanged struct {
	Id          string
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Location    string
	Description string
	EventType   string
}
