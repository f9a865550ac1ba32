package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID          uuid.UUID
	Name        string    `validate:"required,max=255"`
	StartDate   time.Time `validate:"required"`
	EndDate     time.Time `validate:"required,gtfield=StartDate"`
	Location    string
	Description string
	EventType   EventType `validate:"required,eventtype"`
	// SourceId and SourceUid identify events imported from an external calendar.
	SourceId  string `validate:"max=255"`
	SourceUid string `validate:"max=512"`
}

func (e Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

type EventType string

const (
	Food       EventType = "FOOD"
	Required   EventType = "REQUIRED"
	Workshops  EventType = "WORKSHOPS"
	Sponsor    EventType = "SPONSOR"
	Activities EventType = "ACTIVITIES"
)

// AllEventTypes lists the event types in display order.
var AllEventTypes = []EventType{Food, Required, Workshops, Sponsor, Activities}

func (t EventType) Valid() bool {
	_, ok := Palette[t]
	return ok
}

// ParseEventType accepts event type names case-insensitively.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// Colors holds the display attributes of an event type.
type Colors struct {
	Class  string
	Accent string
}

var Palette = map[EventType]Colors{
	Food:       {Class: "bg-orange-400", Accent: "#f97316"},
	Required:   {Class: "bg-red-400", Accent: "#ef4444"},
	Workshops:  {Class: "bg-green-500", Accent: "#16a34a"},
	Sponsor:    {Class: "bg-blue-400", Accent: "#3b82f6"},
	Activities: {Class: "bg-purple-400", Accent: "#8b5cf6"},
}
