package checkin

import (
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
)

// Checkin marks a participant as present at a schedule event.
type Checkin struct {
	Id        int
	UserId    int
	AdminId   int
	EventId   uuid.UUID
	CreatedAt time.Time
}

// Scan is one attempt to check a participant in, successful or not.
type Scan struct {
	Id         int
	UserId     int
	AdminId    int
	EventId    uuid.UUID
	Successful bool
	CreatedAt  time.Time
}

type Attendee struct {
	User        user.User
	CheckedInAt time.Time
	AdminId     int
}

// ScanRecord is a scan with the scanned participant resolved.
type ScanRecord struct {
	Scan
	Participant user.User
	EventName   string
}
