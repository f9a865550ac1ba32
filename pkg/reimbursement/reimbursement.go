package reimbursement

import (
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
)

// MaxGroupMembers bounds the invites of one group request, the leader excluded.
const MaxGroupMembers = 10

type Transport string

const (
	Car       Transport = "Car"
	Bus       Transport = "Bus"
	Train     Transport = "Train"
	Airplane  Transport = "Airplane"
	Rideshare Transport = "Rideshare"
	Other     Transport = "Other"
)

var AllTransports = []Transport{Car, Bus, Train, Airplane, Rideshare, Other}

func (t Transport) Valid() bool {
	for _, known := range AllTransports {
		if t == known {
			return true
		}
	}
	return false
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteDeclined InviteStatus = "DECLINED"
)

// Reimbursement is a travel reimbursement request. CreatorId is the group
// leader for group requests.
type Reimbursement struct {
	Id            uuid.UUID
	CreatorId     int
	Transport     Transport `validate:"required,transport"`
	Address       string    `validate:"min=5,max=512"`
	Distance      float64   `validate:"gt=0"`
	EstimatedCost float64   `validate:"gte=0"`
	Reason        string    `validate:"min=10,max=2000"`
	CreatedAt     time.Time
}

// Invite asks User to join a group reimbursement.
type Invite struct {
	Id              int
	ReimbursementId uuid.UUID
	User            user.User
	Status          InviteStatus
	CreatedAt       time.Time
}

// PendingInvite is an open invite as seen by the invited user.
type PendingInvite struct {
	ReimbursementId uuid.UUID
	Leader          user.User
	CreatedAt       time.Time
}

type Details struct {
	Reimbursement
	Creator user.User
	Invites []Invite
}

// Group reports whether anyone was invited to the request.
func (d Details) Group() bool {
	return len(d.Invites) > 0
}
