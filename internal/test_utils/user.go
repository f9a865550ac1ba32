package test_utils

import (
	"context"
	"net/http"

	"github.com/hackgrid/hackgrid/pkg/user"
)

var (
	Admin       = user.User{Id: 1, Uid: "admin-uid", BadgeCode: "admin-badge", Username: "admin", DisplayName: "Admin", Role: user.RoleAdmin}
	Volunteer   = user.User{Id: 2, Uid: "volunteer-uid", BadgeCode: "volunteer-badge", Username: "volunteer", DisplayName: "Volunteer", Role: user.RoleVolunteer}
	Participant = user.User{Id: 3, Uid: "participant-uid", BadgeCode: "participant-badge", Username: "hacker", DisplayName: "Hacker", Role: user.RoleParticipant}
)

// AsUser returns ctx carrying u as the current user.
func AsUser(ctx context.Context, u user.User) context.Context {
	return user.WithUser(ctx, u)
}

// RequestAs attaches u to req, leaving it anonymous when u is nil.
func RequestAs(req *http.Request, u *user.User) *http.Request {
	if u == nil {
		return req
	}
	return req.WithContext(user.WithUser(req.Context(), *u))
}
