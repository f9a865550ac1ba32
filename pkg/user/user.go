package user

import "fmt"

type User struct {
	Id  int
	Uid string
	// BadgeCode is printed on the participant's QR badge. It is separate from
	// Uid so that scanning a badge does not reveal the holder's identity.
	BadgeCode   string
	Username    string
	DisplayName string
	Role        Role
}

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleVolunteer   Role = "volunteer"
	RoleParticipant Role = "participant"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleVolunteer, RoleParticipant:
		return Role(s), nil
	case "":
		return RoleParticipant, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// HasRole reports whether u holds any of the given roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
