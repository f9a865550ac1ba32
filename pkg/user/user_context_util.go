package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoUser = errors.New("no user in context")
var ErrForbidden = errors.New("user is not allowed to perform this operation")

// CurrentId retrieves the current user's ID from the context. Returns ErrNoUser if ID not present in context.
func CurrentId(ctx context.Context) (int, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return 0, ErrNoUser
	}
	return user.Id, nil
}

func CurrentUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return User{}, ErrNoUser
	}
	return user, nil
}

// RequireRole returns the current user when they hold one of roles.
func RequireRole(ctx context.Context, roles ...Role) (User, error) {
	u, err := CurrentUser(ctx)
	if err != nil {
		return User{}, err
	}
	if !u.HasRole(roles...) {
		log.Debugf("user %s with role %s denied, requires one of %v", u.Uid, u.Role, roles)
		return User{}, ErrForbidden
	}
	return u, nil
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
