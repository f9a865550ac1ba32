package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByBadgeCode(ctx context.Context, code string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, query string) ([]User, error)
}

const (
	staffSearchLimit       = 50
	participantSearchLimit = 10
)

type UserServiceImpl struct {
	repo Repo
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.GetUser(ctx, userId)
}

// CreateUser registers a participant. Only admins may create admin or volunteer accounts.
func (u *UserServiceImpl) CreateUser(ctx context.Context, user User) (User, error) {
	if user.Role == "" {
		user.Role = RoleParticipant
	}
	if user.Role != RoleParticipant {
		if _, err := RequireRole(ctx, RoleAdmin); err != nil {
			return User{}, err
		}
	}
	if user.Uid == "" {
		user.Uid = uuid.NewString()
	}
	user.BadgeCode = uuid.NewString()
	userId, err := u.repo.CreateUser(ctx, user)
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	user.Id = userId
	log.Debugf("created user %s with role %s", user.Uid, user.Role)
	return user, nil
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) GetUserByBadgeCode(ctx context.Context, code string) (User, error) {
	return u.repo.GetUserByBadgeCode(ctx, code)
}

func (u *UserServiceImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return u.repo.GetUserByUsername(ctx, username)
}

// SearchUsers finds users by username or display name. Staff see every
// match. Participants only find other participants, which is what they need
// to put a travel group together.
func (u *UserServiceImpl) SearchUsers(ctx context.Context, query string) ([]User, error) {
	current, err := CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []User{}, nil
	}
	if current.HasRole(RoleAdmin, RoleVolunteer) {
		return u.repo.SearchUsers(ctx, query, staffSearchLimit)
	}

	found, err := u.repo.SearchUsers(ctx, query, staffSearchLimit)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, participantSearchLimit)
	for _, candidate := range found {
		if candidate.Id == current.Id || candidate.Role != RoleParticipant {
			continue
		}
		users = append(users, User{Id: candidate.Id, Username: candidate.Username, DisplayName: candidate.DisplayName, Role: candidate.Role})
		if len(users) == participantSearchLimit {
			break
		}
	}
	return users, nil
}

func (u *UserServiceImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	if _, err := RequireRole(ctx, RoleAdmin, RoleVolunteer); err != nil {
		return nil, err
	}
	return u.repo.GetAllUsers(ctx)
}
