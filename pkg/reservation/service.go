package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidMember = errors.New("invalid team member")

// Request books one theme for one time slot. Members are usernames of the
// creator's teammates.
type Request struct {
	TeamName string   `validate:"required,max=255"`
	Theme    Theme    `validate:"required,theme"`
	TimeSlot TimeSlot `validate:"required,timeslot"`
	Members  []string `validate:"min=1,max=10,dive,required"`
}

type Service interface {
	Reserve(ctx context.Context, request Request) (Reservation, error)
	Taken(ctx context.Context) ([]Combo, error)
	Mine(ctx context.Context) (Reservation, error)
	List(ctx context.Context) ([]Reservation, error)
}

type ServiceImpl struct {
	repo  Repository
	users user.Service
	clock utils.Clock
}

func NewService(repo Repository, users user.Service, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:  repo,
		users: users,
		clock: clock,
	}
}

// Reserve books a themed room for the current user's team. Each user holds at
// most one reservation and each theme can be booked once per time slot.
func (s *ServiceImpl) Reserve(ctx context.Context, request Request) (Reservation, error) {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return Reservation{}, err
	}
	request.TeamName = strings.TrimSpace(request.TeamName)
	request.Members = teammates(current, request.Members)
	if err := Validate(request); err != nil {
		return Reservation{}, err
	}
	for _, username := range request.Members {
		if _, err := s.users.GetUserByUsername(ctx, username); errors.Is(err, user.ErrUserNotFound) {
			return Reservation{}, fmt.Errorf("%w: unknown user %s", ErrInvalidMember, username)
		} else if err != nil {
			return Reservation{}, fmt.Errorf("failed to find %s: %w", username, err)
		}
	}

	reservation := Reservation{
		UserId:    current.Id,
		TeamName:  request.TeamName,
		Members:   append([]string{current.Username}, request.Members...),
		Theme:     request.Theme,
		TimeSlot:  request.TimeSlot,
		CreatedAt: s.clock.Now(),
	}
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		if _, err := repo.GetByUser(ctx, current.Id); err == nil {
			return ErrAlreadyReserved
		} else if !errors.Is(err, ErrReservationNotFound) {
			return err
		}
		if _, err := repo.GetByCombo(ctx, reservation.Combo()); err == nil {
			return ErrSlotTaken
		} else if !errors.Is(err, ErrReservationNotFound) {
			return err
		}
		id, err := repo.StoreReservation(ctx, reservation)
		if err != nil {
			return err
		}
		reservation.Id = id
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	log.Infof("%s reserved %s for %s", current.Username, reservation.Theme, reservation.TimeSlot)
	return reservation, nil
}

// teammates trims and dedupes usernames, leaving out the creator.
func teammates(creator user.User, usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	result := make([]string, 0, len(usernames))
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == creator.Username || seen[username] {
			continue
		}
		seen[username] = true
		result = append(result, username)
	}
	return result
}

func (s *ServiceImpl) Taken(ctx context.Context) ([]Combo, error) {
	if _, err := user.CurrentUser(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetTaken(ctx)
}

func (s *ServiceImpl) Mine(ctx context.Context) (Reservation, error) {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return Reservation{}, err
	}
	return s.repo.GetByUser(ctx, current.Id)
}

func (s *ServiceImpl) List(ctx context.Context) ([]Reservation, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx)
}
