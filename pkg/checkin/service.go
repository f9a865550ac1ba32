package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownCode      = errors.New("no participant matches the scanned code")
	ErrAlreadyCheckedIn = errors.New("participant is already checked in")
)

// Method tells how the participant was identified. Scans carry the badge
// code, manual check-ins the username picked from a search.
type Method string

const (
	MethodScan   Method = "scan"
	MethodManual Method = "manual"
)

type Result struct {
	Participant user.User
	Checkin     Checkin
}

type Summary struct {
	Attendees       []Attendee
	SuccessfulScans int
	FailedScans     int
}

type Service interface {
	CheckIn(ctx context.Context, eventId uuid.UUID, code string, method Method) (Result, error)
	Summary(ctx context.Context, eventId uuid.UUID) (Summary, error)
	ScanHistory(ctx context.Context) ([]ScanRecord, error)
}

const scanHistoryLimit = 500

type ServiceImpl struct {
	repo     Repository
	users    user.Service
	schedule schedule.Service
	clock    utils.Clock
}

func NewService(repo Repository, users user.Service, scheduleService schedule.Service, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		users:    users,
		schedule: scheduleService,
		clock:    clock,
	}
}

// CheckIn identifies the participant by code and checks them in at the event. Unknown codes leave no trace. A repeated scan is recorded as a
// failed scan; a repeated manual check-in is not recorded at all.
func (s *ServiceImpl) CheckIn(ctx context.Context, eventId uuid.UUID, code string, method Method) (Result, error) {
	staff, err := user.RequireRole(ctx, user.RoleAdmin, user.RoleVolunteer)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.schedule.GetEvent(ctx, eventId); err != nil {
		return Result{}, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return Result{}, ErrUnknownCode
	}
	var participant user.User
	if method == MethodManual {
		participant, err = s.users.GetUserByUsername(ctx, code)
	} else {
		participant, err = s.users.GetUserByBadgeCode(ctx, code)
	}
	if errors.Is(err, user.ErrUserNotFound) {
		log.Debugf("check-in at %s: unknown code", eventId)
		return Result{}, ErrUnknownCode
	} else if err != nil {
		return Result{}, fmt.Errorf("failed to find participant: %w", err)
	}

	now := s.clock.Now()
	alreadyCheckedIn := false
	result := Result{Participant: participant}
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		_, err := repo.GetCheckin(ctx, participant.Id, eventId)
		if err == nil {
			alreadyCheckedIn = true
			if method == MethodManual {
				return nil
			}
			return repo.StoreScan(ctx, Scan{UserId: participant.Id, AdminId: staff.Id, EventId: eventId, Successful: false, CreatedAt: now})
		}
		if !errors.Is(err, ErrCheckinNotFound) {
			return err
		}

		checkin := Checkin{UserId: participant.Id, AdminId: staff.Id, EventId: eventId, CreatedAt: now}
		if checkin.Id, err = repo.StoreCheckin(ctx, checkin); err != nil {
			return err
		}
		result.Checkin = checkin
		return repo.StoreScan(ctx, Scan{UserId: participant.Id, AdminId: staff.Id, EventId: eventId, Successful: true, CreatedAt: now})
	})
	if err != nil {
		return Result{}, err
	}
	if alreadyCheckedIn {
		return Result{}, ErrAlreadyCheckedIn
	}

	log.Infof("%s checked in %s at %s (%s)", staff.Username, participant.Username, eventId, method)
	return result, nil
}

func (s *ServiceImpl) Summary(ctx context.Context, eventId uuid.UUID) (Summary, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin, user.RoleVolunteer); err != nil {
		return Summary{}, err
	}
	if _, err := s.schedule.GetEvent(ctx, eventId); err != nil {
		return Summary{}, err
	}

	attendees, err := s.repo.GetAttendees(ctx, eventId)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to get attendees: %w", err)
	}
	successful, failed, err := s.repo.CountScans(ctx, eventId)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to count scans: %w", err)
	}
	return Summary{Attendees: attendees, SuccessfulScans: successful, FailedScans: failed}, nil
}

// ScanHistory lists the most recent scans across all events, newest first.
func (s *ServiceImpl) ScanHistory(ctx context.Context) ([]ScanRecord, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return nil, err
	}
	records, err := s.repo.GetScanHistory(ctx, scanHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	events, err := s.schedule.ListEvents(ctx, schedule.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	names := make(map[uuid.UUID]string, len(events))
	for _, e := range events {
		names[e.ID] = e.Name
	}
	for i := range records {
		records[i].EventName = names[records[i].EventId]
	}
	return records, nil
}
