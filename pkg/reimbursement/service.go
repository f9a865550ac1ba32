package reimbursement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNoMembers      = errors.New("a group request needs at least one member")
	ErrTooManyMembers = fmt.Errorf("a group can have at most %d members", MaxGroupMembers)
	ErrInvalidMember  = errors.New("invalid group member")
)

// Request is what a participant submits. Members are usernames and only
// count when Group is set.
type Request struct {
	Transport     Transport
	Address       string
	Distance      float64
	EstimatedCost float64
	Reason        string
	Group         bool
	Members       []string
}

func (r Request) apply(reimbursement *Reimbursement) {
	reimbursement.Transport = r.Transport
	reimbursement.Address = strings.TrimSpace(r.Address)
	reimbursement.Distance = r.Distance
	reimbursement.EstimatedCost = r.EstimatedCost
	reimbursement.Reason = strings.TrimSpace(r.Reason)
}

// Status is the current user's view of the reimbursement workflow.
type Status struct {
	// nil when the user belongs to no reimbursement
	Reimbursement  *Details
	Leader         bool
	PendingInvites []PendingInvite
}

type Service interface {
	Submit(ctx context.Context, request Request) (Details, error)
	Respond(ctx context.Context, reimbursementId uuid.UUID, accept bool) (InviteStatus, error)
	Update(ctx context.Context, reimbursementId uuid.UUID, request Request) (Details, error)
	Delete(ctx context.Context, reimbursementId uuid.UUID) error
	Status(ctx context.Context) (Status, error)
	List(ctx context.Context) ([]Details, error)
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

// Submit creates a solo or group request led by the current user. The leader
// joins immediately, group members are invited. Nobody involved may already
// belong to a reimbursement.
func (s *ServiceImpl) Submit(ctx context.Context, request Request) (Details, error) {
	leader, err := user.CurrentUser(ctx)
	if err != nil {
		return Details{}, err
	}
	reimbursement := Reimbursement{CreatorId: leader.Id, CreatedAt: s.clock.Now()}
	request.apply(&reimbursement)
	if err := Validate(reimbursement); err != nil {
		return Details{}, err
	}

	var members []user.User
	if request.Group {
		if members, err = s.resolveMembers(ctx, leader, request.Members); err != nil {
			return Details{}, err
		}
		if len(members) == 0 {
			return Details{}, ErrNoMembers
		}
		if len(members) > MaxGroupMembers {
			return Details{}, ErrTooManyMembers
		}
	}

	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		for _, u := range append([]user.User{leader}, members...) {
			if _, err := repo.GetMembership(ctx, u.Id); err == nil {
				return fmt.Errorf("%w: %s", ErrAlreadyMember, u.Username)
			} else if !errors.Is(err, ErrNotMember) {
				return err
			}
		}

		id, err := repo.StoreReimbursement(ctx, reimbursement)
		if err != nil {
			return fmt.Errorf("failed to store reimbursement: %w", err)
		}
		reimbursement.Id = id
		if err := repo.AddMember(ctx, id, leader.Id); err != nil {
			return err
		}
		for _, m := range members {
			if err := repo.StoreInvite(ctx, id, m.Id, reimbursement.CreatedAt); err != nil {
				return fmt.Errorf("failed to invite %s: %w", m.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return Details{}, err
	}

	log.Infof("%s submitted reimbursement %s with %d invites", leader.Username, reimbursement.Id, len(members))
	return s.details(ctx, reimbursement)
}

// resolveMembers looks up the distinct usernames, leaving out the caller.
func (s *ServiceImpl) resolveMembers(ctx context.Context, caller user.User, usernames []string) ([]user.User, error) {
	seen := make(map[string]bool, len(usernames))
	members := make([]user.User, 0, len(usernames))
	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" || username == caller.Username || seen[username] {
			continue
		}
		seen[username] = true
		if len(seen) > MaxGroupMembers {
			return nil, ErrTooManyMembers
		}
		u, err := s.users.GetUserByUsername(ctx, username)
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidMember, username)
		} else if err != nil {
			return nil, fmt.Errorf("failed to find %s: %w", username, err)
		}
		members = append(members, u)
	}
	return members, nil
}

// Respond accepts or declines the current user's pending invite. Accepting
// joins the group unless the user already belongs to another reimbursement.
func (s *ServiceImpl) Respond(ctx context.Context, reimbursementId uuid.UUID, accept bool) (InviteStatus, error) {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	status := InviteDeclined
	if accept {
		status = InviteAccepted
	}
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		invite, err := repo.GetInvite(ctx, reimbursementId, current.Id)
		if err != nil {
			return err
		}
		if invite.Status != InvitePending {
			return ErrInviteNotFound
		}

		if accept {
			membership, err := repo.GetMembership(ctx, current.Id)
			switch {
			case errors.Is(err, ErrNotMember):
				if err := repo.AddMember(ctx, reimbursementId, current.Id); err != nil {
					return err
				}
			case err != nil:
				return err
			case membership != reimbursementId:
				return fmt.Errorf("%w: leave it before joining another", ErrAlreadyMember)
			}
		}
		return repo.SetInviteStatus(ctx, invite.Id, status)
	})
	if err != nil {
		return "", err
	}

	log.Infof("%s %s the invite to reimbursement %s", current.Username, strings.ToLower(string(status)), reimbursementId)
	return status, nil
}

// Update changes the request details and invites members not invited yet.
// Only the leader may update. Members already in another reimbursement are
// skipped.
func (s *ServiceImpl) Update(ctx context.Context, reimbursementId uuid.UUID, request Request) (Details, error) {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return Details{}, err
	}
	members, err := s.resolveMembers(ctx, current, request.Members)
	if err != nil {
		return Details{}, err
	}

	var updated Reimbursement
	err = s.repo.WithTransaction(ctx, func(repo Repository) error {
		reimbursement, err := repo.GetReimbursement(ctx, reimbursementId)
		if err != nil {
			return err
		}
		if reimbursement.CreatorId != current.Id {
			return user.ErrForbidden
		}
		request.apply(&reimbursement)
		if err := Validate(reimbursement); err != nil {
			return err
		}
		if err := repo.UpdateReimbursement(ctx, reimbursement); err != nil {
			return err
		}
		updated = reimbursement

		invites, err := repo.GetInvites(ctx, reimbursementId)
		if err != nil {
			return err
		}
		invited := make(map[int]bool, len(invites))
		for _, invite := range invites {
			invited[invite.User.Id] = true
		}
		now := s.clock.Now()
		for _, m := range members {
			if invited[m.Id] {
				continue
			}
			if _, err := repo.GetMembership(ctx, m.Id); err == nil {
				log.Debugf("reimbursement %s: not inviting %s, already a member elsewhere", reimbursementId, m.Username)
				continue
			} else if !errors.Is(err, ErrNotMember) {
				return err
			}
			if len(invited) == MaxGroupMembers {
				return ErrTooManyMembers
			}
			if err := repo.StoreInvite(ctx, reimbursementId, m.Id, now); err != nil {
				return fmt.Errorf("failed to invite %s: %w", m.Username, err)
			}
			invited[m.Id] = true
		}
		return nil
	})
	if err != nil {
		return Details{}, err
	}
	return s.details(ctx, updated)
}

// Delete removes the request with its memberships and invites. Only the
// leader may delete.
func (s *ServiceImpl) Delete(ctx context.Context, reimbursementId uuid.UUID) error {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return s.repo.WithTransaction(ctx, func(repo Repository) error {
		reimbursement, err := repo.GetReimbursement(ctx, reimbursementId)
		if err != nil {
			return err
		}
		if reimbursement.CreatorId != current.Id {
			return user.ErrForbidden
		}
		return repo.DeleteReimbursement(ctx, reimbursementId)
	})
}

func (s *ServiceImpl) Status(ctx context.Context) (Status, error) {
	current, err := user.CurrentUser(ctx)
	if err != nil {
		return Status{}, err
	}

	var status Status
	membership, err := s.repo.GetMembership(ctx, current.Id)
	switch {
	case err == nil:
		reimbursement, err := s.repo.GetReimbursement(ctx, membership)
		if err != nil {
			return Status{}, err
		}
		details, err := s.details(ctx, reimbursement)
		if err != nil {
			return Status{}, err
		}
		status.Reimbursement = &details
		status.Leader = reimbursement.CreatorId == current.Id
	case !errors.Is(err, ErrNotMember):
		return Status{}, err
	}

	status.PendingInvites, err = s.repo.GetPendingInvites(ctx, current.Id)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get pending invites: %w", err)
	}
	return status, nil
}

// List returns every request for the admin dashboard, newest first.
func (s *ServiceImpl) List(ctx context.Context) ([]Details, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return nil, err
	}
	reimbursements, err := s.repo.GetAllReimbursements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reimbursements: %w", err)
	}
	all := make([]Details, 0, len(reimbursements))
	for _, r := range reimbursements {
		details, err := s.details(ctx, r)
		if err != nil {
			return nil, err
		}
		all = append(all, details)
	}
	return all, nil
}

func (s *ServiceImpl) details(ctx context.Context, reimbursement Reimbursement) (Details, error) {
	creator, err := s.users.GetUser(ctx, reimbursement.CreatorId)
	if err != nil {
		return Details{}, fmt.Errorf("failed to get reimbursement creator: %w", err)
	}
	invites, err := s.repo.GetInvites(ctx, reimbursement.Id)
	if err != nil {
		return Details{}, fmt.Errorf("failed to get invites: %w", err)
	}
	return Details{Reimbursement: reimbursement, Creator: creator, Invites: invites}, nil
}
