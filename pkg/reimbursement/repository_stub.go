package reimbursement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
)

type stubInvite struct {
	id              int
	reimbursementId uuid.UUID
	userId          int
	status          InviteStatus
	createdAt       time.Time
}

type stubState struct {
	reimbursements map[uuid.UUID]Reimbursement
	members        map[int]uuid.UUID
	invites        []stubInvite
	nextInvite     int
}

func (s stubState) clone() stubState {
	c := stubState{
		reimbursements: make(map[uuid.UUID]Reimbursement, len(s.reimbursements)),
		members:        make(map[int]uuid.UUID, len(s.members)),
		invites:        append([]stubInvite(nil), s.invites...),
		nextInvite:     s.nextInvite,
	}
	for k, v := range s.reimbursements {
		c.reimbursements[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	return c
}

type RepositoryStub struct {
	mu    sync.Mutex
	users user.Repo
	state stubState
}

// NewRepositoryStub resolves invited users and leaders through users.
func NewRepositoryStub(users user.Repo) *RepositoryStub {
	return &RepositoryStub{
		users: users,
		state: stubState{
			reimbursements: map[uuid.UUID]Reimbursement{},
			members:        map[int]uuid.UUID{},
		},
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	snapshot := r.state.clone()
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.state = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) StoreReimbursement(ctx context.Context, reimbursement Reimbursement) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reimbursement.Id == uuid.Nil {
		reimbursement.Id = uuid.New()
	}
	r.state.reimbursements[reimbursement.Id] = reimbursement
	return reimbursement.Id, nil
}

func (r *RepositoryStub) GetReimbursement(ctx context.Context, id uuid.UUID) (Reimbursement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reimbursement, ok := r.state.reimbursements[id]
	if !ok {
		return Reimbursement{}, ErrReimbursementNotFound
	}
	return reimbursement, nil
}

func (r *RepositoryStub) GetAllReimbursements(ctx context.Context) ([]Reimbursement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Reimbursement, 0, len(r.state.reimbursements))
	for _, reimbursement := range r.state.reimbursements {
		all = append(all, reimbursement)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Id.String() < all[j].Id.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (r *RepositoryStub) UpdateReimbursement(ctx context.Context, reimbursement Reimbursement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.state.reimbursements[reimbursement.Id]
	if !ok {
		return ErrReimbursementNotFound
	}
	reimbursement.CreatorId = current.CreatorId
	reimbursement.CreatedAt = current.CreatedAt
	r.state.reimbursements[reimbursement.Id] = reimbursement
	return nil
}

func (r *RepositoryStub) DeleteReimbursement(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.reimbursements[id]; !ok {
		return ErrReimbursementNotFound
	}
	delete(r.state.reimbursements, id)
	for userId, reimbursementId := range r.state.members {
		if reimbursementId == id {
			delete(r.state.members, userId)
		}
	}
	kept := r.state.invites[:0]
	for _, invite := range r.state.invites {
		if invite.reimbursementId != id {
			kept = append(kept, invite)
		}
	}
	r.state.invites = kept
	return nil
}

func (r *RepositoryStub) AddMember(ctx context.Context, reimbursementId uuid.UUID, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.members[userId]; ok {
		return ErrAlreadyMember
	}
	r.state.members[userId] = reimbursementId
	return nil
}

func (r *RepositoryStub) GetMembership(ctx context.Context, userId int) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.state.members[userId]
	if !ok {
		return uuid.Nil, ErrNotMember
	}
	return id, nil
}

func (r *RepositoryStub) StoreInvite(ctx context.Context, reimbursementId uuid.UUID, userId int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invite := range r.state.invites {
		if invite.reimbursementId == reimbursementId && invite.userId == userId {
			return ErrAlreadyInvited
		}
	}
	r.state.nextInvite++
	r.state.invites = append(r.state.invites, stubInvite{
		id:              r.state.nextInvite,
		reimbursementId: reimbursementId,
		userId:          userId,
		status:          InvitePending,
		createdAt:       at,
	})
	return nil
}

func (r *RepositoryStub) toInvite(ctx context.Context, invite stubInvite) (Invite, error) {
	u, err := r.users.GetUser(ctx, invite.userId)
	if err != nil {
		return Invite{}, err
	}
	return Invite{
		Id:              invite.id,
		ReimbursementId: invite.reimbursementId,
		User:            u,
		Status:          invite.status,
		CreatedAt:       invite.createdAt,
	}, nil
}

func (r *RepositoryStub) GetInvite(ctx context.Context, reimbursementId uuid.UUID, userId int) (Invite, error) {
	r.mu.Lock()
	var found *stubInvite
	for _, invite := range r.state.invites {
		if invite.reimbursementId == reimbursementId && invite.userId == userId {
			found = &invite
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return Invite{}, ErrInviteNotFound
	}
	return r.toInvite(ctx, *found)
}

func (r *RepositoryStub) GetInvites(ctx context.Context, reimbursementId uuid.UUID) ([]Invite, error) {
	r.mu.Lock()
	var matching []stubInvite
	for _, invite := range r.state.invites {
		if invite.reimbursementId == reimbursementId {
			matching = append(matching, invite)
		}
	}
	r.mu.Unlock()

	invites := make([]Invite, 0, len(matching))
	for _, invite := range matching {
		converted, err := r.toInvite(ctx, invite)
		if err != nil {
			return nil, err
		}
		invites = append(invites, converted)
	}
	return invites, nil
}

func (r *RepositoryStub) GetPendingInvites(ctx context.Context, userId int) ([]PendingInvite, error) {
	r.mu.Lock()
	var pending []PendingInvite
	var leaders []int
	for _, invite := range r.state.invites {
		if invite.userId != userId || invite.status != InvitePending {
			continue
		}
		pending = append(pending, PendingInvite{ReimbursementId: invite.reimbursementId, CreatedAt: invite.createdAt})
		leaders = append(leaders, r.state.reimbursements[invite.reimbursementId].CreatorId)
	}
	r.mu.Unlock()

	for i := range pending {
		leader, err := r.users.GetUser(ctx, leaders[i])
		if err != nil {
			return nil, err
		}
		pending[i].Leader = leader
	}
	return pending, nil
}

func (r *RepositoryStub) SetInviteStatus(ctx context.Context, inviteId int, status InviteStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.state.invites {
		if r.state.invites[i].id == inviteId {
			r.state.invites[i].status = status
			return nil
		}
	}
	return ErrInviteNotFound
}
