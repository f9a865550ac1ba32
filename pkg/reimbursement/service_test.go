package reimbursement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var friday = time.Date(2025, 2, 21, 18, 0, 0, 0, time.UTC)

type serviceFixture struct {
	service *ServiceImpl
	repo    *RepositoryStub
	users   *user.StubUserRepository
	clock   *utils.MockClock
	admin   user.User
	ada     user.User
	bob     user.User
	carol   user.User
}

func setupServiceTest(t *testing.T) serviceFixture {
	userRepo := user.NewStubUserRepository()
	repo := NewRepositoryStub(userRepo)
	clock := &utils.MockClock{FixedNow: friday}
	f := serviceFixture{
		service: NewService(repo, user.NewUserService(userRepo), clock),
		repo:    repo,
		users:   userRepo,
		clock:   clock,
	}
	f.admin = f.createUser(t, "admin", user.RoleAdmin)
	f.ada = f.createUser(t, "ada", user.RoleParticipant)
	f.bob = f.createUser(t, "bob", user.RoleParticipant)
	f.carol = f.createUser(t, "carol", user.RoleParticipant)
	return f
}

func (f serviceFixture) createUser(t *testing.T, username string, role user.Role) user.User {
	u := user.User{Uid: username + "-uid", BadgeCode: username + "-badge", Username: username, DisplayName: username, Role: role}
	id, err := f.users.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.Id = id
	return u
}

func as(u user.User) context.Context {
	return user.WithUser(context.Background(), u)
}

func validRequest() Request {
	return Request{
		Transport:     Car,
		Address:       "1 Main Street, Springfield",
		Distance:      120,
		EstimatedCost: 45.5,
		Reason:        "Driving in from out of town",
	}
}

func groupRequest(members ...string) Request {
	r := validRequest()
	r.Group = true
	r.Members = members
	return r
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(r *Request)
		message string
	}{
		{name: "unknown transport", modify: func(r *Request) { r.Transport = "Teleport" }, message: `Transport "Teleport"`},
		{name: "short address", modify: func(r *Request) { r.Address = " 1 A " }, message: "Address must be at least 5 characters"},
		{name: "zero distance", modify: func(r *Request) { r.Distance = 0 }, message: "Distance must be positive"},
		{name: "negative cost", modify: func(r *Request) { r.EstimatedCost = -1 }, message: "EstimatedCost must not be negative"},
		{name: "short reason", modify: func(r *Request) { r.Reason = "far" }, message: "Reason must be at least 10 characters"},
	}

	valid := Reimbursement{}
	validRequest().apply(&valid)
	require.NoError(t, Validate(valid))

	free := validRequest()
	free.EstimatedCost = 0
	zeroCost := Reimbursement{}
	free.apply(&zeroCost)
	require.NoError(t, Validate(zeroCost), "a free trip is allowed")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request := validRequest()
			tc.modify(&request)
			var r Reimbursement
			request.apply(&r)
			err := Validate(r)
			require.ErrorIs(t, err, ErrInvalidReimbursement)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestSubmit_Solo(t *testing.T) {
	f := setupServiceTest(t)
	request := validRequest()
	request.Members = []string{"bob"}

	details, err := f.service.Submit(as(f.ada), request)

	require.NoError(t, err)
	assert.Equal(t, f.ada.Id, details.CreatorId)
	assert.Equal(t, "ada", details.Creator.Username)
	assert.True(t, details.CreatedAt.Equal(friday))
	assert.False(t, details.Group(), "members are ignored for solo requests")

	status, err := f.service.Status(as(f.ada))
	require.NoError(t, err)
	require.NotNil(t, status.Reimbursement)
	assert.Equal(t, details.Id, status.Reimbursement.Id)
	assert.True(t, status.Leader)

	_, err = f.service.Submit(as(f.ada), validRequest())
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestSubmit_Group(t *testing.T) {
	f := setupServiceTest(t)

	details, err := f.service.Submit(as(f.ada), groupRequest("bob", " carol ", "bob"))

	require.NoError(t, err)
	assert.True(t, details.Group())
	require.Len(t, details.Invites, 2)
	assert.Equal(t, "bob", details.Invites[0].User.Username)
	assert.Equal(t, InvitePending, details.Invites[0].Status)

	status, err := f.service.Status(as(f.bob))
	require.NoError(t, err)
	assert.Nil(t, status.Reimbursement, "invited members join only after accepting")
	require.Len(t, status.PendingInvites, 1)
	assert.Equal(t, details.Id, status.PendingInvites[0].ReimbursementId)
	assert.Equal(t, "ada", status.PendingInvites[0].Leader.Username)
}

func TestSubmit_GroupRules(t *testing.T) {
	f := setupServiceTest(t)

	_, err := f.service.Submit(as(f.ada), groupRequest())
	assert.ErrorIs(t, err, ErrNoMembers)

	_, err = f.service.Submit(as(f.ada), groupRequest("nobody"))
	assert.ErrorIs(t, err, ErrInvalidMember)

	_, err = f.service.Submit(as(f.ada), groupRequest("ada"))
	assert.ErrorIs(t, err, ErrNoMembers, "the leader does not count as a member")

	many := make([]string, 0, MaxGroupMembers+1)
	for i := 0; i <= MaxGroupMembers; i++ {
		many = append(many, f.createUser(t, fmt.Sprintf("member%d", i), user.RoleParticipant).Username)
	}
	_, err = f.service.Submit(as(f.ada), groupRequest(many...))
	assert.ErrorIs(t, err, ErrTooManyMembers)

	details, err := f.service.Submit(as(f.ada), groupRequest(many[:MaxGroupMembers]...))
	require.NoError(t, err)
	assert.Len(t, details.Invites, MaxGroupMembers)
}

func TestSubmit_MemberAlreadyInAnotherReimbursement(t *testing.T) {
	f := setupServiceTest(t)
	_, err := f.service.Submit(as(f.carol), validRequest())
	require.NoError(t, err)

	_, err = f.service.Submit(as(f.ada), groupRequest("bob", "carol"))

	require.ErrorIs(t, err, ErrAlreadyMember)
	assert.Contains(t, err.Error(), "carol")
	status, err := f.service.Status(as(f.ada))
	require.NoError(t, err)
	assert.Nil(t, status.Reimbursement, "nothing is stored when the transaction fails")
	status, err = f.service.Status(as(f.bob))
	require.NoError(t, err)
	assert.Empty(t, status.PendingInvites)
}

func TestRespond(t *testing.T) {
	f := setupServiceTest(t)
	details, err := f.service.Submit(as(f.ada), groupRequest("bob", "carol"))
	require.NoError(t, err)

	status, err := f.service.Respond(as(f.bob), details.Id, true)
	require.NoError(t, err)
	assert.Equal(t, InviteAccepted, status)

	bobStatus, err := f.service.Status(as(f.bob))
	require.NoError(t, err)
	require.NotNil(t, bobStatus.Reimbursement)
	assert.Equal(t, details.Id, bobStatus.Reimbursement.Id)
	assert.False(t, bobStatus.Leader)
	assert.Empty(t, bobStatus.PendingInvites)

	status, err = f.service.Respond(as(f.carol), details.Id, false)
	require.NoError(t, err)
	assert.Equal(t, InviteDeclined, status)
	carolStatus, err := f.service.Status(as(f.carol))
	require.NoError(t, err)
	assert.Nil(t, carolStatus.Reimbursement)

	_, err = f.service.Respond(as(f.carol), details.Id, true)
	assert.ErrorIs(t, err, ErrInviteNotFound, "answered invites cannot be answered again")
	_, err = f.service.Respond(as(f.ada), details.Id, true)
	assert.ErrorIs(t, err, ErrInviteNotFound)
	_, err = f.service.Respond(context.Background(), details.Id, true)
	assert.ErrorIs(t, err, user.ErrNoUser)
}

func TestRespond_AcceptWhileInAnotherReimbursement(t *testing.T) {
	f := setupServiceTest(t)
	details, err := f.service.Submit(as(f.ada), groupRequest("bob"))
	require.NoError(t, err)
	_, err = f.service.Submit(as(f.bob), validRequest())
	require.NoError(t, err)

	_, err = f.service.Respond(as(f.bob), details.Id, true)
	require.ErrorIs(t, err, ErrAlreadyMember)

	bobStatus, err := f.service.Status(as(f.bob))
	require.NoError(t, err)
	require.Len(t, bobStatus.PendingInvites, 1, "the invite stays pending")

	status, err := f.service.Respond(as(f.bob), details.Id, false)
	require.NoError(t, err)
	assert.Equal(t, InviteDeclined, status)
}

func TestUpdate(t *testing.T) {
	f := setupServiceTest(t)
	details, err := f.service.Submit(as(f.ada), groupRequest("bob"))
	require.NoError(t, err)
	dave := f.createUser(t, "dave", user.RoleParticipant)
	_, err = f.service.Submit(as(dave), validRequest())
	require.NoError(t, err)

	request := groupRequest("bob", "carol", "dave")
	request.Transport = Train
	request.EstimatedCost = 30
	updated, err := f.service.Update(as(f.ada), details.Id, request)

	require.NoError(t, err)
	assert.Equal(t, Train, updated.Transport)
	assert.Equal(t, 30.0, updated.EstimatedCost)
	assert.True(t, updated.CreatedAt.Equal(details.CreatedAt))
	var invited []string
	for _, invite := range updated.Invites {
		invited = append(invited, invite.User.Username)
	}
	assert.Equal(t, []string{"bob", "carol"}, invited, "dave belongs to another reimbursement and is skipped")

	_, err = f.service.Update(as(f.bob), details.Id, request)
	assert.ErrorIs(t, err, user.ErrForbidden)
	_, err = f.service.Update(as(f.ada), uuid.New(), request)
	assert.ErrorIs(t, err, ErrReimbursementNotFound)

	invalid := request
	invalid.Reason = "short"
	_, err = f.service.Update(as(f.ada), details.Id, invalid)
	assert.ErrorIs(t, err, ErrInvalidReimbursement)
}

func TestDelete(t *testing.T) {
	f := setupServiceTest(t)
	details, err := f.service.Submit(as(f.ada), groupRequest("bob"))
	require.NoError(t, err)
	_, err = f.service.Respond(as(f.bob), details.Id, true)
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.Delete(as(f.bob), details.Id), user.ErrForbidden)
	require.NoError(t, f.service.Delete(as(f.ada), details.Id))
	assert.ErrorIs(t, f.service.Delete(as(f.ada), details.Id), ErrReimbursementNotFound)

	bobStatus, err := f.service.Status(as(f.bob))
	require.NoError(t, err)
	assert.Nil(t, bobStatus.Reimbursement, "members are released with the request")

	_, err = f.service.Submit(as(f.bob), validRequest())
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	f := setupServiceTest(t)
	_, err := f.service.Submit(as(f.ada), validRequest())
	require.NoError(t, err)
	f.clock.FixedNow = friday.Add(time.Hour)
	_, err = f.service.Submit(as(f.bob), groupRequest("carol"))
	require.NoError(t, err)

	_, err = f.service.List(as(f.ada))
	assert.ErrorIs(t, err, user.ErrForbidden)

	all, err := f.service.List(as(f.admin))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "bob", all[0].Creator.Username, "newest first")
	assert.Len(t, all[0].Invites, 1)
	assert.Equal(t, "ada", all[1].Creator.Username)
}
