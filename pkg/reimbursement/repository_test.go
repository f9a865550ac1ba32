package reimbursement

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	defer func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			log.Errorf("failed to terminate container: %s", err)
		}
	}()
	code := m.Run()
	os.Exit(code)
}

type dbFixture struct {
	ctx    context.Context
	repo   *RepositoryImpl
	leader int
	member int
}

func setupTestRepository(t *testing.T) dbFixture {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})

	insertUser := func(username string) int {
		var id int
		err := db.QueryRow(ctx,
			`INSERT INTO users (uid, username, display_name, role) VALUES ($1, $2, $2, 'participant') RETURNING id`,
			username+"-uid", username,
		).Scan(&id)
		require.NoError(t, err)
		return id
	}

	return dbFixture{
		ctx:    ctx,
		repo:   NewRepository(db),
		leader: insertUser("ada"),
		member: insertUser("bob"),
	}
}

func (f dbFixture) newReimbursement() Reimbursement {
	r := Reimbursement{CreatorId: f.leader, CreatedAt: friday}
	validRequest().apply(&r)
	return r
}

func (f dbFixture) store(t *testing.T) uuid.UUID {
	id, err := f.repo.StoreReimbursement(f.ctx, f.newReimbursement())
	require.NoError(t, err)
	return id
}

func TestRepository_StoreAndUpdate(t *testing.T) {
	f := setupTestRepository(t)
	id := f.store(t)

	stored, err := f.repo.GetReimbursement(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f.leader, stored.CreatorId)
	assert.Equal(t, Car, stored.Transport)
	assert.Equal(t, 45.5, stored.EstimatedCost)
	assert.True(t, friday.Equal(stored.CreatedAt))

	stored.Transport = Train
	stored.Reason = "Taking the train instead"
	require.NoError(t, f.repo.UpdateReimbursement(f.ctx, stored))
	updated, err := f.repo.GetReimbursement(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Train, updated.Transport)
	assert.Equal(t, "Taking the train instead", updated.Reason)

	all, err := f.repo.GetAllReimbursements(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.repo.GetReimbursement(f.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrReimbursementNotFound)
	assert.ErrorIs(t, f.repo.UpdateReimbursement(f.ctx, Reimbursement{Id: uuid.New()}), ErrReimbursementNotFound)
}

func TestRepository_Membership(t *testing.T) {
	f := setupTestRepository(t)
	first := f.store(t)
	second := f.store(t)

	_, err := f.repo.GetMembership(f.ctx, f.leader)
	assert.ErrorIs(t, err, ErrNotMember)

	require.NoError(t, f.repo.AddMember(f.ctx, first, f.leader))
	membership, err := f.repo.GetMembership(f.ctx, f.leader)
	require.NoError(t, err)
	assert.Equal(t, first, membership)

	assert.ErrorIs(t, f.repo.AddMember(f.ctx, second, f.leader), ErrAlreadyMember)
}

func TestRepository_Invites(t *testing.T) {
	f := setupTestRepository(t)
	id := f.store(t)

	require.NoError(t, f.repo.StoreInvite(f.ctx, id, f.member, friday))
	assert.ErrorIs(t, f.repo.StoreInvite(f.ctx, id, f.member, friday), ErrAlreadyInvited)

	pending, err := f.repo.GetPendingInvites(f.ctx, f.member)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ReimbursementId)
	assert.Equal(t, "ada", pending[0].Leader.Username)

	invite, err := f.repo.GetInvite(f.ctx, id, f.member)
	require.NoError(t, err)
	assert.Equal(t, InvitePending, invite.Status)
	assert.Equal(t, "bob", invite.User.Username)

	require.NoError(t, f.repo.SetInviteStatus(f.ctx, invite.Id, InviteDeclined))
	pending, err = f.repo.GetPendingInvites(f.ctx, f.member)
	require.NoError(t, err)
	assert.Empty(t, pending)

	invites, err := f.repo.GetInvites(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, InviteDeclined, invites[0].Status)

	_, err = f.repo.GetInvite(f.ctx, id, f.leader)
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestRepository_DeleteCascades(t *testing.T) {
	f := setupTestRepository(t)
	id := f.store(t)
	require.NoError(t, f.repo.AddMember(f.ctx, id, f.leader))
	require.NoError(t, f.repo.StoreInvite(f.ctx, id, f.member, friday))

	require.NoError(t, f.repo.DeleteReimbursement(f.ctx, id))

	_, err := f.repo.GetMembership(f.ctx, f.leader)
	assert.ErrorIs(t, err, ErrNotMember)
	invites, err := f.repo.GetInvites(f.ctx, id)
	require.NoError(t, err)
	assert.Empty(t, invites)
	assert.ErrorIs(t, f.repo.DeleteReimbursement(f.ctx, id), ErrReimbursementNotFound)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	f := setupTestRepository(t)
	failure := errors.New("abort")

	err := f.repo.WithTransaction(f.ctx, func(repo Repository) error {
		id, err := repo.StoreReimbursement(f.ctx, f.newReimbursement())
		require.NoError(t, err)
		require.NoError(t, repo.AddMember(f.ctx, id, f.leader))
		return failure
	})
	assert.ErrorIs(t, err, failure)

	all, err := f.repo.GetAllReimbursements(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = f.repo.GetMembership(f.ctx, f.leader)
	assert.ErrorIs(t, err, ErrNotMember)
}
