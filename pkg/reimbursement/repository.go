package reimbursement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrReimbursementNotFound = errors.New("reimbursement not found")
	ErrInviteNotFound        = errors.New("no pending invite found for this reimbursement")
	ErrNotMember             = errors.New("user has no reimbursement")
	ErrAlreadyMember         = errors.New("user already belongs to a travel reimbursement")
	ErrAlreadyInvited        = errors.New("user has already been invited")
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreReimbursement(ctx context.Context, r Reimbursement) (uuid.UUID, error)
	GetReimbursement(ctx context.Context, id uuid.UUID) (Reimbursement, error)
	GetAllReimbursements(ctx context.Context) ([]Reimbursement, error)
	UpdateReimbursement(ctx context.Context, r Reimbursement) error
	DeleteReimbursement(ctx context.Context, id uuid.UUID) error
	// AddMember returns ErrAlreadyMember when the user belongs to any reimbursement.
	AddMember(ctx context.Context, reimbursementId uuid.UUID, userId int) error
	// GetMembership returns the reimbursement the user belongs to, or ErrNotMember.
	GetMembership(ctx context.Context, userId int) (uuid.UUID, error)
	StoreInvite(ctx context.Context, reimbursementId uuid.UUID, userId int, at time.Time) error
	GetInvite(ctx context.Context, reimbursementId uuid.UUID, userId int) (Invite, error)
	GetInvites(ctx context.Context, reimbursementId uuid.UUID) ([]Invite, error)
	GetPendingInvites(ctx context.Context, userId int) ([]PendingInvite, error)
	SetInviteStatus(ctx context.Context, inviteId int, status InviteStatus) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const reimbursementColumns = `id, creator_id, transportation_method, address, distance, estimated_cost, reason, created_at`

func scanReimbursement(row pgx.Row) (Reimbursement, error) {
	var r Reimbursement
	var transport string
	err := row.Scan(&r.Id, &r.CreatorId, &transport, &r.Address, &r.Distance, &r.EstimatedCost, &r.Reason, &r.CreatedAt)
	r.Transport = Transport(transport)
	return r, err
}

func (r *RepositoryImpl) StoreReimbursement(ctx context.Context, reimbursement Reimbursement) (uuid.UUID, error) {
	id := reimbursement.Id
	if id == uuid.Nil {
		id = uuid.New()
	}
	query := `INSERT INTO reimbursement (` + reimbursementColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.getQueryer().Exec(ctx, query,
		id,
		reimbursement.CreatorId,
		string(reimbursement.Transport),
		reimbursement.Address,
		reimbursement.Distance,
		reimbursement.EstimatedCost,
		reimbursement.Reason,
		reimbursement.CreatedAt,
	)
	if err != nil {
		log.Errorf("failed to store reimbursement: %v", err)
		return uuid.Nil, err
	}
	return id, nil
}

func (r *RepositoryImpl) GetReimbursement(ctx context.Context, id uuid.UUID) (Reimbursement, error) {
	query := `SELECT ` + reimbursementColumns + ` FROM reimbursement WHERE id = $1`
	reimbursement, err := scanReimbursement(r.getQueryer().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reimbursement{}, ErrReimbursementNotFound
	} else if err != nil {
		log.Errorf("failed to get reimbursement: %v", err)
		return Reimbursement{}, err
	}
	return reimbursement, nil
}

func (r *RepositoryImpl) GetAllReimbursements(ctx context.Context) ([]Reimbursement, error) {
	query := `SELECT ` + reimbursementColumns + ` FROM reimbursement ORDER BY created_at DESC, id`
	rows, err := r.getQueryer().Query(ctx, query)
	if err != nil {
		log.Errorf("failed to get reimbursements: %v", err)
		return nil, err
	}
	defer rows.Close()

	reimbursements := make([]Reimbursement, 0, 16)
	for rows.Next() {
		reimbursement, err := scanReimbursement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reimbursement: %w", err)
		}
		reimbursements = append(reimbursements, reimbursement)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return reimbursements, nil
}

func (r *RepositoryImpl) UpdateReimbursement(ctx context.Context, reimbursement Reimbursement) error {
	query := `UPDATE reimbursement
		SET transportation_method = $2, address = $3, distance = $4, estimated_cost = $5, reason = $6
		WHERE id = $1`
	tag, err := r.getQueryer().Exec(ctx, query,
		reimbursement.Id,
		string(reimbursement.Transport),
		reimbursement.Address,
		reimbursement.Distance,
		reimbursement.EstimatedCost,
		reimbursement.Reason,
	)
	if err != nil {
		log.Errorf("failed to update reimbursement: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReimbursementNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteReimbursement(ctx context.Context, id uuid.UUID) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM reimbursement WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete reimbursement: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReimbursementNotFound
	}
	return nil
}

func (r *RepositoryImpl) AddMember(ctx context.Context, reimbursementId uuid.UUID, userId int) error {
	query := `INSERT INTO reimbursement_member (user_id, reimbursement_id) VALUES ($1, $2)`
	if _, err := r.getQueryer().Exec(ctx, query, userId, reimbursementId); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyMember
		}
		log.Errorf("failed to add reimbursement member: %v", err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetMembership(ctx context.Context, userId int) (uuid.UUID, error) {
	query := `SELECT reimbursement_id FROM reimbursement_member WHERE user_id = $1 FOR UPDATE`
	var id uuid.UUID
	err := r.getQueryer().QueryRow(ctx, query, userId).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotMember
	} else if err != nil {
		log.Errorf("failed to get reimbursement membership: %v", err)
		return uuid.Nil, err
	}
	return id, nil
}

func (r *RepositoryImpl) StoreInvite(ctx context.Context, reimbursementId uuid.UUID, userId int, at time.Time) error {
	query := `INSERT INTO reimbursement_invite (reimbursement_id, user_id, status, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.getQueryer().Exec(ctx, query, reimbursementId, userId, string(InvitePending), at); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyInvited
		}
		log.Errorf("failed to store invite: %v", err)
		return err
	}
	return nil
}

const inviteSelect = `SELECT i.id, i.reimbursement_id, i.status, i.created_at, u.id, u.uid, u.username, u.display_name, u.role
	FROM reimbursement_invite i JOIN users u ON u.id = i.user_id`

func scanInvite(row pgx.Row) (Invite, error) {
	var invite Invite
	var status, role string
	err := row.Scan(&invite.Id, &invite.ReimbursementId, &status, &invite.CreatedAt,
		&invite.User.Id, &invite.User.Uid, &invite.User.Username, &invite.User.DisplayName, &role)
	invite.Status = InviteStatus(status)
	invite.User.Role = user.Role(role)
	return invite, err
}

// GetInvite locks the invite for the rest of the transaction.
func (r *RepositoryImpl) GetInvite(ctx context.Context, reimbursementId uuid.UUID, userId int) (Invite, error) {
	query := inviteSelect + ` WHERE i.reimbursement_id = $1 AND i.user_id = $2 FOR UPDATE OF i`
	invite, err := scanInvite(r.getQueryer().QueryRow(ctx, query, reimbursementId, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrInviteNotFound
	} else if err != nil {
		log.Errorf("failed to get invite: %v", err)
		return Invite{}, err
	}
	return invite, nil
}

func (r *RepositoryImpl) GetInvites(ctx context.Context, reimbursementId uuid.UUID) ([]Invite, error) {
	query := inviteSelect + ` WHERE i.reimbursement_id = $1 ORDER BY i.created_at, i.id`
	rows, err := r.getQueryer().Query(ctx, query, reimbursementId)
	if err != nil {
		log.Errorf("failed to get invites: %v", err)
		return nil, err
	}
	defer rows.Close()

	invites := make([]Invite, 0, MaxGroupMembers)
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return invites, nil
}

func (r *RepositoryImpl) GetPendingInvites(ctx context.Context, userId int) ([]PendingInvite, error) {
	query := `SELECT i.reimbursement_id, i.created_at, u.id, u.uid, u.username, u.display_name, u.role
		FROM reimbursement_invite i
		JOIN reimbursement r ON r.id = i.reimbursement_id
		JOIN users u ON u.id = r.creator_id
		WHERE i.user_id = $1 AND i.status = $2
		ORDER BY i.created_at, i.id`
	rows, err := r.getQueryer().Query(ctx, query, userId, string(InvitePending))
	if err != nil {
		log.Errorf("failed to get pending invites: %v", err)
		return nil, err
	}
	defer rows.Close()

	invites := make([]PendingInvite, 0, 4)
	for rows.Next() {
		var invite PendingInvite
		var role string
		err := rows.Scan(&invite.ReimbursementId, &invite.CreatedAt,
			&invite.Leader.Id, &invite.Leader.Uid, &invite.Leader.Username, &invite.Leader.DisplayName, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending invite: %w", err)
		}
		invite.Leader.Role = user.Role(role)
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return invites, nil
}

func (r *RepositoryImpl) SetInviteStatus(ctx context.Context, inviteId int, status InviteStatus) error {
	tag, err := r.getQueryer().Exec(ctx, `UPDATE reimbursement_invite SET status = $2 WHERE id = $1`, inviteId, string(status))
	if err != nil {
		log.Errorf("failed to update invite: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}
