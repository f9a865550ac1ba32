package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrCheckinNotFound = errors.New("check-in not found")

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	GetCheckin(ctx context.Context, userId int, eventId uuid.UUID) (Checkin, error)
	StoreCheckin(ctx context.Context, checkin Checkin) (int, error)
	StoreScan(ctx context.Context, scan Scan) error
	GetAttendees(ctx context.Context, eventId uuid.UUID) ([]Attendee, error)
	CountScans(ctx context.Context, eventId uuid.UUID) (successful int, failed int, err error)
	GetScanHistory(ctx context.Context, limit int) ([]ScanRecord, error)
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

func (r *RepositoryImpl) GetCheckin(ctx context.Context, userId int, eventId uuid.UUID) (Checkin, error) {
	query := `SELECT id, user_id, admin_id, event_id, created_at FROM checkin WHERE user_id = $1 AND event_id = $2`
	var c Checkin
	err := r.getQueryer().QueryRow(ctx, query, userId, eventId).Scan(&c.Id, &c.UserId, &c.AdminId, &c.EventId, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Checkin{}, ErrCheckinNotFound
	} else if err != nil {
		log.Errorf("failed to get check-in: %v", err)
		return Checkin{}, err
	}
	return c, nil
}

// StoreCheckin returns ErrAlreadyCheckedIn when the participant already has a
// check-in for the event.
func (r *RepositoryImpl) StoreCheckin(ctx context.Context, checkin Checkin) (int, error) {
	query := `INSERT INTO checkin (user_id, admin_id, event_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int
	err := r.getQueryer().QueryRow(ctx, query, checkin.UserId, checkin.AdminId, checkin.EventId, checkin.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyCheckedIn
		}
		log.Errorf("failed to store check-in: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) StoreScan(ctx context.Context, scan Scan) error {
	query := `INSERT INTO scan (user_id, admin_id, event_id, successful, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.getQueryer().Exec(ctx, query, scan.UserId, scan.AdminId, scan.EventId, scan.Successful, scan.CreatedAt)
	if err != nil {
		log.Errorf("failed to store scan: %v", err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetAttendees(ctx context.Context, eventId uuid.UUID) ([]Attendee, error) {
	query := `SELECT u.id, u.uid, u.username, u.display_name, u.role, c.created_at, c.admin_id
		FROM checkin c JOIN users u ON u.id = c.user_id
		WHERE c.event_id = $1
		ORDER BY c.created_at, u.id`
	rows, err := r.getQueryer().Query(ctx, query, eventId)
	if err != nil {
		log.Errorf("failed to get attendees: %v", err)
		return nil, err
	}
	defer rows.Close()

	attendees := make([]Attendee, 0, 16)
	for rows.Next() {
		var a Attendee
		var role string
		if err := rows.Scan(&a.User.Id, &a.User.Uid, &a.User.Username, &a.User.DisplayName, &role, &a.CheckedInAt, &a.AdminId); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		a.User.Role = user.Role(role)
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return attendees, nil
}

func (r *RepositoryImpl) CountScans(ctx context.Context, eventId uuid.UUID) (int, int, error) {
	query := `SELECT count(*) FILTER (WHERE successful), count(*) FILTER (WHERE NOT successful) FROM scan WHERE event_id = $1`
	var successful, failed int
	if err := r.getQueryer().QueryRow(ctx, query, eventId).Scan(&successful, &failed); err != nil {
		log.Errorf("failed to count scans: %v", err)
		return 0, 0, err
	}
	return successful, failed, nil
}

func (r *RepositoryImpl) GetScanHistory(ctx context.Context, limit int) ([]ScanRecord, error) {
	query := `SELECT s.id, s.user_id, s.admin_id, s.event_id, s.successful, s.created_at,
			u.uid, u.username, u.display_name, u.role
		FROM scan s JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1`
	rows, err := r.getQueryer().Query(ctx, query, limit)
	if err != nil {
		log.Errorf("failed to get scan history: %v", err)
		return nil, err
	}
	defer rows.Close()

	records := make([]ScanRecord, 0, limit)
	for rows.Next() {
		var rec ScanRecord
		var role string
		err := rows.Scan(&rec.Id, &rec.UserId, &rec.AdminId, &rec.EventId, &rec.Successful, &rec.CreatedAt,
			&rec.Participant.Uid, &rec.Participant.Username, &rec.Participant.DisplayName, &role)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan record: %w", err)
		}
		rec.Participant.Id = rec.UserId
		rec.Participant.Role = user.Role(role)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return records, nil
}
