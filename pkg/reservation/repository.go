package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSlotTaken           = errors.New("that theme and time slot is already taken")
	ErrAlreadyReserved     = errors.New("user already has a themed room reservation")
	ErrReservationNotFound = errors.New("reservation not found")
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	// StoreReservation returns ErrSlotTaken or ErrAlreadyReserved on conflict.
	StoreReservation(ctx context.Context, r Reservation) (int, error)
	GetByCombo(ctx context.Context, combo Combo) (Reservation, error)
	GetByUser(ctx context.Context, userId int) (Reservation, error)
	GetTaken(ctx context.Context) ([]Combo, error)
	GetAll(ctx context.Context) ([]Reservation, error)
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

const reservationColumns = `id, user_id, team_name, members, theme, time_slot, created_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	var theme, timeSlot string
	err := row.Scan(&r.Id, &r.UserId, &r.TeamName, &r.Members, &theme, &timeSlot, &r.CreatedAt)
	r.Theme = Theme(theme)
	r.TimeSlot = TimeSlot(timeSlot)
	return r, err
}

func (r *RepositoryImpl) StoreReservation(ctx context.Context, reservation Reservation) (int, error) {
	query := `INSERT INTO themed_room_reservation (user_id, team_name, members, theme, time_slot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err := r.getQueryer().QueryRow(ctx, query,
		reservation.UserId,
		reservation.TeamName,
		reservation.Members,
		string(reservation.Theme),
		string(reservation.TimeSlot),
		reservation.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "themed_room_reservation_user_key" {
				return 0, ErrAlreadyReserved
			}
			return 0, ErrSlotTaken
		}
		log.Errorf("failed to store reservation: %v", err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) getOne(ctx context.Context, where string, args ...any) (Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM themed_room_reservation WHERE ` + where
	reservation, err := scanReservation(r.getQueryer().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrReservationNotFound
	} else if err != nil {
		log.Errorf("failed to get reservation: %v", err)
		return Reservation{}, err
	}
	return reservation, nil
}

func (r *RepositoryImpl) GetByCombo(ctx context.Context, combo Combo) (Reservation, error) {
	return r.getOne(ctx, `theme = $1 AND time_slot = $2`, string(combo.Theme), string(combo.TimeSlot))
}

func (r *RepositoryImpl) GetByUser(ctx context.Context, userId int) (Reservation, error) {
	return r.getOne(ctx, `user_id = $1`, userId)
}

func (r *RepositoryImpl) GetTaken(ctx context.Context) ([]Combo, error) {
	rows, err := r.getQueryer().Query(ctx, `SELECT theme, time_slot FROM themed_room_reservation ORDER BY theme, time_slot`)
	if err != nil {
		log.Errorf("failed to get taken combos: %v", err)
		return nil, err
	}
	defer rows.Close()

	taken := make([]Combo, 0, len(Themes)*len(TimeSlots))
	for rows.Next() {
		var theme, timeSlot string
		if err := rows.Scan(&theme, &timeSlot); err != nil {
			return nil, fmt.Errorf("failed to scan combo: %w", err)
		}
		taken = append(taken, Combo{Theme: Theme(theme), TimeSlot: TimeSlot(timeSlot)})
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return taken, nil
}

func (r *RepositoryImpl) GetAll(ctx context.Context) ([]Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM themed_room_reservation ORDER BY created_at, id`
	rows, err := r.getQueryer().Query(ctx, query)
	if err != nil {
		log.Errorf("failed to get reservations: %v", err)
		return nil, err
	}
	defer rows.Close()

	reservations := make([]Reservation, 0, 16)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return reservations, nil
}
