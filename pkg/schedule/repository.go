package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("schedule event not found")

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreEvent(ctx context.Context, event Event) (uuid.UUID, error)
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	// GetEvents returns events overlapping [from, to], boundaries included.
	GetEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
	GetSourceEvents(ctx context.Context, sourceId string) ([]Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	AddFavorite(ctx context.Context, userId int, eventId uuid.UUID) error
	RemoveFavorite(ctx context.Context, userId int, eventId uuid.UUID) error
	GetFavorites(ctx context.Context, userId int) ([]uuid.UUID, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
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
		// no-op once committed
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

const eventColumns = `id, name, start_date, end_date, location, description, event_type, source_id, source_uid`

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	var location, description, sourceId, sourceUid *string
	var eventType string
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.StartDate,
		&event.EndDate,
		&location,
		&description,
		&eventType,
		&sourceId,
		&sourceUid,
	)
	if err != nil {
		return Event{}, err
	}
	event.EventType = EventType(eventType)
	if location != nil {
		event.Location = *location
	}
	if description != nil {
		event.Description = *description
	}
	if sourceId != nil {
		event.SourceId = *sourceId
	}
	if sourceUid != nil {
		event.SourceUid = *sourceUid
	}
	return event, nil
}

func (r *RepositoryImpl) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query schedule events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (uuid.UUID, error) {
	query := `INSERT INTO schedule_event (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.getQueryer().Exec(ctx, query,
		id,
		event.Name,
		event.StartDate,
		event.EndDate,
		nullable(event.Location),
		nullable(event.Description),
		string(event.EventType),
		nullable(event.SourceId),
		nullable(event.SourceUid),
	)
	if err != nil {
		err := fmt.Errorf("could not insert schedule event: %w", err)
		log.Error(err)
		return uuid.Nil, err
	}
	return id, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM schedule_event WHERE id = $1`
	event, err := scanEvent(r.getQueryer().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		log.Errorf("could not get schedule event %s: %v", id, err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) GetEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM schedule_event
			  WHERE start_date <= $1 AND end_date >= $2
			  ORDER BY start_date, name`
	return r.queryEvents(ctx, query, to, from)
}

func (r *RepositoryImpl) GetAllEvents(ctx context.Context) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM schedule_event ORDER BY start_date, name`
	return r.queryEvents(ctx, query)
}

func (r *RepositoryImpl) GetSourceEvents(ctx context.Context, sourceId string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM schedule_event WHERE source_id = $1 ORDER BY start_date`
	return r.queryEvents(ctx, query, sourceId)
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) error {
	query := `UPDATE schedule_event
			  SET name = $1, start_date = $2, end_date = $3, location = $4, description = $5, event_type = $6
			  WHERE id = $7`
	tag, err := r.getQueryer().Exec(ctx, query,
		event.Name,
		event.StartDate,
		event.EndDate,
		nullable(event.Location),
		nullable(event.Description),
		string(event.EventType),
		event.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not update schedule event: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.getQueryer().Exec(ctx, `DELETE FROM schedule_event WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not delete schedule event: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) AddFavorite(ctx context.Context, userId int, eventId uuid.UUID) error {
	query := `INSERT INTO schedule_favorite (user_id, event_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.getQueryer().Exec(ctx, query, userId, eventId)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrEventNotFound
		}
		log.Errorf("could not add favorite: %v", err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) RemoveFavorite(ctx context.Context, userId int, eventId uuid.UUID) error {
	_, err := r.getQueryer().Exec(ctx, `DELETE FROM schedule_favorite WHERE user_id = $1 AND event_id = $2`, userId, eventId)
	if err != nil {
		log.Errorf("could not remove favorite: %v", err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) GetFavorites(ctx context.Context, userId int) ([]uuid.UUID, error) {
	rows, err := r.getQueryer().Query(ctx, `SELECT event_id FROM schedule_favorite WHERE user_id = $1`, userId)
	if err != nil {
		log.Errorf("could not query favorites: %v", err)
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("could not collect favorites: %w", err)
	}
	return ids, nil
}
