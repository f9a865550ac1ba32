package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	events    map[uuid.UUID]Event
	favorites map[int]map[uuid.UUID]bool
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		events:    make(map[uuid.UUID]Event),
		favorites: make(map[int]map[uuid.UUID]bool),
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	originalEvents := make(map[uuid.UUID]Event, len(r.events))
	for k, v := range r.events {
		originalEvents[k] = v
	}
	originalFavorites := make(map[int]map[uuid.UUID]bool, len(r.favorites))
	for userId, ids := range r.favorites {
		copied := make(map[uuid.UUID]bool, len(ids))
		for id := range ids {
			copied[id] = true
		}
		originalFavorites[userId] = copied
	}
	r.mu.Unlock()

	err := fn(r)
	if err != nil {
		r.mu.Lock()
		r.events = originalEvents
		r.favorites = originalFavorites
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.events[event.ID] = event
	return event.ID, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) collect(keep func(Event) bool) []Event {
	events := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			events = append(events, e)
		}
	}
	sortByStartAndName(events)
	return events
}

func (r *RepositoryStub) GetEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(e Event) bool {
		return !e.StartDate.After(to) && !e.EndDate.Before(from)
	}), nil
}

func (r *RepositoryStub) GetAllEvents(ctx context.Context) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(Event) bool { return true }), nil
}

func (r *RepositoryStub) GetSourceEvents(ctx context.Context, sourceId string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(e Event) bool { return e.SourceId == sourceId }), nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.events[event.ID]
	if !ok {
		return ErrEventNotFound
	}
	event.SourceId = existing.SourceId
	event.SourceUid = existing.SourceUid
	r.events[event.ID] = event
	return nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	for _, ids := range r.favorites {
		delete(ids, id)
	}
	return nil
}

func (r *RepositoryStub) AddFavorite(ctx context.Context, userId int, eventId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[eventId]; !ok {
		return ErrEventNotFound
	}
	if r.favorites[userId] == nil {
		r.favorites[userId] = make(map[uuid.UUID]bool)
	}
	r.favorites[userId][eventId] = true
	return nil
}

func (r *RepositoryStub) RemoveFavorite(ctx context.Context, userId int, eventId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.favorites[userId], eventId)
	return nil
}

func (r *RepositoryStub) GetFavorites(ctx context.Context, userId int) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.favorites[userId]))
	for id := range r.favorites[userId] {
		ids = append(ids, id)
	}
	return ids, nil
}
