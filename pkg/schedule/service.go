package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	log "github.com/sirupsen/logrus"
)

const upNextWindow = 7 * 24 * time.Hour

type Service interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	ListEvents(ctx context.Context, filter Filter) ([]Event, error)
	Days(ctx context.Context, filter Filter, loc *time.Location) ([]Day, error)
	Happening(ctx context.Context) ([]Event, error)
	UpNext(ctx context.Context, limit int) ([]Event, error)
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	Favorites(ctx context.Context) ([]uuid.UUID, error)
	ReplaceImported(ctx context.Context, sourceId string, events []Event) (ImportResult, error)
}

// ImportResult counts the changes made while replacing a source's events.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

type ServiceImpl struct {
	repo  Repository
	bus   *event_bus.EventBus
	clock utils.Clock
}

func NewService(repo Repository, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:  repo,
		bus:   bus,
		clock: clock,
	}
}

func (s *ServiceImpl) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return Event{}, err
	}
	event.ID = uuid.Nil
	event.SourceId = ""
	event.SourceUid = ""
	if err := Validate(event); err != nil {
		return Event{}, err
	}

	id, err := s.repo.StoreEvent(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	event.ID = id
	log.Debugf("created schedule event %s (%s)", event.ID, event.Name)

	s.publish(ctx, event_bus.ScheduleEventCreated, event)
	return event, nil
}

func (s *ServiceImpl) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return Event{}, err
	}
	if err := Validate(event); err != nil {
		return Event{}, err
	}

	existing, err := s.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return Event{}, err
	}
	event.SourceId = existing.SourceId
	event.SourceUid = existing.SourceUid

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	s.publish(ctx, event_bus.ScheduleEventUpdated, event)
	return event, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if _, err := user.RequireRole(ctx, user.RoleAdmin); err != nil {
		return err
	}
	existing, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.publish(ctx, event_bus.ScheduleEventDeleted, existing)
	return nil
}

func (s *ServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *ServiceImpl) ListEvents(ctx context.Context, filter Filter) ([]Event, error) {
	events, err := s.repo.GetAllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	events = filter.Apply(events)

	if filter.FavoritesOnly {
		favorites, err := s.Favorites(ctx)
		if err != nil {
			return nil, err
		}
		favoriteSet := make(map[uuid.UUID]bool, len(favorites))
		for _, id := range favorites {
			favoriteSet[id] = true
		}
		kept := events[:0]
		for _, e := range events {
			if favoriteSet[e.ID] {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	return events, nil
}

func (s *ServiceImpl) Days(ctx context.Context, filter Filter, loc *time.Location) ([]Day, error) {
	events, err := s.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	return GroupByDay(events, loc), nil
}

// Happening returns the events running at the current time.
func (s *ServiceImpl) Happening(ctx context.Context) ([]Event, error) {
	now := s.clock.Now()
	events, err := s.repo.GetEvents(ctx, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	happening := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.StartDate.After(now) && e.EndDate.After(now) {
			happening = append(happening, e)
		}
	}
	return happening, nil
}

// UpNext returns at most limit events starting after the current time.
func (s *ServiceImpl) UpNext(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return []Event{}, nil
	}
	now := s.clock.Now()
	events, err := s.repo.GetEvents(ctx, now, now.Add(upNextWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	upcoming := make([]Event, 0, limit)
	for _, e := range events {
		if len(upcoming) == limit {
			break
		}
		if e.StartDate.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	return upcoming, nil
}

func (s *ServiceImpl) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return err
	}
	if favorite {
		return s.repo.AddFavorite(ctx, userId, id)
	}
	return s.repo.RemoveFavorite(ctx, userId, id)
}

func (s *ServiceImpl) Favorites(ctx context.Context) ([]uuid.UUID, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetFavorites(ctx, userId)
}

// ReplaceImported makes the stored events of sourceId match events, keyed by
// SourceUid. Missing events are created, changed ones updated and events no
// longer present in the source are deleted, all in one transaction. Events
// failing validation are skipped.
func (s *ServiceImpl) ReplaceImported(ctx context.Context, sourceId string, events []Event) (ImportResult, error) {
	if sourceId == "" {
		return ImportResult{}, errors.New("source id is required")
	}

	var result ImportResult
	incoming := make(map[string]Event, len(events))
	order := make([]string, 0, len(events))
	for _, e := range events {
		e.SourceId = sourceId
		if e.SourceUid == "" {
			result.Skipped++
			log.Warnf("import %s: skipping event %q without uid", sourceId, e.Name)
			continue
		}
		if err := Validate(e); err != nil {
			result.Skipped++
			log.Warnf("import %s: skipping event %s: %v", sourceId, e.SourceUid, err)
			continue
		}
		if _, seen := incoming[e.SourceUid]; !seen {
			order = append(order, e.SourceUid)
		}
		incoming[e.SourceUid] = e
	}

	type change struct {
		eventType event_bus.EventType
		event     Event
	}
	var changes []change

	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		existing, err := repo.GetSourceEvents(ctx, sourceId)
		if err != nil {
			return err
		}
		stored := make(map[string]Event, len(existing))
		for _, e := range existing {
			stored[e.SourceUid] = e
		}

		for _, uid := range order {
			e := incoming[uid]
			current, ok := stored[uid]
			if !ok {
				e.ID = uuid.Nil
				id, err := repo.StoreEvent(ctx, e)
				if err != nil {
					return fmt.Errorf("failed to store imported event %s: %w", uid, err)
				}
				e.ID = id
				result.Created++
				changes = append(changes, change{event_bus.ScheduleEventCreated, e})
				continue
			}
			delete(stored, uid)
			e.ID = current.ID
			if sameContent(current, e) {
				continue
			}
			if err := repo.UpdateEvent(ctx, e); err != nil {
				return fmt.Errorf("failed to update imported event %s: %w", uid, err)
			}
			result.Updated++
			changes = append(changes, change{event_bus.ScheduleEventUpdated, e})
		}

		for _, e := range existing {
			if _, gone := stored[e.SourceUid]; !gone {
				continue
			}
			if err := repo.DeleteEvent(ctx, e.ID); err != nil {
				return fmt.Errorf("failed to delete imported event %s: %w", e.SourceUid, err)
			}
			result.Deleted++
			changes = append(changes, change{event_bus.ScheduleEventDeleted, e})
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to replace events of %s: %w", sourceId, err)
	}

	for _, c := range changes {
		s.publish(ctx, c.eventType, c.event)
	}
	log.Infof("import %s: %d created, %d updated, %d deleted, %d skipped",
		sourceId, result.Created, result.Updated, result.Deleted, result.Skipped)
	return result, nil
}

func sameContent(a, b Event) bool {
	return a.Name == b.Name &&
		a.StartDate.Equal(b.StartDate) &&
		a.EndDate.Equal(b.EndDate) &&
		a.Location == b.Location &&
		a.Description == b.Description &&
		a.EventType == b.EventType
}

// publish notifies subscribers. Subscriber failures never fail the mutation.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, event Event) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, event_bus.ScheduleEventChanged{
		Id:          event.ID.String(),
		Name:        event.Name,
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		Location:    event.Location,
		Description: event.Description,
		EventType:   string(event.EventType),
	}))
	if err != nil {
		log.Errorf("failed to publish %s for %s: %v", eventType, event.ID, err)
	}
}
