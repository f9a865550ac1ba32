package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const (
	sourceKey   = "source"
	sourceValue = "hackgrid"
)

type SyncResult struct {
	Pushed  int `json:"pushed"`
	Removed int `json:"removed"`
}

// Mirror keeps a shared Google Calendar in sync with the schedule. Google
// event ids are derived from schedule ids, so repeated pushes are idempotent.
type Mirror struct {
	service    *gcal.Service
	schedule   schedule.Service
	calendarId string
	timezone   string
}

func NewMirror(service *gcal.Service, scheduleService schedule.Service, calendarId string, timezone string) *Mirror {
	return &Mirror{
		service:    service,
		schedule:   scheduleService,
		calendarId: calendarId,
		timezone:   timezone,
	}
}

// Subscribe pushes every schedule change published on bus.
func (m *Mirror) Subscribe(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.ScheduleEventCreated, m.onChanged)
	event_bus.SubscribeTyped(bus, event_bus.ScheduleEventUpdated, m.onChanged)
	event_bus.SubscribeTyped(bus, event_bus.ScheduleEventDeleted, func(e event_bus.EventT[event_bus.ScheduleEventChanged]) error {
		return m.remove(e.Context(), googleId(e.Data.Id))
	})
}

func (m *Mirror) onChanged(e event_bus.EventT[event_bus.ScheduleEventChanged]) error {
	return m.upsert(e.Context(), m.toGoogleEvent(e.Data))
}

// SyncAll pushes the whole schedule and removes mirrored events that no
// longer exist in it.
func (m *Mirror) SyncAll(ctx context.Context) (SyncResult, error) {
	events, err := m.schedule.ListEvents(ctx, schedule.Filter{})
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to list events: %w", err)
	}

	var result SyncResult
	known := make(map[string]bool, len(events))
	for _, ev := range events {
		googleEvent := m.toGoogleEvent(event_bus.ScheduleEventChanged{
			Id:          ev.ID.String(),
			Name:        ev.Name,
			StartDate:   ev.StartDate,
			EndDate:     ev.EndDate,
			Location:    ev.Location,
			Description: ev.Description,
			EventType:   string(ev.EventType),
		})
		if err := m.upsert(ctx, googleEvent); err != nil {
			return result, err
		}
		known[googleEvent.Id] = true
		result.Pushed++
	}

	var stale []string
	err = m.service.Events.List(m.calendarId).
		PrivateExtendedProperty(sourceKey+"="+sourceValue).
		ShowDeleted(false).
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				if !known[item.Id] {
					stale = append(stale, item.Id)
				}
			}
			return nil
		})
	if err != nil {
		err := fmt.Errorf("unable to retrieve events from Google Calendar: %v", err)
		log.Error(err)
		return result, err
	}
	for _, id := range stale {
		if err := m.remove(ctx, id); err != nil {
			return result, err
		}
		result.Removed++
	}

	log.Infof("Google Calendar sync: %d pushed, %d removed", result.Pushed, result.Removed)
	return result, nil
}

// upsert updates the mirrored event, inserting it when Google does not know
// it yet.
func (m *Mirror) upsert(ctx context.Context, event *gcal.Event) error {
	_, err := m.service.Events.Update(m.calendarId, event.Id, event).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		err := fmt.Errorf("unable to update event in Google Calendar: %v", err)
		log.Error(err)
		return err
	}

	log.Debugf("event %s not mirrored yet, inserting", event.Id)
	if _, err := m.service.Events.Insert(m.calendarId, event).Context(ctx).Do(); err != nil {
		err := fmt.Errorf("unable to insert event in Google Calendar: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (m *Mirror) remove(ctx context.Context, id string) error {
	err := m.service.Events.Delete(m.calendarId, id).Context(ctx).Do()
	if err != nil && !hasStatus(err, http.StatusNotFound, http.StatusGone) {
		err := fmt.Errorf("unable to delete event from Google Calendar: %v", err)
		log.Error(err)
		return err
	}
	return nil
}

func (m *Mirror) toGoogleEvent(e event_bus.ScheduleEventChanged) *gcal.Event {
	return &gcal.Event{
		Id:          googleId(e.Id),
		Summary:     e.Name,
		Location:    e.Location,
		Description: e.Description,
		Start: &gcal.EventDateTime{
			DateTime: e.StartDate.Format(time.RFC3339),
			TimeZone: m.timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: e.EndDate.Format(time.RFC3339),
			TimeZone: m.timezone,
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				sourceKey:   sourceValue,
				"eventType": e.EventType,
			},
		},
	}
}

// googleId maps a schedule id onto Google's base32hex id alphabet.
func googleId(scheduleId string) string {
	return strings.ReplaceAll(strings.ToLower(scheduleId), "-", "")
}

func hasStatus(err error, codes ...int) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}
