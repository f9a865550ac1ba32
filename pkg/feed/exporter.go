package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/hackgrid/hackgrid/internal/config"
	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

const uidDomain = "hackgrid"

// Exporter renders the schedule as an iCalendar feed. Rendered feeds are
// cached per reminder setting until the schedule changes.
type Exporter struct {
	schedule  schedule.Service
	clock     utils.Clock
	name      string
	productId string
	timezone  string

	mu    sync.Mutex
	cache map[int]string
	// generation changes on every invalidation; renders started under an
	// older generation are not cached
	generation uint64
}

func NewExporter(scheduleService schedule.Service, cfg config.Feed, timezone string, clock utils.Clock) *Exporter {
	return &Exporter{
		schedule:  scheduleService,
		clock:     clock,
		name:      cfg.Name,
		productId: cfg.ProductId,
		timezone:  timezone,
		cache:     make(map[int]string),
	}
}

// Subscribe invalidates the cache whenever a schedule event changes.
func (e *Exporter) Subscribe(bus *event_bus.EventBus) {
	for _, eventType := range []event_bus.EventType{
		event_bus.ScheduleEventCreated,
		event_bus.ScheduleEventUpdated,
		event_bus.ScheduleEventDeleted,
	} {
		bus.Subscribe(eventType, func(event_bus.Event) error {
			e.Invalidate()
			return nil
		})
	}
}

func (e *Exporter) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.cache) > 0 {
		log.Debug("ics feed cache invalidated")
	}
	e.cache = make(map[int]string)
	e.generation++
}

// Render returns the feed. A positive reminderMinutes adds a display alarm
// that many minutes before each event.
func (e *Exporter) Render(ctx context.Context, reminderMinutes int) (string, error) {
	e.mu.Lock()
	cached, ok := e.cache[reminderMinutes]
	generation := e.generation
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	events, err := e.schedule.ListEvents(ctx, schedule.Filter{})
	if err != nil {
		return "", fmt.Errorf("failed to list events: %w", err)
	}
	rendered := e.render(events, reminderMinutes)

	e.mu.Lock()
	if e.generation == generation {
		e.cache[reminderMinutes] = rendered
	} else {
		log.Debug("schedule changed during ics render, result not cached")
	}
	e.mu.Unlock()
	return rendered, nil
}

func (e *Exporter) render(events []schedule.Event, reminderMinutes int) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productId)
	cal.SetName(e.name)
	cal.SetXWRCalName(e.name)
	cal.SetXWRTimezone(e.timezone)
	cal.SetRefreshInterval("PT1H")

	stamp := e.clock.Now().UTC()
	for _, ev := range events {
		vevent := cal.AddEvent(fmt.Sprintf("%s@%s", ev.ID, uidDomain))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.StartDate.UTC())
		vevent.SetEndAt(ev.EndDate.UTC())
		vevent.SetSummary(ev.Name)
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		vevent.AddProperty(ics.ComponentPropertyCategories, string(ev.EventType))

		if reminderMinutes > 0 {
			alarm := vevent.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", reminderMinutes))
			alarm.SetProperty(ics.ComponentPropertyDescription, ev.Name)
		}
	}
	log.Debugf("rendered ics feed with %d events at %s", len(events), stamp.Format(time.RFC3339))
	return cal.Serialize()
}
