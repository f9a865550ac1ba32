package feed

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// maxOccurrences caps the expansion of a single recurring event.
const maxOccurrences = 500

// Window bounds the expansion of recurring events. Events outside the window
// are dropped.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) overlaps(start, end time.Time) bool {
	return start.Before(w.To) && w.From.Before(end)
}

type vevent struct {
	uid         string
	summary     string
	description string
	location    string
	eventType   schedule.EventType
	start       time.Time
	end         time.Time
	rrule       string
	exdates     []time.Time
	recurrence  *time.Time
}

// ParseEvents reads an iCalendar payload and returns schedule events within
// window. Recurring events are expanded into one event per occurrence whose
// SourceUid carries the occurrence start. All-day events are skipped since
// they have no place on a half-hour grid.
func ParseEvents(r io.Reader, window Window) ([]schedule.Event, error) {
	if !window.From.Before(window.To) {
		return nil, errors.New("import window is empty")
	}
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	var base []vevent
	overrides := make(map[string][]vevent)
	for _, component := range cal.Events() {
		ev, err := parseVEvent(component)
		if err != nil {
			log.Warnf("skipping vevent %q: %v", component.Id(), err)
			continue
		}
		if ev.recurrence != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
			continue
		}
		base = append(base, ev)
	}

	events := make([]schedule.Event, 0, len(base))
	for _, ev := range base {
		if ev.rrule == "" {
			if window.overlaps(ev.start, ev.end) {
				events = append(events, ev.toEvent(ev.uid, ev.start, ev.end))
			}
			continue
		}
		occurrences, err := expand(ev, overrides[ev.uid], window)
		if err != nil {
			log.Warnf("skipping recurring vevent %s: %v", ev.uid, err)
			continue
		}
		events = append(events, occurrences...)
	}
	return events, nil
}

func parseVEvent(component *ics.VEvent) (vevent, error) {
	ev := vevent{uid: component.Id()}
	if ev.uid == "" {
		return vevent{}, errors.New("missing UID")
	}
	if p := component.GetProperty(ics.ComponentPropertyDtStart); p != nil && isDateOnly(p) {
		return vevent{}, errors.New("all-day events are not supported")
	}

	var err error
	if ev.start, err = component.GetStartAt(); err != nil {
		return vevent{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	if ev.end, err = component.GetEndAt(); err != nil {
		return vevent{}, fmt.Errorf("invalid DTEND: %w", err)
	}

	ev.summary = propertyValue(component, ics.ComponentPropertySummary)
	ev.description = propertyValue(component, ics.ComponentPropertyDescription)
	ev.location = propertyValue(component, ics.ComponentPropertyLocation)
	ev.eventType = eventTypeFromCategories(component.GetProperties(ics.ComponentPropertyCategories))
	ev.rrule = propertyValue(component, ics.ComponentPropertyRrule)

	for _, p := range component.GetProperties(ics.ComponentPropertyExdate) {
		for _, value := range strings.Split(p.Value, ",") {
			t, err := parseTime(strings.TrimSpace(value), p.ICalParameters, ev.start.Location())
			if err != nil {
				log.Debugf("vevent %s: ignoring EXDATE %q: %v", ev.uid, value, err)
				continue
			}
			ev.exdates = append(ev.exdates, t)
		}
	}
	if p := component.GetProperty(ics.ComponentPropertyRecurrenceId); p != nil {
		t, err := parseTime(p.Value, p.ICalParameters, ev.start.Location())
		if err != nil {
			return vevent{}, fmt.Errorf("invalid RECURRENCE-ID: %w", err)
		}
		ev.recurrence = &t
	}
	return ev, nil
}

func expand(ev vevent, overrides []vevent, window Window) ([]schedule.Event, error) {
	rule, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE %q: %w", ev.rrule, err)
	}
	rule.DTStart(ev.start)

	var set rrule.Set
	set.RRule(rule)
	for _, exdate := range ev.exdates {
		set.ExDate(exdate.In(ev.start.Location()))
	}

	duration := ev.end.Sub(ev.start)
	// occurrences starting shortly before the window may still reach into it
	starts := set.Between(window.From.Add(-duration), window.To, true)
	if len(starts) > maxOccurrences {
		log.Warnf("vevent %s: truncating %d occurrences to %d", ev.uid, len(starts), maxOccurrences)
		starts = starts[:maxOccurrences]
	}

	events := make([]schedule.Event, 0, len(starts))
	for _, start := range starts {
		occurrence, occurrenceStart, occurrenceEnd := ev, start, start.Add(duration)
		for _, o := range overrides {
			if o.recurrence.Equal(start) {
				occurrence, occurrenceStart, occurrenceEnd = o, o.start, o.end
				break
			}
		}
		if !window.overlaps(occurrenceStart, occurrenceEnd) {
			continue
		}
		uid := ev.uid + "/" + start.UTC().Format("20060102T150405Z")
		events = append(events, occurrence.toEvent(uid, occurrenceStart, occurrenceEnd))
	}
	return events, nil
}

func (ev vevent) toEvent(uid string, start, end time.Time) schedule.Event {
	return schedule.Event{
		Name:        ev.summary,
		StartDate:   start,
		EndDate:     end,
		Location:    ev.location,
		Description: ev.description,
		EventType:   ev.eventType,
		SourceUid:   uid,
	}
}

// eventTypeFromCategories picks the first category naming an event type.
func eventTypeFromCategories(properties []*ics.IANAProperty) schedule.EventType {
	for _, p := range properties {
		for _, category := range strings.Split(p.Value, ",") {
			if t, err := schedule.ParseEventType(category); err == nil {
				return t
			}
		}
	}
	return schedule.Activities
}

func propertyValue(component *ics.VEvent, property ics.ComponentProperty) string {
	if p := component.GetProperty(property); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func isDateOnly(p *ics.IANAProperty) bool {
	if values, ok := p.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseTime reads DATE-TIME values of EXDATE and RECURRENCE-ID, honouring
// TZID. Floating times are read in fallback.
func parseTime(value string, params map[string][]string, fallback *time.Location) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		return time.Parse("20060102T150405Z", value)
	}
	loc := fallback
	if tzid, ok := params["TZID"]; ok && len(tzid) > 0 {
		l, err := time.LoadLocation(tzid[0])
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	if strings.Contains(value, "T") {
		return time.ParseInLocation("20060102T150405", value, loc)
	}
	return time.ParseInLocation("20060102", value, loc)
}
