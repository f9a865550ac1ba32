package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/hackgrid/hackgrid/internal/config"
	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/internal/test_utils"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saturday = time.Date(2025, 2, 22, 0, 0, 0, 0, time.UTC)

var feedConfig = config.Feed{Name: "Hackathon Schedule", ProductId: "-//hackgrid//schedule//EN"}

func setupScheduleService(t *testing.T) (*schedule.ServiceImpl, *schedule.RepositoryStub, *event_bus.EventBus, *utils.MockClock) {
	repo := schedule.NewRepositoryStub()
	bus := event_bus.NewEventBus()
	clock := &utils.MockClock{FixedNow: saturday}
	return schedule.NewService(repo, bus, clock), repo, bus, clock
}

func storeEvent(t *testing.T, repo *schedule.RepositoryStub, name string, eventType schedule.EventType, startHour, minutes int) {
	start := saturday.Add(time.Duration(startHour) * time.Hour)
	_, err := repo.StoreEvent(context.Background(), schedule.Event{
		Name:      name,
		StartDate: start,
		EndDate:   start.Add(time.Duration(minutes) * time.Minute),
		EventType: eventType,
		Location:  "Main Hall",
	})
	require.NoError(t, err)
}

func TestExporter_Render(t *testing.T) {
	service, repo, bus, clock := setupScheduleService(t)
	storeEvent(t, repo, "Intro to Go", schedule.Workshops, 10, 90)
	exporter := NewExporter(service, feedConfig, "America/Chicago", clock)
	exporter.Subscribe(bus)

	feed, err := exporter.Render(context.Background(), 0)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(feed, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, feed, "PRODID:-//hackgrid//schedule//EN")
	assert.Contains(t, feed, "X-WR-CALNAME:Hackathon Schedule")
	assert.Contains(t, feed, "X-WR-TIMEZONE:America/Chicago")
	assert.Contains(t, feed, "SUMMARY:Intro to Go")
	assert.Contains(t, feed, "DTSTART:20250222T100000Z")
	assert.Contains(t, feed, "DTEND:20250222T113000Z")
	assert.Contains(t, feed, "CATEGORIES:WORKSHOPS")
	assert.NotContains(t, feed, "BEGIN:VALARM")

	withReminder, err := exporter.Render(context.Background(), 15)
	require.NoError(t, err)
	assert.Contains(t, withReminder, "BEGIN:VALARM")
	assert.Contains(t, withReminder, "TRIGGER:-PT15M")
}

func TestExporter_CacheInvalidation(t *testing.T) {
	service, repo, bus, clock := setupScheduleService(t)
	storeEvent(t, repo, "Intro to Go", schedule.Workshops, 10, 60)
	exporter := NewExporter(service, feedConfig, "UTC", clock)
	exporter.Subscribe(bus)

	first, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)

	storeEvent(t, repo, "Silent insert", schedule.Food, 12, 60)
	cached, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, first, cached, "feed is served from cache until the schedule publishes a change")

	ctx := test_utils.AsUser(context.Background(), test_utils.Admin)
	start := saturday.Add(14 * time.Hour)
	_, err = service.CreateEvent(ctx, schedule.Event{Name: "Published", StartDate: start, EndDate: start.Add(time.Hour), EventType: schedule.Sponsor})
	require.NoError(t, err)

	fresh, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, fresh, "SUMMARY:Silent insert")
	assert.Contains(t, fresh, "SUMMARY:Published")
}

// changingSchedule stores an event and invalidates the exporter while the
// first ListEvents call is in flight, as a concurrent admin update would.
type changingSchedule struct {
	schedule.Service
	t        *testing.T
	repo     *schedule.RepositoryStub
	exporter *Exporter
	calls    int
}

func (c *changingSchedule) ListEvents(ctx context.Context, filter schedule.Filter) ([]schedule.Event, error) {
	events, err := c.Service.ListEvents(ctx, filter)
	c.calls++
	if c.calls == 1 {
		storeEvent(c.t, c.repo, "Added during render", schedule.Sponsor, 15, 60)
		c.exporter.Invalidate()
	}
	return events, err
}

func TestExporter_ChangeDuringRenderIsNotCached(t *testing.T) {
	service, repo, _, clock := setupScheduleService(t)
	storeEvent(t, repo, "Intro to Go", schedule.Workshops, 10, 60)
	changing := &changingSchedule{Service: service, t: t, repo: repo}
	exporter := NewExporter(changing, feedConfig, "UTC", clock)
	changing.exporter = exporter

	stale, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)
	assert.NotContains(t, stale, "SUMMARY:Added during render")

	fresh, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, fresh, "SUMMARY:Added during render")
	assert.Equal(t, 2, changing.calls)

	cached, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
	assert.Equal(t, 2, changing.calls, "renders after the change are cached again")
}

func TestExporter_FeedCanBeImportedBack(t *testing.T) {
	service, repo, _, clock := setupScheduleService(t)
	storeEvent(t, repo, "Breakfast", schedule.Food, 8, 60)
	storeEvent(t, repo, "Keynote", schedule.Required, 9, 30)
	exporter := NewExporter(service, feedConfig, "UTC", clock)

	feed, err := exporter.Render(context.Background(), 0)
	require.NoError(t, err)

	events, err := ParseEvents(strings.NewReader(feed), Window{From: saturday, To: saturday.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Breakfast", events[0].Name)
	assert.Equal(t, schedule.Food, events[0].EventType)
	assert.Equal(t, "Main Hall", events[0].Location)
	assert.True(t, events[0].StartDate.Equal(saturday.Add(8*time.Hour)))
	assert.Equal(t, schedule.Required, events[1].EventType)
	assert.True(t, strings.HasSuffix(events[1].SourceUid, "@hackgrid"))
}

const recurringFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//sponsor//feed//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@sponsor\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250221T150000Z\r\n" +
	"DTEND:20250221T153000Z\r\n" +
	"SUMMARY:Mentor office hours\r\n" +
	"CATEGORIES:Sponsor\r\n" +
	"RRULE:FREQ=DAILY;COUNT=3\r\n" +
	"EXDATE:20250222T150000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@sponsor\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"RECURRENCE-ID:20250223T150000Z\r\n" +
	"DTSTART:20250223T160000Z\r\n" +
	"DTEND:20250223T163000Z\r\n" +
	"SUMMARY:Mentor office hours (moved)\r\n" +
	"CATEGORIES:Sponsor\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:swag@sponsor\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250222\r\n" +
	"DTEND;VALUE=DATE:20250223\r\n" +
	"SUMMARY:Swag all day\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:games@sponsor\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250222T200000Z\r\n" +
	"DTEND:20250222T220000Z\r\n" +
	"SUMMARY:Game night\r\n" +
	"LOCATION:Lounge\\, 2nd floor\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:old@sponsor\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20240222T200000Z\r\n" +
	"DTEND:20240222T220000Z\r\n" +
	"SUMMARY:Last year\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func hackathonWindow() Window {
	return Window{From: time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC)}
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents(strings.NewReader(recurringFeed), hackathonWindow())

	require.NoError(t, err)
	byUid := make(map[string]schedule.Event, len(events))
	for _, e := range events {
		byUid[e.SourceUid] = e
	}
	require.Len(t, byUid, 3)

	first, ok := byUid["standup@sponsor/20250221T150000Z"]
	require.True(t, ok)
	assert.Equal(t, "Mentor office hours", first.Name)
	assert.Equal(t, schedule.Sponsor, first.EventType)
	assert.Equal(t, 30*time.Minute, first.Duration())

	moved, ok := byUid["standup@sponsor/20250223T150000Z"]
	require.True(t, ok)
	assert.Equal(t, "Mentor office hours (moved)", moved.Name)
	assert.True(t, moved.StartDate.Equal(time.Date(2025, 2, 23, 16, 0, 0, 0, time.UTC)))

	games, ok := byUid["games@sponsor"]
	require.True(t, ok)
	assert.Equal(t, schedule.Activities, games.EventType, "events without a known category are activities")
	assert.Equal(t, "Lounge, 2nd floor", games.Location)
}

func TestParseEvents_Errors(t *testing.T) {
	_, err := ParseEvents(strings.NewReader("not a calendar"), hackathonWindow())
	assert.Error(t, err)

	_, err = ParseEvents(strings.NewReader(recurringFeed), Window{From: saturday, To: saturday})
	assert.Error(t, err)
}

func TestImporter_Import(t *testing.T) {
	var mu sync.Mutex
	body := recurringFeed
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	service, repo, _, clock := setupScheduleService(t)
	importer := NewImporter(service, clock)
	source := config.ImportSource{
		Id:   "sponsor",
		Url:  server.URL + "/feed.ics?token=secret",
		From: "2025-02-20T00:00:00Z",
		To:   "2025-02-25T00:00:00Z",
	}

	result, err := importer.Import(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, schedule.ImportResult{Created: 3}, result)

	mu.Lock()
	body = strings.Replace(recurringFeed, "SUMMARY:Game night", "SUMMARY:Board game night", 1)
	mu.Unlock()
	result, err = importer.Import(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, schedule.ImportResult{Updated: 1}, result)

	imported, err := repo.GetSourceEvents(context.Background(), "sponsor")
	require.NoError(t, err)
	assert.Len(t, imported, 3)

	mu.Lock()
	status = http.StatusNotFound
	mu.Unlock()
	_, err = importer.Import(context.Background(), source)
	assert.Error(t, err)

	_, err = importer.Import(context.Background(), config.ImportSource{Id: "bad", Url: server.URL, From: "yesterday"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...", redactURL("https://calendar.example.com/private/abc.ics?token=1"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}

type fakeImporter struct {
	mu      sync.Mutex
	calls   []string
	result  schedule.ImportResult
	failure error
}

func (f *fakeImporter) Import(ctx context.Context, source config.ImportSource) (schedule.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source.Id)
	return f.result, f.failure
}

func TestScheduler(t *testing.T) {
	t.Run("runs known sources on demand", func(t *testing.T) {
		importer := &fakeImporter{result: schedule.ImportResult{Created: 2}}
		scheduler, err := NewScheduler(importer, []config.ImportSource{
			{Id: "sponsor", Url: "https://example.com/a.ics", Cron: "*/15 * * * *"},
			{Id: "manual", Url: "https://example.com/b.ics"},
		}, time.UTC)
		require.NoError(t, err)

		result, err := scheduler.Run(context.Background(), "manual")
		require.NoError(t, err)
		assert.Equal(t, schedule.ImportResult{Created: 2}, result)
		assert.Equal(t, []string{"manual"}, importer.calls)

		_, err = scheduler.Run(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrUnknownSource)
	})

	t.Run("starts and stops", func(t *testing.T) {
		scheduler, err := NewScheduler(&fakeImporter{}, []config.ImportSource{
			{Id: "sponsor", Url: "https://example.com/a.ics", Cron: "@hourly"},
		}, time.UTC)
		require.NoError(t, err)

		scheduler.Start()
		<-scheduler.Stop().Done()
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		_, err := NewScheduler(&fakeImporter{}, []config.ImportSource{{Id: "a", Url: "https://example.com", Cron: "every minute"}}, time.UTC)
		assert.Error(t, err)

		_, err = NewScheduler(&fakeImporter{}, []config.ImportSource{
			{Id: "a", Url: "https://example.com"},
			{Id: "a", Url: "https://example.org"},
		}, time.UTC)
		assert.Error(t, err)

		_, err = NewScheduler(&fakeImporter{}, []config.ImportSource{{Id: "a"}}, time.UTC)
		assert.Error(t, err)
	})
}

func setupFeedRouter(t *testing.T, runner Runner) *mux.Router {
	service, repo, _, clock := setupScheduleService(t)
	storeEvent(t, repo, "Intro to Go", schedule.Workshops, 10, 60)
	handler := NewHandler(NewExporter(service, feedConfig, "UTC", clock), runner)

	router := mux.NewRouter()
	router.HandleFunc("/api/schedule/feed.ics", handler.GetFeed).Methods("GET")
	router.HandleFunc("/api/schedule/import/{sourceId}", handler.RunImport).Methods("POST")
	return router
}

func TestHandler_GetFeed(t *testing.T) {
	router := setupFeedRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schedule/feed.ics?reminder=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "SUMMARY:Intro to Go")
	assert.Contains(t, w.Body.String(), "TRIGGER:-PT10M")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schedule/feed.ics?reminder=soon", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RunImport(t *testing.T) {
	importer := &fakeImporter{result: schedule.ImportResult{Created: 1, Deleted: 2}}
	scheduler, err := NewScheduler(importer, []config.ImportSource{{Id: "sponsor", Url: "https://example.com/a.ics"}}, time.UTC)
	require.NoError(t, err)
	router := setupFeedRouter(t, scheduler)

	request := func(sourceId string, u *user.User) *httptest.ResponseRecorder {
		req := test_utils.RequestAs(httptest.NewRequest(http.MethodPost, "/api/schedule/import/"+sourceId, nil), u)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, request("sponsor", nil).Code)
	assert.Equal(t, http.StatusForbidden, request("sponsor", &test_utils.Participant).Code)
	assert.Equal(t, http.StatusNotFound, request("missing", &test_utils.Admin).Code)

	w := request("sponsor", &test_utils.Admin)
	require.Equal(t, http.StatusOK, w.Code)
	var result schedule.ImportResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, schedule.ImportResult{Created: 1, Deleted: 2}, result)

	importer.failure = errors.New("connection refused")
	assert.Equal(t, http.StatusBadGateway, request("sponsor", &test_utils.Admin).Code)
}
