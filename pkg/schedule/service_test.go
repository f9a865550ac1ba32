package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminUser = user.User{Id: 1, Uid: "admin-uid", Username: "admin", DisplayName: "Admin", Role: user.RoleAdmin}
var participantUser = user.User{Id: 2, Uid: "participant-uid", Username: "hacker", DisplayName: "Hacker", Role: user.RoleParticipant}

type recordedChange struct {
	eventType event_bus.EventType
	payload   event_bus.ScheduleEventChanged
}

func setupServiceTest(t *testing.T) (*ServiceImpl, *RepositoryStub, *utils.MockClock, *[]recordedChange) {
	repo := NewRepositoryStub()
	bus := event_bus.NewEventBus()
	clock := &utils.MockClock{FixedNow: saturday.Add(12 * time.Hour)}

	changes := &[]recordedChange{}
	for _, eventType := range []event_bus.EventType{
		event_bus.ScheduleEventCreated,
		event_bus.ScheduleEventUpdated,
		event_bus.ScheduleEventDeleted,
	} {
		event_bus.SubscribeTyped(bus, eventType, func(e event_bus.EventT[event_bus.ScheduleEventChanged]) error {
			*changes = append(*changes, recordedChange{e.Type, e.Data})
			return nil
		})
	}
	return NewService(repo, bus, clock), repo, clock, changes
}

func asAdmin() context.Context {
	return user.WithUser(context.Background(), adminUser)
}

func TestService_CreateEvent(t *testing.T) {
	t.Run("admin creates a valid event", func(t *testing.T) {
		service, repo, _, changes := setupServiceTest(t)

		created, err := service.CreateEvent(asAdmin(), testEvent("Intro to Go", 10, 60))

		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, created.ID)
		stored, err := repo.GetEvent(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Intro to Go", stored.Name)
		require.Len(t, *changes, 1)
		assert.Equal(t, event_bus.ScheduleEventCreated, (*changes)[0].eventType)
		assert.Equal(t, created.ID.String(), (*changes)[0].payload.Id)
	})

	t.Run("participants are forbidden", func(t *testing.T) {
		service, _, _, changes := setupServiceTest(t)
		ctx := user.WithUser(context.Background(), participantUser)

		_, err := service.CreateEvent(ctx, testEvent("Intro to Go", 10, 60))

		assert.ErrorIs(t, err, user.ErrForbidden)
		assert.Empty(t, *changes)
	})

	t.Run("anonymous requests are rejected", func(t *testing.T) {
		service, _, _, _ := setupServiceTest(t)

		_, err := service.CreateEvent(context.Background(), testEvent("Intro to Go", 10, 60))

		assert.ErrorIs(t, err, user.ErrNoUser)
	})

	t.Run("invalid events are not stored", func(t *testing.T) {
		service, repo, _, _ := setupServiceTest(t)
		event := testEvent("Backwards", 10, 60)
		event.EndDate = event.StartDate.Add(-time.Hour)

		_, err := service.CreateEvent(asAdmin(), event)

		assert.ErrorIs(t, err, ErrInvalidEvent)
		all, _ := repo.GetAllEvents(context.Background())
		assert.Empty(t, all)
	})
}

func TestService_UpdateAndDeleteEvent(t *testing.T) {
	service, repo, _, changes := setupServiceTest(t)
	created, err := service.CreateEvent(asAdmin(), testEvent("Lunch", 12, 60))
	require.NoError(t, err)

	update := created
	update.Name = "Pizza lunch"
	update.EventType = Food
	updated, err := service.UpdateEvent(asAdmin(), update)
	require.NoError(t, err)
	assert.Equal(t, "Pizza lunch", updated.Name)

	stored, err := repo.GetEvent(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, Food, stored.EventType)

	missing := update
	missing.ID = uuid.New()
	_, err = service.UpdateEvent(asAdmin(), missing)
	assert.ErrorIs(t, err, ErrEventNotFound)

	require.NoError(t, service.DeleteEvent(asAdmin(), created.ID))
	assert.ErrorIs(t, service.DeleteEvent(asAdmin(), created.ID), ErrEventNotFound)

	require.Len(t, *changes, 3)
	assert.Equal(t, event_bus.ScheduleEventUpdated, (*changes)[1].eventType)
	assert.Equal(t, event_bus.ScheduleEventDeleted, (*changes)[2].eventType)
	assert.Equal(t, "Pizza lunch", (*changes)[2].payload.Name)
}

func TestService_HappeningAndUpNext(t *testing.T) {
	service, repo, clock, _ := setupServiceTest(t)
	ctx := context.Background()

	for _, e := range []Event{
		testEvent("Breakfast", 8, 60),
		testEvent("Hacking", 9, 600),
		testEvent("Lunch", 12, 60),
		testEvent("Workshop", 13, 60),
		testEvent("Talk", 14, 30),
		testEvent("Dinner", 18, 60),
	} {
		_, err := repo.StoreEvent(ctx, e)
		require.NoError(t, err)
	}

	happening, err := service.Happening(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hacking", "Lunch"}, names(happening))

	upNext, err := service.UpNext(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Workshop", "Talk"}, names(upNext))

	clock.Advance(time.Hour)
	happening, err = service.Happening(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hacking", "Workshop"}, names(happening), "an event ending now is over")

	upNext, err = service.UpNext(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, upNext)
}

func TestService_Favorites(t *testing.T) {
	service, repo, _, _ := setupServiceTest(t)
	ctx := user.WithUser(context.Background(), participantUser)

	lunch, err := repo.StoreEvent(ctx, testEvent("Lunch", 12, 60))
	require.NoError(t, err)
	_, err = repo.StoreEvent(ctx, testEvent("Dinner", 18, 60))
	require.NoError(t, err)

	require.NoError(t, service.SetFavorite(ctx, lunch, true))

	events, err := service.ListEvents(ctx, Filter{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lunch"}, names(events))

	require.NoError(t, service.SetFavorite(ctx, lunch, false))
	events, err = service.ListEvents(ctx, Filter{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = service.ListEvents(context.Background(), Filter{FavoritesOnly: true})
	assert.ErrorIs(t, err, user.ErrNoUser)
	assert.ErrorIs(t, service.SetFavorite(ctx, uuid.New(), true), ErrEventNotFound)
}

func TestService_Days(t *testing.T) {
	service, repo, _, _ := setupServiceTest(t)
	ctx := context.Background()

	_, err := repo.StoreEvent(ctx, testEvent("Saturday lunch", 12, 60))
	require.NoError(t, err)
	sundayLunch := testEvent("Sunday lunch", 36, 60)
	sundayLunch.EventType = Food
	_, err = repo.StoreEvent(ctx, sundayLunch)
	require.NoError(t, err)

	days, err := service.Days(ctx, Filter{}, time.UTC)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-02-22", days[0].Key())
	assert.Equal(t, "2025-02-23", days[1].Key())

	days, err = service.Days(ctx, Filter{Types: []EventType{Food}}, time.UTC)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "Sunday lunch", days[0].Events[0].Name)
}

func importedEvent(uid, name string, startHour int) Event {
	e := testEvent(name, startHour, 60)
	e.SourceUid = uid
	return e
}

func TestService_ReplaceImported(t *testing.T) {
	service, repo, _, changes := setupServiceTest(t)
	ctx := context.Background()

	manual, err := repo.StoreEvent(ctx, testEvent("Manual", 9, 30))
	require.NoError(t, err)

	result, err := service.ReplaceImported(ctx, "sponsors", []Event{
		importedEvent("a", "Sponsor A", 10),
		importedEvent("b", "Sponsor B", 11),
		importedEvent("", "No uid", 12),
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2, Skipped: 1}, result)

	changed := importedEvent("b", "Sponsor B (moved)", 15)
	result, err = service.ReplaceImported(ctx, "sponsors", []Event{
		changed,
		importedEvent("c", "Sponsor C", 16),
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1, Deleted: 1}, result)

	imported, err := repo.GetSourceEvents(ctx, "sponsors")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sponsor B (moved)", "Sponsor C"}, names(imported))

	_, err = repo.GetEvent(ctx, manual)
	assert.NoError(t, err, "events of other sources are untouched")

	result, err = service.ReplaceImported(ctx, "sponsors", []Event{changed, importedEvent("c", "Sponsor C", 16)})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, result, "unchanged events are left alone")

	assert.Len(t, *changes, 5)
}

func TestService_ReplaceImportedSkipsInvalidEvents(t *testing.T) {
	service, repo, _, _ := setupServiceTest(t)
	ctx := context.Background()

	invalid := importedEvent("x", "Broken", 10)
	invalid.EventType = "PARTY"

	result, err := service.ReplaceImported(ctx, "feed", []Event{invalid, importedEvent("y", "Fine", 11)})

	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Skipped: 1}, result)
	all, err := repo.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fine"}, names(all))
}

func TestService_ReplaceImportedSkipsOversizedUid(t *testing.T) {
	service, repo, _, _ := setupServiceTest(t)
	ctx := context.Background()

	oversized := importedEvent(strings.Repeat("u", 513), "Long uid", 10)
	fits := importedEvent(strings.Repeat("v", 512), "Longest uid", 11)

	result, err := service.ReplaceImported(ctx, "feed", []Event{oversized, fits})

	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Skipped: 1}, result)
	all, err := repo.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Longest uid"}, names(all))
}

func names(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}
