package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgrid/hackgrid/internal/config"
	"github.com/hackgrid/hackgrid/internal/event_bus"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/checkin"
	"github.com/hackgrid/hackgrid/pkg/feed"
	"github.com/hackgrid/hackgrid/pkg/google"
	"github.com/hackgrid/hackgrid/pkg/grid"
	"github.com/hackgrid/hackgrid/pkg/reimbursement"
	"github.com/hackgrid/hackgrid/pkg/reservation"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/hackgrid/hackgrid/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus
	Venue    *time.Location

	UserService user.Service
	UserHandler *user.Handler

	ScheduleRepository *schedule.RepositoryImpl
	ScheduleService    *schedule.ServiceImpl
	ScheduleHandler    *schedule.Handler

	GridService *grid.ServiceImpl
	GridHandler *grid.Handler

	FeedExporter  *feed.Exporter
	FeedImporter  *feed.Importer
	FeedScheduler *feed.Scheduler
	FeedHandler   *feed.Handler

	CheckinService *checkin.ServiceImpl
	CheckinHandler *checkin.Handler

	ReimbursementService *reimbursement.ServiceImpl
	ReimbursementHandler *reimbursement.Handler

	ReservationService *reservation.ServiceImpl
	ReservationHandler *reservation.Handler

	// nil when the Google integration is disabled
	GoogleMirror  *google.Mirror
	GoogleHandler *google.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(ctx context.Context, db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	venue, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	deps.Venue = venue
	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.ScheduleRepository = schedule.NewRepository(db)
	deps.ScheduleService = schedule.NewService(deps.ScheduleRepository, deps.EventBus, deps.Clock)
	deps.ScheduleHandler = schedule.NewHandler(deps.ScheduleService, schedule.NewCsvRenderer(), venue)

	deps.GridService = grid.NewService(deps.ScheduleService, venue, cfg.Schedule.DefaultBaseHour, deps.Clock)
	deps.GridHandler = grid.NewHandler(deps.GridService)

	deps.FeedExporter = feed.NewExporter(deps.ScheduleService, cfg.Feed, cfg.Schedule.Timezone, deps.Clock)
	deps.FeedExporter.Subscribe(deps.EventBus)
	deps.FeedImporter = feed.NewImporter(deps.ScheduleService, deps.Clock)
	deps.FeedScheduler, err = feed.NewScheduler(deps.FeedImporter, cfg.Import.Sources, venue)
	if err != nil {
		return nil, err
	}
	deps.FeedHandler = feed.NewHandler(deps.FeedExporter, deps.FeedScheduler)

	deps.CheckinService = checkin.NewService(checkin.NewRepository(db), deps.UserService, deps.ScheduleService, deps.Clock)
	deps.CheckinHandler = checkin.NewHandler(deps.CheckinService)

	deps.ReimbursementService = reimbursement.NewService(reimbursement.NewRepository(db), deps.UserService, deps.Clock)
	deps.ReimbursementHandler = reimbursement.NewHandler(deps.ReimbursementService)

	deps.ReservationService = reservation.NewService(reservation.NewRepository(db), deps.UserService, deps.Clock)
	deps.ReservationHandler = reservation.NewHandler(deps.ReservationService)

	if cfg.Google.Enabled {
		calendarService, err := google.NewCalendarService(ctx, cfg.Google)
		if err != nil {
			return nil, err
		}
		deps.GoogleMirror = google.NewMirror(calendarService, deps.ScheduleService, cfg.Google.CalendarId, cfg.Schedule.Timezone)
		deps.GoogleMirror.Subscribe(deps.EventBus)
		deps.GoogleHandler = google.NewHandler(deps.GoogleMirror)
		log.Infof("mirroring schedule to Google Calendar %s", cfg.Google.CalendarId)
	}

	return deps, nil
}
