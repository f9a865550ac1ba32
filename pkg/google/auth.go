package google

import (
	"context"
	"fmt"
	"os"

	"github.com/hackgrid/hackgrid/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewCalendarService authenticates with the service account found in
// cfg.CredentialsFile. The account must have write access to cfg.CalendarId.
func NewCalendarService(ctx context.Context, cfg config.Google) (*gcal.Service, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read Google credentials: %w", err)
	}
	credentials, err := google.CredentialsFromJSON(ctx, data, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse Google credentials: %w", err)
	}

	service, err := gcal.NewService(ctx, option.WithCredentials(credentials))
	if err != nil {
		err := fmt.Errorf("unable to create Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}
