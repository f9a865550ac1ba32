package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hackgrid/hackgrid/internal/config"
	"github.com/hackgrid/hackgrid/internal/utils"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

const (
	fetchTimeout   = 15 * time.Second
	maxFeedSize    = 10 << 20
	defaultHistory = 30 * 24 * time.Hour
	defaultHorizon = 365 * 24 * time.Hour
)

type SourceImporter interface {
	Import(ctx context.Context, source config.ImportSource) (schedule.ImportResult, error)
}

// Importer merges external iCalendar feeds into the schedule.
type Importer struct {
	client   *http.Client
	schedule schedule.Service
	clock    utils.Clock
}

func NewImporter(scheduleService schedule.Service, clock utils.Clock) *Importer {
	return &Importer{
		client:   &http.Client{Timeout: fetchTimeout},
		schedule: scheduleService,
		clock:    clock,
	}
}

func (i *Importer) Import(ctx context.Context, source config.ImportSource) (schedule.ImportResult, error) {
	window, err := i.window(source)
	if err != nil {
		return schedule.ImportResult{}, err
	}

	body, err := i.fetch(ctx, source)
	if err != nil {
		return schedule.ImportResult{}, err
	}

	events, err := ParseEvents(bytes.NewReader(body), window)
	if err != nil {
		return schedule.ImportResult{}, fmt.Errorf("source %s: %w", source.Id, err)
	}
	log.Debugf("source %s: parsed %d events", source.Id, len(events))

	return i.schedule.ReplaceImported(ctx, source.Id, events)
}

func (i *Importer) window(source config.ImportSource) (Window, error) {
	now := i.clock.Now()
	window := Window{From: now.Add(-defaultHistory), To: now.Add(defaultHorizon)}
	if source.From != "" {
		from, err := time.Parse(time.RFC3339, source.From)
		if err != nil {
			return Window{}, fmt.Errorf("source %s: invalid from: %w", source.Id, err)
		}
		window.From = from
	}
	if source.To != "" {
		to, err := time.Parse(time.RFC3339, source.To)
		if err != nil {
			return Window{}, fmt.Errorf("source %s: invalid to: %w", source.Id, err)
		}
		window.To = to
	}
	return window, nil
}

func (i *Importer) fetch(ctx context.Context, source config.ImportSource) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Url, nil)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Id, err)
	}
	req.Header.Set("Accept", "text/calendar")

	log.Infof("fetching source %s from %s", source.Id, redactURL(source.Url))
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source %s: fetch failed: %w", source.Id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: unexpected status %s", source.Id, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("source %s: read failed: %w", source.Id, err)
	}
	return body, nil
}

// redactURL keeps only scheme and host since feed URLs often embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
