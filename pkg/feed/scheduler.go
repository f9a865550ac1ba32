package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hackgrid/hackgrid/internal/config"
	"github.com/hackgrid/hackgrid/pkg/schedule"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const runTimeout = 2 * time.Minute

var ErrUnknownSource = errors.New("unknown import source")

// Scheduler runs every configured source on its cron spec. Sources without a
// spec are only imported on demand.
type Scheduler struct {
	cron     *cron.Cron
	importer SourceImporter
	sources  map[string]config.ImportSource

	mu      sync.Mutex
	running map[string]*sync.Mutex
}

func NewScheduler(importer SourceImporter, sources []config.ImportSource, loc *time.Location) (*Scheduler, error) {
	logger := cron.PrintfLogger(log.StandardLogger())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		importer: importer,
		sources:  make(map[string]config.ImportSource, len(sources)),
		running:  make(map[string]*sync.Mutex, len(sources)),
	}

	for _, source := range sources {
		if source.Id == "" || source.Url == "" {
			return nil, fmt.Errorf("import source needs an id and a url: %+v", source)
		}
		if _, exists := s.sources[source.Id]; exists {
			return nil, fmt.Errorf("duplicate import source %q", source.Id)
		}
		s.sources[source.Id] = source
		s.running[source.Id] = &sync.Mutex{}

		if source.Cron == "" {
			continue
		}
		sourceId := source.Id
		if _, err := s.cron.AddFunc(source.Cron, func() { s.runScheduled(sourceId) }); err != nil {
			return nil, fmt.Errorf("invalid cron spec for source %s: %w", source.Id, err)
		}
		log.Infof("scheduled import of %s with %q", source.Id, source.Cron)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop. The returned context is done once running imports
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runScheduled(sourceId string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.Run(ctx, sourceId); err != nil {
		log.Errorf("scheduled import of %s failed: %v", sourceId, err)
	}
}

// Run imports sourceId now. Runs of the same source never overlap.
func (s *Scheduler) Run(ctx context.Context, sourceId string) (schedule.ImportResult, error) {
	s.mu.Lock()
	source, ok := s.sources[sourceId]
	lock := s.running[sourceId]
	s.mu.Unlock()
	if !ok {
		return schedule.ImportResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceId)
	}

	lock.Lock()
	defer lock.Unlock()
	return s.importer.Import(ctx, source)
}
