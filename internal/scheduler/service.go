package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/carritosync/carrito/internal/snapshot"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Service interface {
	Start()
	Stop()
	// AddJob adds a job that runs periodically at the given interval.
	AddJob(job cron.Job, interval time.Duration, identifier string) (int, error)
	// AddJobWithSpec adds a job using a cron spec string (e.g., "0 3 * * *").
	AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error)
	RemoveJobByIdentifier(id string) error
	GetNextRun(id string) (time.Time, error)
}

type service struct {
	log         zerolog.Logger
	config      *domain.Config
	kv          domain.KVStore
	store       cartstore.Service
	snapshotSvc snapshot.Service

	cron *cron.Cron
	jobs map[string]cron.EntryID
	m    sync.RWMutex
}

func NewService(log logger.Logger, config *domain.Config, kv domain.KVStore, store cartstore.Service, snapshotSvc snapshot.Service) Service {
	return &service{
		log:         log.With().Str("module", "scheduler").Logger(),
		config:      config,
		kv:          kv,
		store:       store,
		snapshotSvc: snapshotSvc,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: map[string]cron.EntryID{},
	}
}

func (s *service) Start() {
	s.log.Info().Msg("Starting scheduler service")

	// start scheduler
	s.cron.Start()

	// init jobs
	go s.addAppJobs()
}

func (s *service) addAppJobs() {
	// Small delay to ensure other services might be ready
	time.Sleep(5 * time.Second)
	s.log.Info().Msg("Adding application-specific scheduled jobs")

	// --- Add PeriodicSnapshotJob ---
	periodicJob := &PeriodicSnapshotJob{
		Name:        "cart-snapshot-periodic",
		Log:         s.log.With().Str("job", "cart-snapshot-periodic").Logger(),
		KV:          s.kv,
		Store:       s.store,
		SnapshotSvc: s.snapshotSvc,
	}

	periodicSpec := s.config.Snapshot.PeriodicSchedule
	if periodicSpec == "" {
		periodicSpec = "@every 15m"
	}

	if _, err := s.AddJobWithSpec(periodicJob, periodicSpec, "cart-snapshot-periodic"); err != nil {
		s.log.Error().Err(err).Msg("Failed to add 'cart-snapshot-periodic' job")
	}

	// --- Add SnapshotPruneJob ---
	pruneJob := &SnapshotPruneJob{
		Name:        "cart-snapshot-prune",
		Log:         s.log.With().Str("job", "cart-snapshot-prune").Logger(),
		SnapshotSvc: s.snapshotSvc,
	}

	pruneSpec := s.config.Snapshot.PruneSchedule
	if pruneSpec == "" {
		pruneSpec = "0 3 * * *"
	}

	if _, err := s.AddJobWithSpec(pruneJob, pruneSpec, "cart-snapshot-prune"); err != nil {
		s.log.Error().Err(err).Msg("Failed to add 'cart-snapshot-prune' job")
	} else {
		s.log.Info().
			Str("schedule", pruneSpec).
			Int("max_per_user", s.config.Snapshot.MaxPerUser).
			Msg("Snapshot prune job scheduled")
	}

	s.log.Info().Msg("Finished adding application-specific scheduled jobs")
}

func (s *service) Stop() {
	s.log.Info().Msg("Stopping scheduler service")
	s.cron.Stop()
}

func (s *service) AddJob(job cron.Job, interval time.Duration, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		s.log.Warn().Str("identifier", identifier).Msg("Job with this identifier already exists, skipping add.")
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(fmt.Sprintf("@every %s", interval.String()), cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job))

	if err != nil {
		s.log.Error().Err(err).Str("identifier", identifier).Msg("Failed to add job with interval")
		return 0, fmt.Errorf("failed to add job '%s': %w", identifier, err)
	}

	s.log.Info().Str("identifier", identifier).Dur("interval", interval).Int("entryID", int(entryID)).Msg("Scheduled job added")
	s.jobs[identifier] = entryID
	return int(entryID), nil
}

// AddJobWithSpec adds a job using a cron specification string.
func (s *service) AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		s.log.Warn().Str("identifier", identifier).Msg("Job with this identifier already exists, skipping add.")
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(spec, cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job))

	if err != nil {
		s.log.Error().Err(err).Str("identifier", identifier).Str("spec", spec).Msg("Failed to add job with spec")
		return 0, fmt.Errorf("failed to add job '%s' with spec '%s': %w", identifier, spec, err)
	}

	s.log.Info().Str("identifier", identifier).Str("spec", spec).Int("entryID", int(entryID)).Msg("Scheduled job added")
	s.jobs[identifier] = entryID
	return int(entryID), nil
}

func (s *service) RemoveJobByIdentifier(id string) error {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.jobs[id]
	if !ok {
		return nil
	}

	s.log.Debug().Msgf("scheduler.Remove: removing job: %v", id)

	// remove from cron
	s.cron.Remove(v)

	// remove from jobs map
	delete(s.jobs, id)

	return nil
}

func (s *service) GetNextRun(id string) (time.Time, error) {
	entry := s.getEntryById(id)

	if !entry.Valid() {
		return time.Time{}, nil
	}

	s.log.Debug().Msgf("scheduler.GetNextRun: %s next run: %s", id, entry.Next)

	return entry.Next, nil
}

func (s *service) getEntryById(id string) cron.Entry {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.jobs[id]
	if !ok {
		return cron.Entry{}
	}

	return s.cron.Entry(v)
}
