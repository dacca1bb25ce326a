package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/odds-analytics-service/internal/cache"
	"github.com/cypherlabdev/odds-analytics-service/internal/metrics"
	"github.com/cypherlabdev/odds-analytics-service/internal/models"
	"github.com/cypherlabdev/odds-analytics-service/internal/store"
)

const sweepLockKey = "refresh-sweep"

// Locker hands out cluster wide locks
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Pruner drops expired movement records
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// SchedulerConfig holds refresh and retention schedule settings
type SchedulerConfig struct {
	RefreshInterval time.Duration // e.g., 5 * time.Minute
	ActiveWindow    time.Duration // e.g., time.Hour
	PruneAt         string        // daily, "HH:MM" UTC
}

// Scheduler periodically re-triggers recently requested fingerprints and
// prunes the movement log
type Scheduler struct {
	pipeline *Pipeline
	requests store.RequestStore
	locker   Locker
	pruner   Pruner
	cfg      SchedulerConfig
	cron     *gocron.Scheduler
	now      func() time.Time
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler. locker and pruner may be nil; without a
// locker every instance sweeps.
func NewScheduler(p *Pipeline, requests store.RequestStore, locker Locker, pruner Pruner, cfg SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = time.Hour
	}
	if cfg.PruneAt == "" {
		cfg.PruneAt = "03:00"
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	return &Scheduler{
		pipeline: p,
		requests: requests,
		locker:   locker,
		pruner:   pruner,
		cfg:      cfg,
		cron:     cron,
		now:      time.Now,
		logger:   logger.With().Str("component", "refresh_scheduler").Logger(),
	}
}

// Start registers the jobs and starts the scheduler in the background
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.Every(s.cfg.RefreshInterval).WaitForSchedule().Do(func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("refresh sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh sweep: %w", err)
	}

	if s.pruner != nil {
		if _, err := s.cron.Every(1).Day().At(s.cfg.PruneAt).Do(func() {
			if _, err := s.pruner.Prune(ctx); err != nil {
				s.logger.Error().Err(err).Msg("movement prune failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule movement prune: %w", err)
		}
	}

	s.cron.StartAsync()
	s.logger.Info().
		Dur("refresh_interval", s.cfg.RefreshInterval).
		Dur("active_window", s.cfg.ActiveWindow).
		Str("prune_at", s.cfg.PruneAt).
		Msg("scheduler started")
	return nil
}

// Stop halts the scheduler; running jobs finish
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Sweep re-triggers every fingerprint with a live artifact that an api or
// kafka trigger completed within the active window. It returns how many
// fingerprints were triggered; another instance holding the lock means zero.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		unlock, err := s.locker.Acquire(ctx, sweepLockKey, s.cfg.RefreshInterval)
		if errors.Is(err, cache.ErrLockHeld) {
			s.logger.Debug().Msg("refresh sweep running elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer unlock()
	}

	fps, err := s.requests.ListRefreshable(ctx, s.now().Add(-s.cfg.ActiveWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list refreshable fingerprints: %w", err)
	}

	triggered := 0
	for _, fp := range fps {
		if _, err := s.pipeline.TriggerFingerprint(ctx, fp, models.SourceRefresh); err != nil {
			if errors.Is(err, ErrStopped) {
				return triggered, nil
			}
			s.logger.Warn().Err(err).Str("fingerprint", fp.Key()).Msg("failed to trigger refresh")
			continue
		}
		triggered++
	}

	metrics.RefreshSweeps.Inc()
	metrics.RefreshTriggered.Add(float64(triggered))
	s.logger.Info().Int("candidates", len(fps)).Int("triggered", triggered).Msg("refresh sweep completed")
	return triggered, nil
}
