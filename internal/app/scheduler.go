package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"ebis/observability"
)

// Job is a unit of background maintenance
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs maintenance jobs on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler. Each job run gets its own context
// bounded by timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		timeout: timeout,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	observability.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	observability.Info("scheduler stopped")
}

// AddJob registers job under a cron spec such as "*/15 * * * *" or
// "@every 15m"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.RunNow(job)
	})
	if err != nil {
		return err
	}
	observability.Info("job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// RunNow executes job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	observability.Debug("running job", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		observability.Error("job failed", "job", job.Name(), "error", err)
		return err
	}
	observability.Debug("job completed", "job", job.Name())
	return nil
}

// SessionSweepJob purges expired sessions and reset tokens
type SessionSweepJob struct {
	Auth *AuthService
}

func (j SessionSweepJob) Name() string { return "session_sweep" }

func (j SessionSweepJob) Run(ctx context.Context) error {
	removed, err := j.Auth.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		observability.Info("expired sessions purged", "count", removed)
	}
	return nil
}

// pruner is implemented by caches that can drop expired entries
type pruner interface {
	Prune(ctx context.Context) (int, error)
}

// CachePruneJob drops expired market data cache entries
type CachePruneJob struct {
	Cache pruner
}

func (j CachePruneJob) Name() string { return "cache_prune" }

func (j CachePruneJob) Run(ctx context.Context) error {
	n, err := j.Cache.Prune(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		observability.Debug("market data cache pruned", "entries", n)
	}
	return nil
}

// NewMaintenanceScheduler registers the session sweep and, when the
// market data provider caches, the cache prune on schedule
func NewMaintenanceScheduler(schedule string, auth *AuthService, a *App) (*Scheduler, error) {
	s := NewScheduler(time.Minute)
	if err := s.AddJob(schedule, SessionSweepJob{Auth: auth}); err != nil {
		return nil, err
	}
	if p, ok := a.Market().(pruner); ok {
		if err := s.AddJob(schedule, CachePruneJob{Cache: p}); err != nil {
			return nil, err
		}
	}
	return s, nil
}
