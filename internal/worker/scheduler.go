package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a job on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	spec       string
	job        func(ctx context.Context)
	runOnStart bool

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
}

// NewScheduler validates spec (standard five-field cron or a descriptor such
// as "@every 10m") and returns a stopped scheduler.
func NewScheduler(spec string, runOnStart bool, job func(ctx context.Context)) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, job: job, runOnStart: runOnStart}, nil
}

// Start begins scheduling. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	jobCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{slog.Default().With("component", "scheduler")}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.job(jobCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule job: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	s.running = true
	c.Start()

	if s.runOnStart {
		go s.job(jobCtx)
	}

	slog.InfoContext(ctx, "Scheduler started", "schedule", s.spec)
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	done := c.Stop()
	select {
	case <-done.Done():
		cancel()
		slog.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		cancel()
		slog.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
