// Package sched triggers the periodic notification sweep through asynq.
// Running the cadence through Redis instead of an in-process ticker keeps
// exactly one sweep per tick when several instances of the service run.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TypeQueueSweep is the task type for the notification sweep.
const TypeQueueSweep = "queue:sweep"

// Config holds scheduler configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// SweepSpec is the cron spec for the sweep cadence.
	SweepSpec string
	// Concurrency bounds simultaneous task handlers.
	Concurrency int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:   "localhost:6379",
		SweepSpec:   "* * * * *",
		Concurrency: 2,
	}
}

// Sweeper runs one pass of the notification sweep.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Scheduler wires the sweep cadence: a cron-registered task fans through
// Redis and exactly one worker runs the sweep per tick.
type Scheduler struct {
	config    Config
	sweeper   Sweeper
	server    *asynq.Server
	scheduler *asynq.Scheduler
	started   bool
}

// New creates a new Scheduler.
func New(config Config, sweeper Sweeper) *Scheduler {
	redisOpt := asynq.RedisClientOpt{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: config.Concurrency,
		Logger:      slogAdapter{},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: slogAdapter{},
	})

	return &Scheduler{
		config:    config,
		sweeper:   sweeper,
		server:    server,
		scheduler: scheduler,
	}
}

// Start registers the sweep task and launches the server and scheduler.
func (s *Scheduler) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeQueueSweep, s.handleSweep)

	if _, err := s.scheduler.Register(s.config.SweepSpec, asynq.NewTask(TypeQueueSweep, nil)); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	s.started = true
	slog.Info("sweep scheduler started", "spec", s.config.SweepSpec)
	return nil
}

// Stop shuts the scheduler and server down, waiting for in-flight tasks.
// Safe to call when Start never ran.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.scheduler.Shutdown()
	s.server.Shutdown()
	slog.Info("sweep scheduler stopped")
}

func (s *Scheduler) handleSweep(ctx context.Context, _ *asynq.Task) error {
	processed, err := s.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		slog.Error("sweep failed", "error", err)
		return err
	}
	slog.Debug("sweep completed", "inspected", processed)
	return nil
}

// slogAdapter bridges asynq's logger to slog.
type slogAdapter struct{}

func (slogAdapter) Debug(args ...any) { slog.Debug(fmt.Sprint(args...)) }
func (slogAdapter) Info(args ...any)  { slog.Info(fmt.Sprint(args...)) }
func (slogAdapter) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...)) }
func (slogAdapter) Error(args ...any) { slog.Error(fmt.Sprint(args...)) }
func (slogAdapter) Fatal(args ...any) { slog.Error(fmt.Sprint(args...)) }
