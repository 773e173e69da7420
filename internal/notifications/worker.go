package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig contains delivery worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         100,
		PollInterval:      2 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        2 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        3,
	}
}

// Worker drains the push delivery queue.
type Worker struct {
	config     WorkerConfig
	repo       Repository
	dispatcher *Dispatcher

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a new delivery worker.
func NewWorker(config WorkerConfig, repo Repository, dispatcher *Dispatcher) *Worker {
	return &Worker{
		config:     config,
		repo:       repo,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting push delivery worker",
		"workers", w.config.NumWorkers,
		"batch_size", w.config.BatchSize,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop signals all workers to finish and waits for them.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("push delivery worker stopped")
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx, id)
		}
	}
}

// drain claims and dispatches due deliveries until the queue is empty.
func (w *Worker) drain(ctx context.Context, id int) {
	for {
		deliveries, err := w.repo.ClaimDeliveries(ctx, w.config.BatchSize, time.Now())
		if err != nil {
			slog.Error("claiming deliveries failed", "worker", id, "error", err)
			return
		}
		if len(deliveries) == 0 {
			return
		}

		for _, d := range deliveries {
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d Delivery) {
	err := w.dispatcher.Dispatch(ctx, d)
	if err == nil {
		if err := w.repo.MarkDeliverySent(ctx, d.ID, time.Now()); err != nil {
			slog.Error("marking delivery sent failed", "delivery_id", d.ID, "error", err)
		}
		return
	}

	attempts := d.Attempts + 1
	final := attempts >= w.config.MaxAttempts
	next := time.Now().Add(w.backoff(attempts))

	slog.Warn("push delivery failed",
		"delivery_id", d.ID,
		"attempt", attempts,
		"final", final,
		"error", err,
	)

	if err := w.repo.MarkDeliveryFailed(ctx, d.ID, attempts, next, err.Error(), final); err != nil {
		slog.Error("marking delivery failed errored", "delivery_id", d.ID, "error", err)
	}
}

func (w *Worker) backoff(attempts int) time.Duration {
	d := w.config.InitialBackoff
	for i := 1; i < attempts; i++ {
		d = time.Duration(float64(d) * w.config.BackoffMultiplier)
		if d >= w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
	}
	return d
}
