// Package jobs runs import processing in the background.
//
// The runner owns the retry policy: the pipeline is a single attempt,
// and the runner re-runs it whole on failure. When the budget is spent
// the exhaustion hook fires. That hook, not the pipeline, is what
// flips an import to failed, so the pipeline never needs to know its
// own retry count.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pipeline is the unit of work executed once per attempt.
type Pipeline interface {
	Run(ctx context.Context, importID int64) error
}

// PendingSource hands out imports still awaiting processing. The poll
// loop uses it to recover work that never reached the queue, such as
// imports enqueued right before a restart.
type PendingSource interface {
	NextPending(ctx context.Context) (int64, bool, error)
}

// ExhaustedFunc is invoked once per import when the retry budget is
// spent. nil disables the hook.
type ExhaustedFunc func(ctx context.Context, importID int64)

// Config tunes the runner. Zero values fall back to defaults.
type Config struct {
	RetryBudget  int           // attempts per import before the exhaustion hook fires (default 5)
	RetryBackoff time.Duration // pause between attempts (default 2s)
	PollInterval time.Duration // pending-import poll cadence (default 5s)
	QueueSize    int           // enqueue channel capacity (default 64)
}

func (c Config) withDefaults() Config {
	if c.RetryBudget <= 0 {
		c.RetryBudget = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Runner executes the import pipeline, one import at a time, fed by an
// enqueue channel and a pending-import poller.
type Runner struct {
	pipeline    Pipeline
	pending     PendingSource
	onExhausted ExhaustedFunc
	cfg         Config

	queue chan int64
	once  sync.Once
}

// NewRunner wires a runner from its collaborators.
func NewRunner(pipeline Pipeline, pending PendingSource, onExhausted ExhaustedFunc, cfg Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		pipeline:    pipeline,
		pending:     pending,
		onExhausted: onExhausted,
		cfg:         cfg,
		queue:       make(chan int64, cfg.QueueSize),
	}
}

// Start launches the queue consumer and the pending-import poller.
// Both stop when ctx is cancelled. Start is idempotent.
func (r *Runner) Start(ctx context.Context) {
	r.once.Do(func() {
		slog.Info("import runner started",
			"retry_budget", r.cfg.RetryBudget,
			"poll_interval", r.cfg.PollInterval,
		)
		go r.consumeLoop(ctx)
		go r.pollLoop(ctx)
	})
}

// Enqueue schedules an import for processing. It never blocks: when the
// queue is full the import is left in pending for the poller to find.
func (r *Runner) Enqueue(importID int64) {
	select {
	case r.queue <- importID:
	default:
		slog.Warn("import queue full, deferring to poller", "import_id", importID)
	}
}

func (r *Runner) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("import runner stopped")
			return
		case id := <-r.queue:
			r.Process(ctx, id)
		}
	}
}

func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id, ok, err := r.pending.NextPending(ctx)
			if err != nil {
				slog.Error("poll pending imports", "error", err)
				continue
			}
			if ok {
				r.Enqueue(id)
			}
		}
	}
}

// Process runs one import through the pipeline, re-running the whole
// pipeline on failure until the retry budget is spent, then fires the
// exhaustion hook. Shutdown mid-attempt stops without consuming the
// budget; the import is picked up again on the next start.
func (r *Runner) Process(ctx context.Context, importID int64) {
	logger := slog.Default().With("import_id", importID)

	var err error
	for attempt := 1; attempt <= r.cfg.RetryBudget; attempt++ {
		err = r.pipeline.Run(ctx, importID)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			logger.Warn("import attempt aborted by shutdown", "attempt", attempt)
			return
		}

		logger.Warn("import attempt failed",
			"attempt", attempt,
			"budget", r.cfg.RetryBudget,
			"error", err,
		)
		if attempt < r.cfg.RetryBudget && !sleepContext(ctx, r.cfg.RetryBackoff) {
			return
		}
	}

	logger.Error("import retries exhausted", "error", err)
	if r.onExhausted != nil {
		r.onExhausted(ctx, importID)
	}
}

// sleepContext pauses for d, returning false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
