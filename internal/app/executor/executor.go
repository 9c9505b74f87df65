// Package executor runs batches of independent backend operations.
//
// A batch:
//  1. Claims the single batch slot (one batch at a time)
//  2. Runs every step in order, one in flight at a time
//  3. Never aborts on a failed step; failures are counted and kept
//  4. Reports the success/failure tally
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

// ErrBusy is returned when a batch is submitted while another is running.
var ErrBusy = errors.New("a batch is already running")

// Step is one unit of work. index is 0-based.
type Step func(ctx context.Context, index int) error

// Result is the tally of one batch.
type Result struct {
	Succeeded int
	Failed    int
	Errors    []error // one per failed step, in order
}

// Total is Succeeded + Failed.
func (r Result) Total() int { return r.Succeeded + r.Failed }

// Err is nil for a clean batch, else it wraps the first failure.
func (r Result) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d failed, first: %w", domain.ErrPartialBatch, r.Failed, r.Total(), r.Errors[0])
}

// Runner executes batches sequentially.
type Runner struct {
	mu        sync.RWMutex
	sem       chan struct{}
	active    bool
	batches   int64
	completed int64
	failed    int64
}

// New creates a Runner.
func New() *Runner {
	return &Runner{sem: make(chan struct{}, 1)}
}

// Run executes count steps named op. It returns ErrBusy without running
// anything if another batch holds the slot. Once started, every step is
// issued: cancelling ctx does not cut the batch short.
func (r *Runner) Run(ctx context.Context, op string, count int, step Step) (Result, error) {
	select {
	case r.sem <- struct{}{}:
	default:
		return Result{}, ErrBusy
	}
	defer func() { <-r.sem }()

	r.setActive(true)
	defer r.setActive(false)

	ctx = context.WithoutCancel(ctx)
	var res Result
	for i := 0; i < count; i++ {
		if err := step(ctx, i); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err)
			observability.BatchSteps.WithLabelValues(op, "failed").Inc()
			log.WithError(err).WithFields(log.Fields{"op": op, "step": i + 1, "of": count}).Warn("batch step failed")
			continue
		}
		res.Succeeded++
		observability.BatchSteps.WithLabelValues(op, "succeeded").Inc()
	}

	r.mu.Lock()
	r.batches++
	r.completed += int64(res.Succeeded)
	r.failed += int64(res.Failed)
	r.mu.Unlock()

	log.WithFields(log.Fields{"op": op, "succeeded": res.Succeeded, "failed": res.Failed}).Info("batch finished")
	return res, nil
}

func (r *Runner) setActive(v bool) {
	r.mu.Lock()
	r.active = v
	r.mu.Unlock()
}

// Stats are cumulative runner counters.
type Stats struct {
	Active    bool  `json:"active"`
	Batches   int64 `json:"batches"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Stats returns current runner statistics.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Active:    r.active,
		Batches:   r.batches,
		Completed: r.completed,
		Failed:    r.failed,
	}
}

// Active reports whether a batch is running.
func (r *Runner) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}
