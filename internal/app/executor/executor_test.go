package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voucherdesk/voucherdesk/internal/domain"
)

// ─── Runner Tests ───────────────────────────────────────────────────────────

func TestNew(t *testing.T) {
	r := New()
	if r.Active() {
		t.Error("new runner should be idle")
	}
	if s := r.Stats(); s.Batches != 0 || s.Completed != 0 || s.Failed != 0 {
		t.Errorf("initial stats = %+v", s)
	}
}

func TestRun_AllSucceed(t *testing.T) {
	r := New()
	var seen []int

	res, err := r.Run(context.Background(), "create", 5, func(ctx context.Context, i int) error {
		seen = append(seen, i)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Succeeded != 5 || res.Failed != 0 {
		t.Errorf("result = %+v, want 5/0", res)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("steps ran out of order: %v", seen)
		}
	}
}

func TestRun_FailuresDoNotAbort(t *testing.T) {
	r := New()
	calls := 0

	res, err := r.Run(context.Background(), "create", 5, func(ctx context.Context, i int) error {
		calls++
		if i == 1 || i == 3 {
			return fmt.Errorf("step %d: database is locked", i)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if res.Succeeded != 3 || res.Failed != 2 {
		t.Errorf("result = %+v, want 3/2", res)
	}
	if len(res.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(res.Errors))
	}
	if !errors.Is(res.Err(), domain.ErrPartialBatch) {
		t.Errorf("Err() = %v, want ErrPartialBatch", res.Err())
	}

	s := r.Stats()
	if s.Batches != 1 || s.Completed != 3 || s.Failed != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRun_StepsAreSequential(t *testing.T) {
	r := New()
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	r.Run(context.Background(), "create", 4, func(ctx context.Context, i int) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})

	if maxInFlight != 1 {
		t.Errorf("max in flight = %d, want 1", maxInFlight)
	}
}

func TestRun_Busy(t *testing.T) {
	r := New()
	started := make(chan struct{})
	release := make(chan struct{})

	go r.Run(context.Background(), "create", 1, func(ctx context.Context, i int) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if !r.Active() {
		t.Error("runner should be active during a batch")
	}
	_, err := r.Run(context.Background(), "create", 1, func(ctx context.Context, i int) error { return nil })
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second Run() error = %v, want ErrBusy", err)
	}
	close(release)
}

func TestRun_CancelDoesNotCutBatchShort(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	res, err := r.Run(ctx, "create", 3, func(ctx context.Context, i int) error {
		calls++
		if i == 0 {
			cancel()
		}
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if res.Succeeded != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3/0", res)
	}
}
