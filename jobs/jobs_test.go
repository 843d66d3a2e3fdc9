package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/priyankishorems/rampgate/internal/ramp"
)

type countingReconciler struct {
	calls atomic.Int32
	limit atomic.Int32
}

func (c *countingReconciler) ReconcileOpen(_ context.Context, limit int) (ramp.ReconcileReport, error) {
	c.calls.Add(1)
	c.limit.Store(int32(limit))
	return ramp.ReconcileReport{Checked: 1}, nil
}

func TestReconcileJobRuns(t *testing.T) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	t.Cleanup(func() { scheduler.Shutdown() })

	r := &countingReconciler{}
	job, err := ReconcileJob(r, scheduler, 20*time.Millisecond, 25)
	if err != nil {
		t.Fatalf("ReconcileJob: %v", err)
	}
	if job.Name() != "reconcile-open-transactions" {
		t.Errorf("job name = %q", job.Name())
	}

	scheduler.Start()

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if r.calls.Load() < 2 {
		t.Fatalf("expected job to run at least twice, ran %d times", r.calls.Load())
	}
	if r.limit.Load() != 25 {
		t.Errorf("limit = %d, want 25", r.limit.Load())
	}
}
