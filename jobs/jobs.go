package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/internal/ramp"
)

type Reconciler interface {
	ReconcileOpen(ctx context.Context, limit int) (ramp.ReconcileReport, error)
}

// ReconcileJob refreshes open transactions from the processor every interval.
// Runs never overlap; a run that would start while one is in flight is skipped.
func ReconcileJob(r Reconciler, scheduler gocron.Scheduler, interval time.Duration, batch int) (gocron.Job, error) {
	job, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() error {
			log.Info("Running reconcileJob")

			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			report, err := r.ReconcileOpen(ctx, batch)
			if err != nil {
				log.Errorf("reconcileJob failed: %v", err)
				return err
			}

			log.Infof("reconcileJob completed: checked=%d changed=%d failed=%d", report.Checked, report.Changed, report.Failed)
			return nil
		}),
		gocron.WithName("reconcile-open-transactions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)

	return job, err
}
