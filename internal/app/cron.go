package app

import (
	"context"
	"fmt"

	"github.com/fieldtrace/core/internal/config"
	"github.com/fieldtrace/core/internal/modules/monitor"
	pkgcron "github.com/fieldtrace/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers scheduled background jobs. The sweep also
// stays callable via POST /cron/journey-monitor for deployments that
// drive it from an external scheduler; the Redis lock keeps the two
// from overlapping.
func registerCronJobs(sched *pkgcron.Scheduler, sweep *monitor.Sweep, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "journey_monitor_sweep",
		Description: "scan open journeys for stale heartbeats and immobile workers",
		Interval:    cfg.Monitor.SweepInterval(),
		Fn: func(ctx context.Context) error {
			result, err := sweep.Run(ctx)
			if err != nil {
				cronLogger.Warn("journey monitor sweep failed", zap.Error(err))
				return err
			}
			if result.Skipped {
				cronLogger.Info("journey monitor sweep skipped, another instance holds the lock")
				return nil
			}
			cronLogger.Info(fmt.Sprintf("journey monitor sweep done, checked %d, alerts %d", result.Checked, result.Alerts))
			return nil
		},
	})
}
