package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldtrace/core/internal/config"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/modules/gateway/live"
	"github.com/fieldtrace/core/internal/modules/journey"
	"github.com/fieldtrace/core/internal/modules/notify"
	pkgredis "github.com/fieldtrace/core/internal/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sweepLockKey = "ft:sweep:journey-monitor"
	sweepLockTTL = 4 * time.Minute
)

// SweepResult summarizes one anomaly-detection pass.
type SweepResult struct {
	Checked int  `json:"checked"`
	Alerts  int  `json:"alerts"`
	Skipped bool `json:"skipped,omitempty"`
}

// Sweep scans all open journeys and fires alerts through the
// dispatcher. It is invoked on an external cadence and holds a Redis
// leader lock so overlapping invocations cannot double-send.
type Sweep struct {
	db         *gorm.DB
	journeys   *journey.Service
	monitors   *Service
	directory  live.ConnectionDirectory
	dispatcher *notify.Dispatcher
	rc         *pkgredis.Client
	cfg        config.MonitorConfig
	logger     *zap.Logger
	holderID   string
}

func NewSweep(
	db *gorm.DB,
	journeys *journey.Service,
	monitors *Service,
	directory live.ConnectionDirectory,
	dispatcher *notify.Dispatcher,
	rc *pkgredis.Client,
	cfg config.MonitorConfig,
	logger *zap.Logger,
) *Sweep {
	return &Sweep{
		db:         db,
		journeys:   journeys,
		monitors:   monitors,
		directory:  directory,
		dispatcher: dispatcher,
		rc:         rc,
		cfg:        cfg,
		logger:     logger,
		holderID:   uuid.New().String(),
	}
}

// Run executes one sweep. Per-journey failures are logged and skipped;
// the pass never aborts on a single bad journey.
func (s *Sweep) Run(ctx context.Context) (SweepResult, error) {
	if s.rc != nil {
		ok, err := s.rc.TryLock(ctx, sweepLockKey, s.holderID, sweepLockTTL)
		if err != nil {
			return SweepResult{}, fmt.Errorf("sweep lock: %w", err)
		}
		if !ok {
			return SweepResult{Skipped: true}, nil
		}
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = s.rc.Unlock(unlockCtx, sweepLockKey, s.holderID)
		}()
	}

	open, err := s.journeys.ListOpen()
	if err != nil {
		return SweepResult{}, err
	}

	now := time.Now()
	result := SweepResult{}
	for i := range open {
		j := &open[i]
		alerted, err := s.checkJourney(ctx, j, now)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("sweep: journey check failed",
					zap.String("journey", j.ID),
					zap.String("worker", j.WorkerID),
					zap.Error(err),
				)
			}
			continue
		}
		result.Checked++
		if alerted {
			result.Alerts++
		}
	}
	return result, nil
}

func (s *Sweep) checkJourney(ctx context.Context, j *models.JourneyModel, now time.Time) (bool, error) {
	m, err := s.monitors.MonitorFor(j.WorkerID, j.ID)
	if err != nil {
		return false, err
	}
	if m == nil {
		// No heartbeat received yet; nothing to judge.
		return false, nil
	}

	var lastSampleAt *time.Time
	last, err := s.journeys.LatestLocation(j.ID)
	if err != nil {
		return false, err
	}
	if last != nil {
		lastSampleAt = &last.RecordedAt
	}

	action := Classify(now, MonitorSnapshot{
		LastHeartbeatAt: m.LastHeartbeatAt,
		IsMoving:        m.IsMoving,
		AlertSent:       m.AlertSent,
	}, lastSampleAt, s.cfg)

	switch action {
	case ActionAlertInactive:
		return s.fireAlert(ctx, j, m, "journey inactive",
			fmt.Sprintf("no heartbeat from worker for over %d minutes", s.cfg.HeartbeatTimeoutMinutes))
	case ActionAlertNotMoving:
		return s.fireAlert(ctx, j, m, "journey not moving",
			fmt.Sprintf("worker has not moved for over %d minutes", s.cfg.NotMovingTimeoutMinutes))
	case ActionAlertRecovered:
		return s.fireRecovery(ctx, j, m)
	default:
		return false, nil
	}
}

// fireAlert sets the alert flag with a conditional update guarded on
// (alert_sent, last_heartbeat_at) so concurrent sweeps cannot both win,
// then dispatches to the tenant's admin tokens.
func (s *Sweep) fireAlert(ctx context.Context, j *models.JourneyModel, m *models.JourneyMonitorModel, title, body string) (bool, error) {
	res := s.db.Model(&models.JourneyMonitorModel{}).
		Where("id = ? AND alert_sent = ? AND last_heartbeat_at = ?", m.ID, false, m.LastHeartbeatAt).
		Update("alert_sent", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Another sweep or an intervening heartbeat got here first.
		return false, nil
	}

	s.dispatch(ctx, j, title, body)
	return true, nil
}

func (s *Sweep) fireRecovery(ctx context.Context, j *models.JourneyModel, m *models.JourneyMonitorModel) (bool, error) {
	res := s.db.Model(&models.JourneyMonitorModel{}).
		Where("id = ? AND alert_sent = ?", m.ID, true).
		Update("alert_sent", false)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.dispatch(ctx, j, "journey recovered", "worker is reporting heartbeats again")
	return true, nil
}

func (s *Sweep) dispatch(ctx context.Context, j *models.JourneyModel, title, body string) {
	connected := false
	if s.directory != nil {
		_, connected = s.directory.Lookup(j.WorkerID)
	}

	msg := notify.Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"journeyId": j.ID,
			"workerId":  j.WorkerID,
			"placeRef":  j.PlaceRef,
			"connected": fmt.Sprintf("%t", connected),
		},
	}

	out, err := s.dispatcher.DispatchToAdmins(ctx, j.TenantID, msg)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("sweep: admin dispatch failed", zap.String("journey", j.ID), zap.Error(err))
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("sweep: alert dispatched",
			zap.String("journey", j.ID),
			zap.String("title", title),
			zap.Int("sent", out.Sent),
			zap.Int("failed", out.Failed),
		)
	}
}
