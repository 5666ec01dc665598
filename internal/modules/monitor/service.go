package monitor

import (
	"errors"
	"time"

	"github.com/fieldtrace/core/internal/config"
	"github.com/fieldtrace/core/internal/database"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/modules/journey"
	"github.com/fieldtrace/core/internal/pkg/apperr"
	"gorm.io/gorm"
)

// HeartbeatInput is one liveness signal from a worker device.
type HeartbeatInput struct {
	Position models.Position
	// IsMoving is nil when the device did not report it; only an
	// explicit false suppresses the piggybacked location sample.
	IsMoving *bool
	Time     time.Time
}

// HeartbeatResult is returned to the device.
type HeartbeatResult struct {
	MinutesSinceMove int `json:"minutesSinceMove"`
	// ShouldSendNotification is an informational hint computed from the
	// immobility threshold; it does not trigger an alert by itself.
	ShouldSendNotification bool `json:"shouldSendNotification"`
}

// Service records heartbeats and derives per-journey monitor state.
type Service struct {
	db       *gorm.DB
	journeys *journey.Service
	cfg      config.MonitorConfig
}

func NewService(db *gorm.DB, journeys *journey.Service, cfg config.MonitorConfig) *Service {
	return &Service{db: db, journeys: journeys, cfg: cfg}
}

// Heartbeat processes one liveness signal for the worker's open journey.
// Any heartbeat is evidence of liveness, so a pending alert flag is
// cleared unconditionally.
func (s *Service) Heartbeat(workerID string, in HeartbeatInput) (*HeartbeatResult, error) {
	j, err := s.latestJourney(workerID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperr.NotFound("no journey for this worker")
	}
	if !j.Open() {
		return nil, apperr.Conflict("journey already ended")
	}

	now := in.Time
	moving := in.IsMoving == nil || *in.IsMoving

	lastMovedAt := j.StartedAt
	if j.LastLocatedAt != nil {
		lastMovedAt = *j.LastLocatedAt
	}
	minutesSinceMove := int(now.Sub(lastMovedAt).Minutes())
	if moving {
		minutesSinceMove = 0
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Heartbeats double as low-frequency samples while the device
		// is moving.
		if moving {
			if err := tx.Create(&models.JourneyLocationModel{
				JourneyID:  j.ID,
				WorkerID:   workerID,
				Latitude:   in.Position.Latitude,
				Longitude:  in.Position.Longitude,
				RecordedAt: now,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(j).Updates(map[string]interface{}{
				"last_latitude":   in.Position.Latitude,
				"last_longitude":  in.Position.Longitude,
				"last_located_at": now,
			}).Error; err != nil {
				return err
			}
		}
		return s.upsertMonitor(tx, workerID, j.ID, in, moving, now)
	})
	if err != nil {
		return nil, err
	}

	return &HeartbeatResult{
		MinutesSinceMove:       minutesSinceMove,
		ShouldSendNotification: minutesSinceMove >= s.cfg.ImmobilityHintMinutes,
	}, nil
}

// MonitorFor returns the monitor row for a (worker, journey) pair, or
// nil when no heartbeat has been received yet.
func (s *Service) MonitorFor(workerID, journeyID string) (*models.JourneyMonitorModel, error) {
	var m models.JourneyMonitorModel
	err := s.db.
		Where("worker_id = ? AND journey_id = ?", workerID, journeyID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// RecordAppState persists the app state a device reported over its live
// connection onto the monitor row of the worker's open journey. A
// worker without an open journey or monitor is a no-op.
func (s *Service) RecordAppState(workerID, state string) error {
	j, err := s.journeys.OpenJourney(workerID)
	if err != nil || j == nil {
		return err
	}
	return s.db.Model(&models.JourneyMonitorModel{}).
		Where("worker_id = ? AND journey_id = ?", workerID, j.ID).
		Update("app_state", state).Error
}

func (s *Service) latestJourney(workerID string) (*models.JourneyModel, error) {
	var j models.JourneyModel
	err := s.db.
		Where("worker_id = ?", workerID).
		Order("started_at DESC").
		First(&j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}

func (s *Service) upsertMonitor(tx *gorm.DB, workerID, journeyID string, in HeartbeatInput, moving bool, now time.Time) error {
	updates := map[string]interface{}{
		"last_heartbeat_at": now,
		"last_latitude":     in.Position.Latitude,
		"last_longitude":    in.Position.Longitude,
		"is_moving":         moving,
		"alert_sent":        false,
	}

	res := tx.Model(&models.JourneyMonitorModel{}).
		Where("worker_id = ? AND journey_id = ?", workerID, journeyID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	err := tx.Create(&models.JourneyMonitorModel{
		WorkerID:        workerID,
		JourneyID:       journeyID,
		LastHeartbeatAt: now,
		LastLatitude:    in.Position.Latitude,
		LastLongitude:   in.Position.Longitude,
		IsMoving:        moving,
		AlertSent:       false,
	}).Error
	if err != nil && database.IsDuplicateEntry(err) {
		// Lost a concurrent first-heartbeat race; the other writer's row
		// is there now, last write wins on the fields.
		return tx.Model(&models.JourneyMonitorModel{}).
			Where("worker_id = ? AND journey_id = ?", workerID, journeyID).
			Updates(updates).Error
	}
	return err
}
