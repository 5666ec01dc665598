package journey

import (
	"errors"
	"time"

	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/pkg/apperr"
	"gorm.io/gorm"
)

// Service owns the journey state machine (NONE → OPEN → CLOSED) and
// location ingestion. "Open" is defined purely by a start record with a
// NULL end time; there is no status column to get out of sync.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// OpenJourney returns the worker's current open journey, or nil.
func (s *Service) OpenJourney(workerID string) (*models.JourneyModel, error) {
	var j models.JourneyModel
	err := s.db.
		Where("worker_id = ? AND ended_at IS NULL", workerID).
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

// Start opens a new journey. The journey row and its first location
// sample are written in one transaction.
func (s *Service) Start(workerID, tenantID string, dto *StartJourneyDTO, now time.Time) (*models.JourneyModel, error) {
	open, err := s.OpenJourney(workerID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, apperr.Conflict("journey already started")
	}

	pos := dto.Position.toPosition()
	j := models.JourneyModel{
		WorkerID:       workerID,
		TenantID:       tenantID,
		PlaceRef:       dto.PlaceRef,
		StartLatitude:  pos.Latitude,
		StartLongitude: pos.Longitude,
		StartedAt:      now,
		LastLatitude:   pos.Latitude,
		LastLongitude:  pos.Longitude,
		LastLocatedAt:  &now,
		Notes:          dto.Notes,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&j).Error; err != nil {
			return err
		}
		return tx.Create(&models.JourneyLocationModel{
			JourneyID:  j.ID,
			WorkerID:   workerID,
			Latitude:   pos.Latitude,
			Longitude:  pos.Longitude,
			RecordedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// End closes the worker's open journey and returns the closed journey
// plus its total sample count. Duration is wall clock; callers derive
// minutes from StartedAt/EndedAt.
func (s *Service) End(workerID string, pos models.Position, notes string, now time.Time) (*models.JourneyModel, int64, error) {
	open, err := s.OpenJourney(workerID)
	if err != nil {
		return nil, 0, err
	}
	if open == nil {
		return nil, 0, apperr.NotFound("no active journey")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"end_latitude":    pos.Latitude,
			"end_longitude":   pos.Longitude,
			"ended_at":        now,
			"last_latitude":   pos.Latitude,
			"last_longitude":  pos.Longitude,
			"last_located_at": now,
		}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := tx.Model(open).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Create(&models.JourneyLocationModel{
			JourneyID:  open.ID,
			WorkerID:   workerID,
			Latitude:   pos.Latitude,
			Longitude:  pos.Longitude,
			RecordedAt: now,
		}).Error
	})
	if err != nil {
		return nil, 0, err
	}

	open.EndLatitude = &pos.Latitude
	open.EndLongitude = &pos.Longitude
	open.EndedAt = &now

	count, err := s.SampleCount(open.ID)
	if err != nil {
		return nil, 0, err
	}
	return open, count, nil
}

// AddLocation appends one sample to the caller's open journey and
// refreshes the denormalized last-known position.
func (s *Service) AddLocation(workerID string, pos models.Position, recordedAt time.Time) (*models.JourneyModel, error) {
	open, err := s.OpenJourney(workerID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, apperr.Forbidden("no active journey for this worker")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.JourneyLocationModel{
			JourneyID:  open.ID,
			WorkerID:   workerID,
			Latitude:   pos.Latitude,
			Longitude:  pos.Longitude,
			RecordedAt: recordedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(open).Updates(map[string]interface{}{
			"last_latitude":   pos.Latitude,
			"last_longitude":  pos.Longitude,
			"last_located_at": recordedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return open, nil
}

// AddBatch appends samples in submitted array order. The journey's
// last-known position is taken from the last array element, not the
// latest timestamp: clients are trusted to submit batches
// chronologically, and a stale trailing element is accepted as-is.
func (s *Service) AddBatch(workerID, journeyID string, items []BatchLocationItem) (int, error) {
	if len(items) == 0 {
		return 0, apperr.Validation("positions must not be empty")
	}

	var j models.JourneyModel
	err := s.db.First(&j, "id = ?", journeyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.Forbidden("journey not found")
		}
		return 0, err
	}
	if j.WorkerID != workerID || !j.Open() {
		return 0, apperr.Forbidden("journey is not open for this worker")
	}

	rows := make([]models.JourneyLocationModel, len(items))
	for i, item := range items {
		if item.Latitude == nil || item.Longitude == nil {
			return 0, apperr.Validation("malformed position")
		}
		rows[i] = models.JourneyLocationModel{
			JourneyID:  j.ID,
			WorkerID:   workerID,
			Latitude:   *item.Latitude,
			Longitude:  *item.Longitude,
			RecordedAt: item.Time,
		}
	}
	last := items[len(items)-1]

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&j).Updates(map[string]interface{}{
			"last_latitude":   *last.Latitude,
			"last_longitude":  *last.Longitude,
			"last_located_at": last.Time,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Locations returns the journey's samples in recorded order.
func (s *Service) Locations(journeyID string) ([]models.JourneyLocationModel, error) {
	var rows []models.JourneyLocationModel
	err := s.db.
		Where("journey_id = ?", journeyID).
		Order("recorded_at ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}

// GetByID loads a journey row.
func (s *Service) GetByID(journeyID string) (*models.JourneyModel, error) {
	var j models.JourneyModel
	if err := s.db.First(&j, "id = ?", journeyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("journey not found")
		}
		return nil, err
	}
	return &j, nil
}

// SampleCount counts the journey's location rows.
func (s *Service) SampleCount(journeyID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.JourneyLocationModel{}).
		Where("journey_id = ?", journeyID).
		Count(&count).Error
	return count, err
}

// ListOpen returns every open journey, oldest first. Used by the
// anomaly sweep and the admin status query.
func (s *Service) ListOpen() ([]models.JourneyModel, error) {
	var rows []models.JourneyModel
	err := s.db.
		Where("ended_at IS NULL").
		Order("started_at ASC").
		Find(&rows).Error
	return rows, err
}

// LatestLocation returns the most recent sample of a journey, or nil.
func (s *Service) LatestLocation(journeyID string) (*models.JourneyLocationModel, error) {
	var row models.JourneyLocationModel
	err := s.db.
		Where("journey_id = ?", journeyID).
		Order("recorded_at DESC, created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// DurationMinutes computes whole wall-clock minutes between start and
// end (or now for open journeys). No timezone normalization.
func DurationMinutes(j *models.JourneyModel, now time.Time) int {
	end := now
	if j.EndedAt != nil {
		end = *j.EndedAt
	}
	return int(end.Sub(j.StartedAt).Minutes())
}
