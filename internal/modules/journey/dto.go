package journey

import (
	"time"

	"github.com/fieldtrace/core/internal/models"
)

// PositionDTO is a GPS coordinate submitted by a worker device.
type PositionDTO struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (p *PositionDTO) toPosition() models.Position {
	return models.Position{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// StartJourneyDTO starts a new shift.
type StartJourneyDTO struct {
	PlaceRef string      `json:"placeRef"`
	Position PositionDTO `json:"position" binding:"required"`
	Notes    string      `json:"notes"`
}

// EndJourneyDTO ends the caller's open shift.
type EndJourneyDTO struct {
	Position PositionDTO `json:"position" binding:"required"`
	Notes    string      `json:"notes"`
}

// AddLocationDTO appends a single sample to the caller's open journey.
type AddLocationDTO struct {
	Position PositionDTO `json:"position" binding:"required"`
	Time     *time.Time  `json:"time"`
}

// BatchLocationItem is one element of a batch upload. Each element
// carries its own timestamp; the batch is trusted to be in
// chronological order.
type BatchLocationItem struct {
	Latitude  *float64  `json:"latitude" binding:"required"`
	Longitude *float64  `json:"longitude" binding:"required"`
	Time      time.Time `json:"time" binding:"required"`
}

// AddLocationBatchDTO appends multiple samples at once.
type AddLocationBatchDTO struct {
	JourneyID string              `json:"journeyId" binding:"required"`
	Positions []BatchLocationItem `json:"positions" binding:"required,dive"`
}

// startResponse is returned by POST /journey/start.
type startResponse struct {
	JourneyID string    `json:"journeyId"`
	StartedAt time.Time `json:"startedAt"`
}

// endResponse is returned by POST /journey/end.
type endResponse struct {
	JourneyID       string `json:"journeyId"`
	DurationMinutes int    `json:"durationMinutes"`
	SampleCount     int64  `json:"sampleCount"`
}

// activeResponse is returned by GET /journey/active.
type activeResponse struct {
	JourneyID       string    `json:"journeyId"`
	StartedAt       time.Time `json:"startedAt"`
	DurationMinutes int       `json:"durationMinutes"`
	SampleCount     int64     `json:"sampleCount"`
}

// locationResponse is one sample in GET /journey/:id/locations.
type locationResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recordedAt"`
}
