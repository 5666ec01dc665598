package models

import "time"

// Position is a GPS coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// JourneyModel is one worker's tracked shift. A journey is open while
// EndedAt is NULL; there is no separate status column.
type JourneyModel struct {
	Base
	WorkerID string `json:"worker_id" gorm:"type:char(36);not null;index:idx_journeys_worker_open"`
	TenantID string `json:"tenant_id" gorm:"type:char(36);index"`
	PlaceRef string `json:"place_ref" gorm:"type:varchar(191)"`

	StartLatitude  float64   `json:"start_latitude"`
	StartLongitude float64   `json:"start_longitude"`
	StartedAt      time.Time `json:"started_at" gorm:"not null"`

	EndLatitude  *float64   `json:"end_latitude,omitempty"`
	EndLongitude *float64   `json:"end_longitude,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty" gorm:"index:idx_journeys_worker_open"`

	// Denormalized last-known position so admin queries avoid a join
	// against journey_locations.
	LastLatitude  float64    `json:"last_latitude"`
	LastLongitude float64    `json:"last_longitude"`
	LastLocatedAt *time.Time `json:"last_located_at,omitempty"`

	Notes string `json:"notes" gorm:"type:text"`
}

func (JourneyModel) TableName() string { return "journeys" }

// Open reports whether the journey has not been ended yet.
func (j *JourneyModel) Open() bool { return j.EndedAt == nil }

// StartPosition returns the recorded start coordinate.
func (j *JourneyModel) StartPosition() Position {
	return Position{Latitude: j.StartLatitude, Longitude: j.StartLongitude}
}

// LastPosition returns the denormalized last-known coordinate.
func (j *JourneyModel) LastPosition() Position {
	return Position{Latitude: j.LastLatitude, Longitude: j.LastLongitude}
}
