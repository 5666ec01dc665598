package models

import "time"

// JourneyLocationModel is one GPS sample belonging to a journey.
// Rows are append-only; they are never updated or deleted.
type JourneyLocationModel struct {
	Base
	JourneyID  string    `json:"journey_id" gorm:"type:char(36);not null;index:idx_journey_locations_journey_time,composite:1"`
	WorkerID   string    `json:"worker_id"  gorm:"type:char(36);not null;index"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null;index:idx_journey_locations_journey_time,composite:2"`
}

func (JourneyLocationModel) TableName() string { return "journey_locations" }
