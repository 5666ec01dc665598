package models

import "time"

// JourneyMonitorModel holds liveness state for a (worker, journey) pair.
// It is created on the first heartbeat, updated on every heartbeat, and
// retained after the journey ends for audit history.
type JourneyMonitorModel struct {
	Base
	WorkerID  string `json:"worker_id"  gorm:"type:char(36);not null;uniqueIndex:uniq_monitor_worker_journey,composite:1"`
	JourneyID string `json:"journey_id" gorm:"type:char(36);not null;uniqueIndex:uniq_monitor_worker_journey,composite:2"`

	LastHeartbeatAt time.Time `json:"last_heartbeat_at" gorm:"not null;index"`
	LastLatitude    float64   `json:"last_latitude"`
	LastLongitude   float64   `json:"last_longitude"`
	IsMoving        bool      `json:"is_moving"`
	AppState        string    `json:"app_state" gorm:"type:varchar(32)"`

	// AlertSent guards the anomaly sweep against alert storms: once an
	// alert fires it stays set until a heartbeat or a recovery clears it.
	AlertSent bool `json:"alert_sent"`
}

func (JourneyMonitorModel) TableName() string { return "journey_monitors" }
