package admin

import (
	"sort"
	"time"

	"github.com/fieldtrace/core/internal/config"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/modules/gateway/live"
	"github.com/fieldtrace/core/internal/modules/journey"
	"github.com/fieldtrace/core/internal/modules/monitor"
)

// Device statuses in fixed display priority order.
const (
	StatusActive       = "active"
	StatusBackground   = "background"
	StatusInactive     = "inactive"
	StatusDisconnected = "disconnected"
	StatusUnknown      = "unknown"
)

var statusPriority = map[string]int{
	StatusActive:       0,
	StatusBackground:   1,
	StatusInactive:     2,
	StatusDisconnected: 3,
	StatusUnknown:      4,
}

// DeviceStatus is one row of the admin live view.
type DeviceStatus struct {
	WorkerID        string           `json:"workerId"`
	JourneyID       string           `json:"journeyId"`
	PlaceRef        string           `json:"placeRef,omitempty"`
	Status          string           `json:"status"`
	Connected       bool             `json:"connected"`
	StartedAt       time.Time        `json:"startedAt"`
	LastHeartbeatAt *time.Time       `json:"lastHeartbeatAt,omitempty"`
	LastPosition    *models.Position `json:"lastPosition,omitempty"`
}

// Summary counts devices per status bucket.
type Summary struct {
	Active       int `json:"active"`
	Background   int `json:"background"`
	Inactive     int `json:"inactive"`
	Disconnected int `json:"disconnected"`
	Unknown      int `json:"unknown"`
	Total        int `json:"total"`
}

// Service answers "who is active right now" by merging persisted
// journey/monitor state with the live connection directory.
type Service struct {
	journeys  *journey.Service
	monitors  *monitor.Service
	directory live.ConnectionDirectory
	cfg       config.MonitorConfig
}

func NewService(journeys *journey.Service, monitors *monitor.Service, directory live.ConnectionDirectory, cfg config.MonitorConfig) *Service {
	return &Service{journeys: journeys, monitors: monitors, directory: directory, cfg: cfg}
}

// ActiveDevices returns one status row per open journey, sorted by the
// fixed priority table (active < background < inactive < disconnected
// < unknown).
func (s *Service) ActiveDevices(now time.Time) ([]DeviceStatus, Summary, error) {
	open, err := s.journeys.ListOpen()
	if err != nil {
		return nil, Summary{}, err
	}

	rows := make([]DeviceStatus, 0, len(open))
	for i := range open {
		j := &open[i]

		row := DeviceStatus{
			WorkerID:  j.WorkerID,
			JourneyID: j.ID,
			PlaceRef:  j.PlaceRef,
			Status:    StatusUnknown,
			StartedAt: j.StartedAt,
		}
		if j.LastLocatedAt != nil {
			pos := j.LastPosition()
			row.LastPosition = &pos
		}

		entry, connected := s.directory.Lookup(j.WorkerID)
		m, err := s.monitors.MonitorFor(j.WorkerID, j.ID)
		if err != nil {
			return nil, Summary{}, err
		}
		if m != nil {
			hb := m.LastHeartbeatAt
			row.LastHeartbeatAt = &hb
		}

		row.Connected = connected
		row.Status = deriveStatus(now, entry, connected, m, s.cfg)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, k int) bool {
		pi, pk := priorityOf(rows[i].Status), priorityOf(rows[k].Status)
		if pi != pk {
			return pi < pk
		}
		return rows[i].WorkerID < rows[k].WorkerID
	})

	summary := Summary{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusActive:
			summary.Active++
		case StatusBackground:
			summary.Background++
		case StatusInactive:
			summary.Inactive++
		case StatusDisconnected:
			summary.Disconnected++
		default:
			summary.Unknown++
		}
	}
	return rows, summary, nil
}

// RequestLocation asks a connected worker to report its position now.
// Returns false without error when the worker is unreachable.
func (s *Service) RequestLocation(workerID, journeyID string) bool {
	return s.directory.RequestLocation(workerID, journeyID)
}

// deriveStatus implements the merge rules: a live connection entry wins
// outright; otherwise the monitor's heartbeat age buckets the status.
func deriveStatus(now time.Time, entry live.Entry, connected bool, m *models.JourneyMonitorModel, cfg config.MonitorConfig) string {
	if connected {
		if entry.AppState == "" {
			return StatusActive
		}
		return entry.AppState
	}
	if m == nil {
		return StatusUnknown
	}

	age := now.Sub(m.LastHeartbeatAt)
	switch {
	case age < cfg.RecoveryWindow():
		if m.AppState != "" {
			return m.AppState
		}
		return StatusActive
	case age <= cfg.HeartbeatTimeout():
		return StatusInactive
	default:
		return StatusDisconnected
	}
}

func priorityOf(status string) int {
	if p, ok := statusPriority[status]; ok {
		return p
	}
	return statusPriority[StatusUnknown]
}
