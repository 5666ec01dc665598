package monitor

import (
	"time"

	"github.com/fieldtrace/core/internal/config"
)

// Action is the sweep's decision for one journey.
type Action int

const (
	ActionNone Action = iota
	// ActionAlertInactive fires when heartbeats stopped arriving.
	ActionAlertInactive
	// ActionAlertNotMoving fires when heartbeats still arrive but the
	// device has not moved past the immobility threshold.
	ActionAlertNotMoving
	// ActionAlertRecovered fires when heartbeats resumed while the
	// alert flag is still set, re-asserting the clear in case the
	// heartbeat handler's write was lost.
	ActionAlertRecovered
)

func (a Action) String() string {
	switch a {
	case ActionAlertInactive:
		return "alert_inactive"
	case ActionAlertNotMoving:
		return "alert_not_moving"
	case ActionAlertRecovered:
		return "alert_recovered"
	default:
		return "none"
	}
}

// MonitorSnapshot is the classifier's read of a journey monitor row.
type MonitorSnapshot struct {
	LastHeartbeatAt time.Time
	IsMoving        bool
	AlertSent       bool
}

// Classify applies the liveness rules to one open journey. It is a pure
// function of its inputs so the sweep's decisions are testable without
// a store. lastSampleAt is nil when the journey has no location rows.
//
// Rule order matters: the heartbeat-timeout case pre-empts the
// not-moving case, and recovery only applies while the flag is set.
func Classify(now time.Time, m MonitorSnapshot, lastSampleAt *time.Time, cfg config.MonitorConfig) Action {
	sinceHeartbeat := now.Sub(m.LastHeartbeatAt)

	if sinceHeartbeat > cfg.HeartbeatTimeout() {
		if !m.AlertSent {
			return ActionAlertInactive
		}
		return ActionNone
	}

	if !m.IsMoving && !m.AlertSent && lastSampleAt != nil {
		if now.Sub(*lastSampleAt) > cfg.NotMovingTimeout() {
			return ActionAlertNotMoving
		}
	}

	if sinceHeartbeat <= cfg.RecoveryWindow() && m.AlertSent {
		return ActionAlertRecovered
	}

	return ActionNone
}
