package monitor

import (
	"testing"
	"time"

	"github.com/fieldtrace/core/internal/config"
	"github.com/stretchr/testify/assert"
)

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		HeartbeatTimeoutMinutes: 15,
		NotMovingTimeoutMinutes: 45,
		RecoveryWindowMinutes:   5,
		ImmobilityHintMinutes:   30,
		SweepIntervalMinutes:    5,
	}
}

func TestClassifyHeartbeatTimeout(t *testing.T) {
	cfg := testMonitorConfig()
	now := time.Now()

	m := MonitorSnapshot{LastHeartbeatAt: now.Add(-16 * time.Minute)}
	assert.Equal(t, ActionAlertInactive, Classify(now, m, nil, cfg))

	// Already alerted: stays quiet until something resets the flag.
	m.AlertSent = true
	assert.Equal(t, ActionNone, Classify(now, m, nil, cfg))

	// Right at the threshold is not over it.
	m = MonitorSnapshot{LastHeartbeatAt: now.Add(-15 * time.Minute)}
	assert.Equal(t, ActionNone, Classify(now, m, nil, cfg))
}

func TestClassifyTimeoutPreemptsNotMoving(t *testing.T) {
	cfg := testMonitorConfig()
	now := time.Now()
	stale := now.Add(-60 * time.Minute)

	// Both conditions hold; the heartbeat-timeout case wins.
	m := MonitorSnapshot{LastHeartbeatAt: now.Add(-20 * time.Minute), IsMoving: false}
	assert.Equal(t, ActionAlertInactive, Classify(now, m, &stale, cfg))
}

func TestClassifyNotMoving(t *testing.T) {
	cfg := testMonitorConfig()
	now := time.Now()

	m := MonitorSnapshot{LastHeartbeatAt: now.Add(-2 * time.Minute), IsMoving: false}

	stale := now.Add(-46 * time.Minute)
	assert.Equal(t, ActionAlertNotMoving, Classify(now, m, &stale, cfg))

	recent := now.Add(-10 * time.Minute)
	assert.Equal(t, ActionNone, Classify(now, m, &recent, cfg))

	// No samples at all: nothing to judge immobility against.
	assert.Equal(t, ActionNone, Classify(now, m, nil, cfg))

	// A moving worker is never immobile.
	m.IsMoving = true
	assert.Equal(t, ActionNone, Classify(now, m, &stale, cfg))
}

func TestClassifyRecovery(t *testing.T) {
	cfg := testMonitorConfig()
	now := time.Now()

	m := MonitorSnapshot{
		LastHeartbeatAt: now.Add(-1 * time.Minute),
		IsMoving:        true,
		AlertSent:       true,
	}
	assert.Equal(t, ActionAlertRecovered, Classify(now, m, nil, cfg))

	// Heartbeat too old for the recovery window, too fresh for timeout.
	m.LastHeartbeatAt = now.Add(-10 * time.Minute)
	assert.Equal(t, ActionNone, Classify(now, m, nil, cfg))

	// Flag already clear: nothing to recover.
	m = MonitorSnapshot{LastHeartbeatAt: now.Add(-1 * time.Minute), IsMoving: true}
	assert.Equal(t, ActionNone, Classify(now, m, nil, cfg))
}

func TestClassifyIdempotentTimeline(t *testing.T) {
	cfg := testMonitorConfig()
	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// Worker started at T0 and heartbeated once, then went silent.
	m := MonitorSnapshot{LastHeartbeatAt: t0, IsMoving: true}

	// Sweep at T0+16: one inactive alert fires.
	assert.Equal(t, ActionAlertInactive, Classify(t0.Add(16*time.Minute), m, nil, cfg))
	m.AlertSent = true

	// Repeated sweeps with no intervening heartbeat stay silent.
	assert.Equal(t, ActionNone, Classify(t0.Add(20*time.Minute), m, nil, cfg))
	assert.Equal(t, ActionNone, Classify(t0.Add(25*time.Minute), m, nil, cfg))

	// Heartbeat at T0+17 clears the flag (handler side); sweep at T0+18
	// sees a fresh heartbeat with the flag still set when the handler's
	// clear was lost, and re-asserts recovery.
	m.LastHeartbeatAt = t0.Add(17 * time.Minute)
	assert.Equal(t, ActionAlertRecovered, Classify(t0.Add(18*time.Minute), m, nil, cfg))
	m.AlertSent = false

	// Once clear, the same sweep time is quiet.
	assert.Equal(t, ActionNone, Classify(t0.Add(18*time.Minute), m, nil, cfg))
}
