package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 2333
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/fieldtrace?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultHeartbeatTimeoutMin = 15
	defaultNotMovingTimeoutMin = 45
	defaultRecoveryWindowMin   = 5
	defaultImmobilityHintMin   = 30
	defaultSweepIntervalMin    = 5
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int           `yaml:"port"`
	DSN            string        `yaml:"dsn"` // MySQL DSN
	RedisURL       string        `yaml:"redis_url"`
	Env            string        `yaml:"env"` // "development" | "production"
	JWTSecret      string        `yaml:"jwt_secret"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Monitor        MonitorConfig `yaml:"monitor"`
	Push           PushConfig    `yaml:"push"`
}

// PushConfig configures notification delivery. Expo needs no settings;
// the native provider posts to a self-hosted relay.
type PushConfig struct {
	NativeServerURL string `yaml:"native_server_url"`
}

// MonitorConfig holds the liveness thresholds used by the heartbeat
// handler and the anomaly sweep. All values are fixed per deployment,
// never derived dynamically.
type MonitorConfig struct {
	HeartbeatTimeoutMinutes int `yaml:"heartbeat_timeout_minutes"`
	NotMovingTimeoutMinutes int `yaml:"not_moving_timeout_minutes"`
	RecoveryWindowMinutes   int `yaml:"recovery_window_minutes"`
	ImmobilityHintMinutes   int `yaml:"immobility_hint_minutes"`
	SweepIntervalMinutes    int `yaml:"sweep_interval_minutes"`
}

// HeartbeatTimeout returns the heartbeat staleness threshold.
func (m MonitorConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(m.HeartbeatTimeoutMinutes) * time.Minute
}

// NotMovingTimeout returns the immobility alert threshold.
func (m MonitorConfig) NotMovingTimeout() time.Duration {
	return time.Duration(m.NotMovingTimeoutMinutes) * time.Minute
}

// RecoveryWindow returns the recency window that counts as recovered.
func (m MonitorConfig) RecoveryWindow() time.Duration {
	return time.Duration(m.RecoveryWindowMinutes) * time.Minute
}

// SweepInterval returns the internal scheduler cadence for the sweep.
func (m MonitorConfig) SweepInterval() time.Duration {
	return time.Duration(m.SweepIntervalMinutes) * time.Minute
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		DSN:      defaultDSN,
		RedisURL: defaultRedisURL,
		Env:      defaultEnv,
		Monitor: MonitorConfig{
			HeartbeatTimeoutMinutes: defaultHeartbeatTimeoutMin,
			NotMovingTimeoutMinutes: defaultNotMovingTimeoutMin,
			RecoveryWindowMinutes:   defaultRecoveryWindowMin,
			ImmobilityHintMinutes:   defaultImmobilityHintMin,
			SweepIntervalMinutes:    defaultSweepIntervalMin,
		},
	}
}

// Load reads and validates the YAML config file. Missing fields keep
// their defaults; a missing file is an error.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	for name, v := range map[string]int{
		"monitor.heartbeat_timeout_minutes":  cfg.Monitor.HeartbeatTimeoutMinutes,
		"monitor.not_moving_timeout_minutes": cfg.Monitor.NotMovingTimeoutMinutes,
		"monitor.recovery_window_minutes":    cfg.Monitor.RecoveryWindowMinutes,
		"monitor.immobility_hint_minutes":    cfg.Monitor.ImmobilityHintMinutes,
		"monitor.sweep_interval_minutes":     cfg.Monitor.SweepIntervalMinutes,
	} {
		if v < 1 {
			return nil, fmt.Errorf("invalid %s %d in %q, expected >= 1", name, v, path)
		}
	}

	return &cfg, nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}
