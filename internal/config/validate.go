package config

import (
	"fmt"
	"strings"
	"time"
)

var (
	storageDrivers  = []string{"", "memory", "file", "sqlite", "sqlite3", "postgres", "postgresql"}
	hardwareDrivers = []string{"", "sim", "simulated", "gpio", "mqtt"}
	logLevels       = []string{"", "trace", "debug", "info", "warn", "warning", "error"}
)

// Validate checks value ranges, durations and enums. It is run on every
// parse, so a bad hot reload is rejected before it is committed.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !oneOf(cfg.Logging.Level, logLevels) {
		return fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		return fmt.Errorf("logging.file.path is required when logging.file.enabled=true")
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}

	durations := map[string]string{
		"scheduler.grace":       cfg.Scheduler.Grace,
		"bell.pulse":            cfg.Bell.Pulse,
		"bell.rest":             cfg.Bell.Rest,
		"http.shutdown_timeout": cfg.HTTP.ShutdownTimeout,
		"mqtt.connect_timeout":  cfg.MQTT.ConnectTimeout,
		"mqtt.publish_timeout":  cfg.MQTT.PublishTimeout,
		"storage.busy_timeout":  cfg.Storage.BusyTimeout,
	}
	if cfg.TaskEngine != nil {
		durations["task_engine.default_timeout"] = cfg.TaskEngine.DefaultTimeout
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}

	if cfg.Bell.ManualDefaultRings < 0 {
		return fmt.Errorf("bell.manual_default_rings must be >= 0")
	}
	if cfg.HTTP.RingRatePerMin < 0 || cfg.HTTP.RingBurst < 0 {
		return fmt.Errorf("http.ring_rate_per_min and http.ring_burst must be >= 0")
	}
	if cfg.Activity.Size < 0 {
		return fmt.Errorf("activity.size must be >= 0")
	}
	if te := cfg.TaskEngine; te != nil {
		if te.Workers < 0 || te.QueueSize < 0 || te.HistorySize < 0 {
			return fmt.Errorf("task_engine.workers, queue_size and history_size must be >= 0")
		}
	}

	hw := strings.ToLower(strings.TrimSpace(cfg.Hardware.Driver))
	if !oneOf(hw, hardwareDrivers) {
		return fmt.Errorf("hardware.driver: unknown driver %q", cfg.Hardware.Driver)
	}
	if cfg.Hardware.GPIOPin < 0 {
		return fmt.Errorf("hardware.gpio_pin must be >= 0")
	}
	if hw == "mqtt" {
		if strings.TrimSpace(cfg.MQTT.Broker) == "" || strings.TrimSpace(cfg.MQTT.Topic) == "" {
			return fmt.Errorf("mqtt.broker and mqtt.topic are required when hardware.driver=mqtt")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	sd := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if !oneOf(sd, storageDrivers) {
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	switch sd {
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required when storage.driver=%s", sd)
		}
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver=postgres")
		}
	}
	return nil
}

func oneOf(v string, set []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
