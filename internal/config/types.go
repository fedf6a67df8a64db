package config

// Config is the on-disk configuration. JSON or YAML; unknown keys are rejected.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Bell      BellConfig      `json:"bell"`
	Hardware  HardwareConfig  `json:"hardware"`
	MQTT      MQTTConfig      `json:"mqtt,omitempty"`
	Storage   StorageConfig   `json:"storage"`
	Activity  ActivityConfig  `json:"activity,omitempty"`

	// TaskEngine controls the workers that run ring sequences.
	// If omitted, defaults apply (workers: 2, queue_size: 64).
	TaskEngine *TaskEngineConfig `json:"task_engine,omitempty"`

	Systemd SystemdConfig `json:"systemd,omitempty"`
}

// HTTPConfig controls the REST API.
//
// Example:
//
//	"http": { "addr": ":5000", "token": "${BELL_TOKEN}", "ring_rate_per_min": 6 }
type HTTPConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token,omitempty"` // optional bearer token (do not log)

	AllowOrigins []string `json:"allow_origins,omitempty"`

	// RingRatePerMin limits POST /api/ring per client IP. 0 disables the limit.
	RingRatePerMin float64 `json:"ring_rate_per_min,omitempty"`
	RingBurst      int     `json:"ring_burst,omitempty"`

	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`

	// Pprof mounts net/http/pprof under /debug/pprof. Prefer setting a token.
	Pprof PprofConfig `json:"pprof,omitempty"`
}

type PprofConfig struct {
	Enabled              bool `json:"enabled"`
	MutexProfileFraction int  `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int  `json:"block_profile_rate,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the trigger loop. Timezone and grace are applied
// live on reload; the configured zone is also the zone every naive timestamp
// in the API and the store is read in.
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"`
	// Grace is how late a firing may still ring (default "60s").
	Grace string `json:"grace,omitempty"`
}

// BellConfig controls the pulse sequence.
//
// Defaults: pulse "100ms", rest "2900ms", manual_default_rings 15.
type BellConfig struct {
	Pulse              string `json:"pulse,omitempty"`
	Rest               string `json:"rest,omitempty"`
	ManualDefaultRings int    `json:"manual_default_rings,omitempty"`
	// SingleFlight serializes overlapping sequences instead of interleaving them.
	SingleFlight bool `json:"single_flight,omitempty"`
}

// HardwareConfig selects the relay driver: "sim", "gpio" or "mqtt".
type HardwareConfig struct {
	Driver   string `json:"driver"`
	GPIOPin  int    `json:"gpio_pin,omitempty"`
	GPIOPath string `json:"gpio_path,omitempty"`
}

type MQTTConfig struct {
	Broker         string `json:"broker,omitempty"`
	Topic          string `json:"topic,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"` // do not log
	QoS            int    `json:"qos,omitempty"`
	ConnectTimeout string `json:"connect_timeout,omitempty"`
	PublishTimeout string `json:"publish_timeout,omitempty"`
}

// StorageConfig controls the record store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./moodybell.db", "seed_defaults": true }
type StorageConfig struct {
	Driver       string `json:"driver"`
	Path         string `json:"path,omitempty"`
	DSN          string `json:"dsn,omitempty"`          // postgres (do not log)
	BusyTimeout  string `json:"busy_timeout,omitempty"` // sqlite
	SeedDefaults bool   `json:"seed_defaults,omitempty"`
}

type ActivityConfig struct {
	Size int `json:"size,omitempty"` // default 100
}

// TaskEngineConfig controls the task execution engine.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 64
//   - default_timeout: "0s" (disabled)
//   - history_size: 50
type TaskEngineConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

// SystemdConfig controls sd_notify integration. It is a no-op when the
// process was not started by systemd.
type SystemdConfig struct {
	Notify bool `json:"notify,omitempty"`
}
