package app

import (
	"strings"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/config"
	"moodybell/internal/control"
	"moodybell/internal/hardware"
	"moodybell/internal/httpapi"
	"moodybell/internal/storage"
	"moodybell/internal/task/engine"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	grace, err := config.ParseDurationField("scheduler.grace", cfg.Scheduler.Grace)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: strings.TrimSpace(cfg.Scheduler.Timezone),
		Grace:    grace,
	}, nil
}

func mapBellConfig(cfg *config.Config) (bell.Config, error) {
	pulse, err := config.ParseDurationOrDefault("bell.pulse", cfg.Bell.Pulse, bell.DefaultPulse)
	if err != nil {
		return bell.Config{}, err
	}
	rest, err := config.ParseDurationOrDefault("bell.rest", cfg.Bell.Rest, bell.DefaultRest)
	if err != nil {
		return bell.Config{}, err
	}
	return bell.Config{Pulse: pulse, Rest: rest, SingleFlight: cfg.Bell.SingleFlight}, nil
}

func mapControlConfig(cfg *config.Config) control.Config {
	return control.Config{ManualDefaultRings: cfg.Bell.ManualDefaultRings}
}

func mapHardwareConfig(cfg *config.Config) (hardware.Config, error) {
	connect, err := config.ParseDurationOrDefault("mqtt.connect_timeout", cfg.MQTT.ConnectTimeout, 10*time.Second)
	if err != nil {
		return hardware.Config{}, err
	}
	publish, err := config.ParseDurationOrDefault("mqtt.publish_timeout", cfg.MQTT.PublishTimeout, 2*time.Second)
	if err != nil {
		return hardware.Config{}, err
	}
	pin := cfg.Hardware.GPIOPin
	if pin == 0 {
		pin = hardware.DefaultGPIOPin
	}
	return hardware.Config{
		Driver:   cfg.Hardware.Driver,
		GPIOPin:  pin,
		GPIOPath: cfg.Hardware.GPIOPath,
		MQTT: hardware.MQTTConfig{
			Broker:         cfg.MQTT.Broker,
			Topic:          cfg.MQTT.Topic,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			QoS:            byte(cfg.MQTT.QoS),
			ConnectTimeout: connect,
			PublishTimeout: publish,
		},
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		DSN:         strings.TrimSpace(cfg.Storage.DSN),
		BusyTimeout: busy,
	}, nil
}

func mapTaskEngineConfig(cfg *config.Config) (engine.Config, error) {
	te := config.TaskEngineConfig{}
	if cfg.TaskEngine != nil {
		te = *cfg.TaskEngine
	}
	timeout, err := config.ParseDurationField("task_engine.default_timeout", te.DefaultTimeout)
	if err != nil {
		return engine.Config{}, err
	}
	workers := te.Workers
	if workers <= 0 {
		workers = 2
	}
	queue := te.QueueSize
	if queue <= 0 {
		queue = 64
	}
	history := te.HistorySize
	if history <= 0 {
		history = 50
	}
	return engine.Config{
		Enabled:        true,
		Workers:        workers,
		QueueSize:      queue,
		DefaultTimeout: timeout,
		HistorySize:    history,
	}, nil
}

func mapHTTPConfig(cfg *config.Config) (httpapi.Config, error) {
	shutdown, err := config.ParseDurationOrDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout, 5*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:            cfg.HTTP.Addr,
		Token:           strings.TrimSpace(cfg.HTTP.Token),
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		RingRate:        cfg.HTTP.RingRatePerMin / 60,
		RingBurst:       cfg.HTTP.RingBurst,
		ShutdownTimeout: shutdown,
		Profile: httpapi.ProfileConfig{
			Enabled:              cfg.HTTP.Pprof.Enabled,
			MutexProfileFraction: cfg.HTTP.Pprof.MutexProfileFraction,
			BlockProfileRate:     cfg.HTTP.Pprof.BlockProfileRate,
		},
	}, nil
}

func activitySize(cfg *config.Config) int {
	if cfg.Activity.Size > 0 {
		return cfg.Activity.Size
	}
	return activity.DefaultSize
}
