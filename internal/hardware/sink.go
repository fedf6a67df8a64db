// Package hardware drives the bell relay. Every driver satisfies Sink; when
// the configured device cannot be opened the simulation sink stands in so
// the rest of the system behaves identically without the hardware.
package hardware

import (
	"strings"
	"time"

	logx "moodybell/pkg/logx"
)

// Sink is the on/off signal line behind the bell.
type Sink interface {
	Activate()
	Deactivate()
	// Available reports whether a physical device is attached.
	Available() bool
	Name() string
	Close() error
}

type Config struct {
	Driver   string // sim | gpio | mqtt
	GPIOPin  int
	GPIOPath string // sysfs root, default /sys/class/gpio
	MQTT     MQTTConfig
}

type MQTTConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

const (
	DefaultGPIOPin  = 5
	DefaultGPIOPath = "/sys/class/gpio"
)

// Open returns the configured sink, or the simulation sink when the device
// is unavailable. It never fails.
func Open(cfg Config, log logx.Logger) Sink {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "hardware"))

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var (
		s   Sink
		err error
	)
	switch driver {
	case "", "sim", "simulated":
		return NewSim(log)
	case "gpio":
		s, err = OpenGPIO(cfg.GPIOPath, cfg.GPIOPin, log)
	case "mqtt":
		s, err = DialMQTT(cfg.MQTT, log)
	default:
		log.Warn("unknown hardware driver, using simulation", logx.String("driver", driver))
		return NewSim(log)
	}
	if err != nil {
		log.Warn("hardware unavailable, using simulation",
			logx.String("driver", driver),
			logx.Err(err),
		)
		return NewSim(log)
	}
	log.Info("hardware ready", logx.String("driver", s.Name()))
	return s
}

// ValidDriver reports whether Open recognizes driver.
func ValidDriver(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sim", "simulated", "gpio", "mqtt":
		return true
	}
	return false
}
