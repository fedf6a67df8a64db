package config

import (
	"hash/fnv"
	"reflect"
	"sort"
	"strings"

	logx "moodybell/pkg/logx"
)

// restartSections only take effect after a process restart.
var restartSections = map[string]bool{
	"http":        true,
	"hardware":    true,
	"mqtt":        true,
	"storage":     true,
	"task_engine": true,
	"activity":    true,
	"bell":        true,
}

// SummarizeConfigChange returns the changed section names and safe structured
// attrs for logging. Secrets (tokens, passwords, DSNs) are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.HTTP, newCfg.HTTP) {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.String("http.addr", newCfg.HTTP.Addr),
			logx.Bool("http.token_set", strings.TrimSpace(newCfg.HTTP.Token) != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.String("scheduler.grace", strings.TrimSpace(newCfg.Scheduler.Grace)),
		)
	}
	if oldCfg.Bell != newCfg.Bell {
		changed = append(changed, "bell")
		attrs = append(attrs, logx.Bool("bell.single_flight", newCfg.Bell.SingleFlight))
	}
	if oldCfg.Hardware != newCfg.Hardware {
		changed = append(changed, "hardware")
		attrs = append(attrs, logx.String("hardware.driver", newCfg.Hardware.Driver))
	}
	if oldCfg.MQTT != newCfg.MQTT {
		changed = append(changed, "mqtt")
		attrs = append(attrs, logx.String("mqtt.topic", newCfg.MQTT.Topic))
	}
	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}
	if oldCfg.Activity != newCfg.Activity {
		changed = append(changed, "activity")
	}
	if derefTaskEngine(oldCfg.TaskEngine) != derefTaskEngine(newCfg.TaskEngine) {
		changed = append(changed, "task_engine")
	}
	if oldCfg.Systemd != newCfg.Systemd {
		changed = append(changed, "systemd")
	}

	sort.Strings(changed)
	return changed, attrs
}

// NeedsRestart filters sections down to those that cannot be applied live.
func NeedsRestart(sections []string) []string {
	var out []string
	for _, s := range sections {
		if restartSections[s] {
			out = append(out, s)
		}
	}
	return out
}

func derefTaskEngine(te *TaskEngineConfig) TaskEngineConfig {
	if te == nil {
		return TaskEngineConfig{}
	}
	return *te
}

// hashBytes returns a stable 64-bit hash of bytes. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
