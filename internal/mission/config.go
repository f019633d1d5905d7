package mission

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the mission runner's runtime configuration.
type Config struct {
	RobotID         string `yaml:"robot_id"`
	MQTTBroker      string `yaml:"mqtt_broker"`
	MissionPath     string `yaml:"mission_path"`
	JournalPath     string `yaml:"journal_path"`
	HTTPAddr        string `yaml:"http_addr"`
	TickIntervalMS  int    `yaml:"tick_interval_ms"`
	ServerTimeoutMS int    `yaml:"server_timeout_ms"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %s not found", path)
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// TickInterval is the engine's polling cadence, 100ms when unset.
func (c Config) TickInterval() time.Duration {
	if c.TickIntervalMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ServerTimeout bounds reachability probes, goal acceptance and cancel
// acknowledgement, 1s when unset.
func (c Config) ServerTimeout() time.Duration {
	if c.ServerTimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(c.ServerTimeoutMS) * time.Millisecond
}
