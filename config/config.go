// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config loads the module configuration from a YAML or TOML file and
// EXO_* environment overrides.
package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
	"github.com/ObsidianArch02/eco-exoskeleton-project/protocol"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the complete module configuration.
	Config struct {
		Module         string `yaml:"module" toml:"module"`
		Broker         string `yaml:"broker" toml:"broker"`
		Transport      string `yaml:"transport" toml:"transport"`
		ClientID       string `yaml:"client_id" toml:"client_id"`
		TopicPattern   string `yaml:"topic_pattern" toml:"topic_pattern"`
		Hardware       string `yaml:"hardware" toml:"hardware"`
		EmbeddedBroker string `yaml:"embedded_broker" toml:"embedded_broker"`
		MetricsAddr    string `yaml:"metrics_addr" toml:"metrics_addr"`

		// LoopYield is the idle pause of the control loop between steps.
		LoopYield Duration `yaml:"loop_yield" toml:"loop_yield"`

		Log          Log          `yaml:"log" toml:"log"`
		Connectivity Connectivity `yaml:"connectivity" toml:"connectivity"`
		Simulation   Simulation   `yaml:"simulation" toml:"simulation"`
	}

	// Log configures the process logger.
	Log struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	}

	// Connectivity tunes the connection state machine.
	Connectivity struct {
		LinkAttempts     uint64   `yaml:"link_attempts" toml:"link_attempts"`
		LinkRetryDelay   Duration `yaml:"link_retry_delay" toml:"link_retry_delay"`
		CycleRetryDelay  Duration `yaml:"cycle_retry_delay" toml:"cycle_retry_delay"`
		MaxFailedCycles  int      `yaml:"max_failed_cycles" toml:"max_failed_cycles"`
		ResubscribeTopic string   `yaml:"resubscribe_topic" toml:"resubscribe_topic"`
		QueueSize        int      `yaml:"queue_size" toml:"queue_size"`
	}

	// Simulation configures the simulated hardware.
	Simulation struct {
		Noise float64 `yaml:"noise" toml:"noise"`
		Seed  uint64  `yaml:"seed" toml:"seed"`
	}
)

// Supported values.
const (
	TransportMQTT5   = "mqtt5"
	TransportMQTT311 = "mqtt311"

	HardwareSim = "sim"

	FormatTint = "tint"
	FormatJSON = "json"

	// LevelOff disables logging.
	LevelOff = "off"

	DefaultBroker    = "HostName=localhost;TcpPort=1883"
	DefaultLoopYield = 10 * time.Millisecond
)

const envPrefix = "EXO_"

var levels = []string{LevelOff, "error", "warn", "info", "debug"}

// Default returns the configuration with every default filled in.
func Default() *Config {
	return &Config{
		Module:       modules.BubbleName,
		Transport:    TransportMQTT5,
		TopicPattern: protocol.DefaultTopicPattern,
		Hardware:     HardwareSim,
		LoopYield:    Duration(DefaultLoopYield),
		Log: Log{
			Level:  "info",
			Format: FormatTint,
		},
		Connectivity: Connectivity{
			LinkAttempts:     connectivity.DefaultLinkAttempts,
			LinkRetryDelay:   Duration(connectivity.DefaultLinkRetryDelay),
			CycleRetryDelay:  Duration(connectivity.DefaultCycleRetryDelay),
			MaxFailedCycles:  connectivity.DefaultMaxFailedCycles,
			ResubscribeTopic: connectivity.DefaultResubscribeTopic,
			QueueSize:        connectivity.DefaultQueueSize,
		},
		Simulation: Simulation{Noise: 4},
	}
}

// Load reads the configuration file (if path is non-empty), applies the
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return invalid("cannot read configuration file", "path", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults.
		if err := dec.Decode(c); err != nil && err != io.EOF {
			return invalid("invalid YAML configuration", "path", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return invalid("invalid TOML configuration", "path", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return invalid(
				"unknown configuration key", "key", undecoded[0].String(), nil,
			)
		}
	default:
		return invalid("unsupported configuration format", "path", path, nil)
	}
	return nil
}

// ApplyEnv overrides fields from EXO_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"MODULE":          &c.Module,
		"BROKER":          &c.Broker,
		"TRANSPORT":       &c.Transport,
		"CLIENT_ID":       &c.ClientID,
		"TOPIC_PATTERN":   &c.TopicPattern,
		"HARDWARE":        &c.Hardware,
		"EMBEDDED_BROKER": &c.EmbeddedBroker,
		"METRICS_ADDR":    &c.MetricsAddr,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
	}
	for key, field := range str {
		if v, ok := lookup(envPrefix + key); ok {
			*field = v
		}
	}

	if v, ok := lookup(envPrefix + "LOOP_YIELD"); ok {
		if err := c.LoopYield.UnmarshalText([]byte(v)); err != nil {
			return invalid("invalid duration", envPrefix+"LOOP_YIELD", v, err)
		}
	}
	if v, ok := lookup(envPrefix + "MAX_FAILED_CYCLES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("invalid integer", envPrefix+"MAX_FAILED_CYCLES", v, err)
		}
		c.Connectivity.MaxFailedCycles = n
	}
	return nil
}

// Validate checks every field for consistency.
func (c *Config) Validate() error {
	if _, err := modules.Lookup(c.Module); err != nil {
		return err
	}
	if _, err := protocol.NewTopics(c.TopicPattern, c.Module); err != nil {
		return err
	}

	switch {
	case c.Transport != TransportMQTT5 && c.Transport != TransportMQTT311:
		return invalid("transport must be mqtt5 or mqtt311",
			"transport", c.Transport, nil)
	case c.Hardware != HardwareSim:
		return invalid("unsupported hardware", "hardware", c.Hardware, nil)
	case !slices.Contains(levels, strings.ToLower(c.Log.Level)):
		return invalid("invalid log level", "log.level", c.Log.Level, nil)
	case c.Log.Format != FormatTint && c.Log.Format != FormatJSON:
		return invalid("invalid log format", "log.format", c.Log.Format, nil)
	case c.LoopYield <= 0:
		return invalid("loop yield must be positive",
			"loop_yield", c.LoopYield, nil)
	case c.Connectivity.LinkAttempts == 0:
		return invalid("at least one link attempt is required",
			"connectivity.link_attempts", c.Connectivity.LinkAttempts, nil)
	case c.Connectivity.LinkRetryDelay < 0 || c.Connectivity.CycleRetryDelay < 0:
		return invalid("retry delays must not be negative",
			"connectivity", nil, nil)
	case c.Connectivity.MaxFailedCycles < 1:
		return invalid("max failed cycles must be at least 1",
			"connectivity.max_failed_cycles", c.Connectivity.MaxFailedCycles, nil)
	case c.Connectivity.QueueSize < 1:
		return invalid("queue size must be at least 1",
			"connectivity.queue_size", c.Connectivity.QueueSize, nil)
	case c.Connectivity.ResubscribeTopic == "":
		return invalid("resubscribe topic must not be empty",
			"connectivity.resubscribe_topic", nil, nil)
	case c.Simulation.Noise < 0:
		return invalid("simulation noise must not be negative",
			"simulation.noise", c.Simulation.Noise, nil)
	}
	return nil
}

// Connection resolves the broker settings: the configured connection string,
// else MQTT_* variables when MQTT_HOST_NAME is set, else a local broker. A
// configured client ID takes precedence.
func (c *Config) Connection() (*mqtt.ConnectionSettings, error) {
	var cs *mqtt.ConnectionSettings
	var err error
	switch {
	case c.Broker != "":
		cs, err = mqtt.ParseConnectionString(c.Broker)
	case os.Getenv("MQTT_HOST_NAME") != "":
		cs, err = mqtt.ConnectionSettingsFromEnv()
	default:
		cs, err = mqtt.ParseConnectionString(DefaultBroker)
	}
	if err != nil {
		return nil, err
	}
	if c.ClientID != "" {
		cs.ClientID = c.ClientID
	}
	return cs, nil
}

// SlogLevel returns the slog level, and false when logging is off.
func (l Log) SlogLevel() (slog.Level, bool) {
	switch strings.ToLower(l.Level) {
	case LevelOff:
		return 0, false
	case "error":
		return slog.LevelError, true
	case "warn":
		return slog.LevelWarn, true
	case "debug":
		return slog.LevelDebug, true
	default:
		return slog.LevelInfo, true
	}
}

func invalid(msg, name string, value any, err error) error {
	return &errors.Error{
		Kind:          errors.ConfigurationInvalid,
		Message:       msg,
		PropertyName:  name,
		PropertyValue: value,
		NestedError:   err,
	}
}
