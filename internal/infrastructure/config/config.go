package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every error Load returns for a configuration
// that was read and parsed but failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration structure for the fbp controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Hardware HardwareConfig `yaml:"hardware"`
	Console  ConsoleConfig  `yaml:"console"`
}

// SiteConfig identifies the device installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	WALMode      bool   `yaml:"wal_mode"`
	BusyTimeout  int    `yaml:"busy_timeout"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	// LogLevel is the minimum level persisted to the log_entries table.
	// Empty disables database logging.
	LogLevel string `yaml:"log_level"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"` // stdout, stderr or file
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Sizes are in megabytes and ages in days, as the rotating writer expects.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// HardwareConfig contains GPIO wiring for the device peripherals.
type HardwareConfig struct {
	// Enabled switches between real GPIO and a headless run with no inputs.
	Enabled bool `yaml:"enabled"`

	// Buttons maps logical button identities to GPIO pin names (e.g. "GPIO17").
	Buttons ButtonsConfig `yaml:"buttons"`

	// ActiveLow means a low electrical level is a pressed button.
	// The panel buttons pull to ground, so this defaults to true.
	ActiveLow bool `yaml:"active_low"`

	Hall    HallConfig    `yaml:"hall"`
	Display DisplayConfig `yaml:"display"`
}

// ButtonsConfig holds the pin name of each panel button.
type ButtonsConfig struct {
	OK    string `yaml:"ok"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// HallConfig contains hall sensor settings.
type HallConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Pin            string        `yaml:"pin"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// DisplayConfig describes the character display geometry.
type DisplayConfig struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

// ConsoleConfig contains command interface settings.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FBP_SECTION_KEY
// For example: FBP_DATABASE_PATH, FBP_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "fbp-001",
			Name:     "fbp",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:         "./data/fbp.db",
			WALMode:      true,
			BusyTimeout:  5,
			MaxOpenConns: 4,
			LogLevel:     "warn",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fbp-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/fbp.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		Hardware: HardwareConfig{
			Enabled: true,
			Buttons: ButtonsConfig{
				OK:    "GPIO17",
				Left:  "GPIO27",
				Right: "GPIO22",
			},
			ActiveLow: true,
			Hall: HallConfig{
				Enabled:        true,
				Pin:            "GPIO23",
				SampleInterval: 10 * time.Second,
			},
			Display: DisplayConfig{
				Columns: 16,
				Rows:    2,
			},
		},
		Console: ConsoleConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FBP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FBP_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}

	if v := os.Getenv("FBP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("FBP_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FBP_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FBP_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("FBP_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("FBP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for missing or malformed values.
//
// Returns:
//   - error: Wraps ErrInvalidConfig and lists every problem found, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}
	if c.Database.MaxOpenConns < 2 {
		// One connection is held by the data layer for the whole run.
		errs = append(errs, "database.max_open_conns must be at least 2")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, fmt.Sprintf("logging.output %q must be stdout, stderr, or file", c.Logging.Output))
	}

	if c.Hardware.Enabled {
		errs = append(errs, c.Hardware.validate()...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: configuration errors: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// validate checks pin assignments. Two peripherals sharing a pin is a wiring
// error the GPIO layer would only report as a confusing edge storm.
func (h HardwareConfig) validate() []string {
	var errs []string

	pins := map[string]string{}
	claim := func(key, pin string) {
		if pin == "" {
			errs = append(errs, key+" is required")
			return
		}
		if other, taken := pins[pin]; taken {
			errs = append(errs, fmt.Sprintf("%s uses pin %s already assigned to %s", key, pin, other))
			return
		}
		pins[pin] = key
	}

	claim("hardware.buttons.ok", h.Buttons.OK)
	claim("hardware.buttons.left", h.Buttons.Left)
	claim("hardware.buttons.right", h.Buttons.Right)

	if h.Hall.Enabled {
		claim("hardware.hall.pin", h.Hall.Pin)
		if h.Hall.SampleInterval <= 0 {
			errs = append(errs, "hardware.hall.sample_interval must be positive")
		}
	}

	if h.Display.Columns <= 0 || h.Display.Rows <= 0 {
		errs = append(errs, "hardware.display columns and rows must be positive")
	}

	return errs
}
