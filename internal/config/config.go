package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

// Config represents the simulator configuration.
type Config struct {
	Build     BuildConfig    `yaml:"build"`
	Resources ResourceConfig `yaml:"resources"`
	Work      WorkConfig     `yaml:"work"`
	Logging   LoggingConfig  `yaml:"logging"`
	Journal   JournalConfig  `yaml:"journal"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Schedule  ScheduleConfig `yaml:"schedule"`
}

// BuildConfig describes the shape of the building: how many floors are built
// one after another and how many apartments share a floor.
type BuildConfig struct {
	Floors             int    `yaml:"floors"`
	ApartmentsPerFloor int    `yaml:"apartments_per_floor"`
	FoundationDelay    string `yaml:"foundation_delay"`
}

// ResourceConfig holds the capacities of the bounded pools. The elevator and
// the single crane are exclusive and always have capacity 1.
type ResourceConfig struct {
	MultiCranes    int `yaml:"multi_cranes"`
	DoorWindowCrew int `yaml:"door_window_crew"`
}

// WorkConfig bounds the simulated duration of every work step. Durations are
// drawn uniformly from [MinUnits, MaxUnits] and multiplied by Unit.
type WorkConfig struct {
	MinUnits int    `yaml:"min_units"`
	MaxUnits int    `yaml:"max_units"`
	Unit     string `yaml:"unit"`
	Seed     uint64 `yaml:"seed,omitempty"` // 0 seeds from the clock
}

// LoggingConfig controls the durable build log and the process logger.
type LoggingConfig struct {
	File   string    `yaml:"file"`
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
	Color  *bool     `yaml:"color,omitempty"`
}

// JournalConfig enables the optional event sinks.
type JournalConfig struct {
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty"`
	Buffer      int    `yaml:"buffer,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// ScheduleConfig drives repeated builds in serve mode.
type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// Load loads configuration from the specified file, applies defaults and validates it.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references from the
// environment before decoding.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	applyEnvOverrides(&cfg)
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration equivalent to an empty config file.
func Default() *Config {
	var cfg Config
	_ = ApplyDefaults(&cfg)
	return &cfg
}

// Init writes a configuration file populated with defaults.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to write config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}
