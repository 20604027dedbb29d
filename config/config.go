// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dfseltzer/pylab/devices"
)

// Config is the root configuration structure for one bench.
type Config struct {
	Bench       string             `yaml:"bench"`
	Server      ServerConfig       `yaml:"server"`
	Catalogs    CatalogConfig      `yaml:"catalogs"`
	Recorder    RecorderConfig     `yaml:"recorder"`
	Instruments []InstrumentConfig `yaml:"instruments"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CatalogConfig configures command catalog resolution.
type CatalogConfig struct {
	// Dir holds site catalogs that override the builtin ones. Empty serves
	// only the builtin catalogs.
	Dir string `yaml:"dir"`
}

// RecorderConfig configures measurement recording.
type RecorderConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`     // SQLite database file
	Interval time.Duration `yaml:"interval"` // sampling period
}

// InstrumentConfig configures one bench instrument.
type InstrumentConfig struct {
	Name      string        `yaml:"name"`
	Driver    string        `yaml:"driver"`    // bk8616, bk9129b, n5770a
	Transport string        `yaml:"transport"` // "lan" or "mock"
	Address   string        `yaml:"address"`   // host:port for lan
	Catalog   string        `yaml:"catalog"`   // override the driver's builtin catalog
	Timeout   time.Duration `yaml:"timeout"`
	// Responses seeds the mock transport's canned replies.
	Responses map[string]string `yaml:"responses,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"

	// AuditFile receives a rotated copy of the log stream, including the
	// clamping and normalization warnings.
	AuditFile  string `yaml:"audit_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies PYLAB_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PYLAB_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PYLAB_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PYLAB_CATALOG_DIR"); v != "" {
		cfg.Catalogs.Dir = v
	}
	if v := os.Getenv("PYLAB_RECORDER_PATH"); v != "" {
		cfg.Recorder.Path = v
	}
	if v := os.Getenv("PYLAB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PYLAB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Bench == "" {
		cfg.Bench = "bench"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Recorder.Path == "" {
		cfg.Recorder.Path = "pylab.db"
	}
	if cfg.Recorder.Interval == 0 {
		cfg.Recorder.Interval = time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 5
	}

	for i := range cfg.Instruments {
		inst := &cfg.Instruments[i]
		if inst.Transport == "" {
			inst.Transport = "lan"
		}
		if inst.Catalog == "" {
			inst.Catalog = devices.CatalogFor(inst.Driver)
		}
		if inst.Timeout == 0 {
			inst.Timeout = 5 * time.Second
		}
	}
}

func validate(cfg *Config) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	seen := make(map[string]bool, len(cfg.Instruments))
	for i, inst := range cfg.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("instruments[%d].name is required", i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("instruments[%d]: duplicate name %q", i, inst.Name)
		}
		seen[inst.Name] = true

		if devices.CatalogFor(inst.Driver) == "" {
			return fmt.Errorf("instruments[%d]: unknown driver %q", i, inst.Driver)
		}

		switch inst.Transport {
		case "lan":
			if inst.Address == "" {
				return fmt.Errorf("instruments[%d]: address is required for the lan transport", i)
			}
		case "mock":
		default:
			return fmt.Errorf("instruments[%d]: transport must be 'lan' or 'mock', got %q", i, inst.Transport)
		}

		if inst.Catalog == "" {
			return fmt.Errorf("instruments[%d]: catalog is required", i)
		}
	}

	return nil
}
