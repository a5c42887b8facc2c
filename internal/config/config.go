// Package config loads and validates the fulfillment worker's TOML
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the fulfillment worker's top-level configuration.
type Config struct {
	Worker  Worker  `toml:"worker"`
	Log     Log     `toml:"log"`
	Storage Storage `toml:"storage"`
}

// Worker identifies the activity this process serves and the SWF-shaped
// transport it polls.
type Worker struct {
	Region          string   `toml:"region"`
	SWFDomain       string   `toml:"swf_domain"`
	TaskList        string   `toml:"task_list"`
	ActivityName    string   `toml:"activity_name"`
	ActivityVersion string   `toml:"activity_version"`
	Identity        string   `toml:"identity"`
	PollTimeout     Duration `toml:"poll_timeout"`
	ResolverTimeout Duration `toml:"resolver_timeout"`
	SizeLimit       int      `toml:"size_limit"`
	DisableProtocol bool     `toml:"disable_protocol"`
}

// Log configures the process-wide structured logger.
type Log struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // "text" or "json"
}

// Storage configures the overflow blob store used when a response is
// too large even after zipping. RetentionPrefix is loaded and
// defaulted but not passed on: sizelimit keys overflow blobs under
// the fixed "retain_30_180" prefix.
type Storage struct {
	Bucket          string `toml:"bucket"`
	RetentionPrefix string `toml:"retention_prefix"`
	UseS3           bool   `toml:"use_s3"`
}

// Clone returns a deep copy of cfg so callers can safely mutate the result.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	return &cloned
}

// Load reads and validates a fulfillment worker TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Reload reads and validates a fulfillment worker TOML configuration file.
//
// This mirrors Load but is intentionally named to reflect runtime refresh paths.
func Reload(path string) (*Config, error) {
	return Load(path)
}

// LoadManager reads config from path and returns an RWMutex-backed thread-safe manager.
func LoadManager(path string) (ConfigManager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	cfg, err := Reload(path)
	if err != nil {
		return nil, err
	}
	return NewRWMutexManager(cfg), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Worker.TaskList == "" {
		cfg.Worker.TaskList = cfg.Worker.ActivityName
	}
	if cfg.Worker.Identity == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "fulfillment-worker"
		}
		cfg.Worker.Identity = host
	}
	if cfg.Worker.PollTimeout.Duration == 0 {
		cfg.Worker.PollTimeout.Duration = 60 * time.Second
	}
	if cfg.Worker.ResolverTimeout.Duration == 0 {
		cfg.Worker.ResolverTimeout.Duration = 5 * time.Second
	}
	if cfg.Worker.SizeLimit == 0 {
		cfg.Worker.SizeLimit = 32000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Storage.RetentionPrefix == "" {
		cfg.Storage.RetentionPrefix = "retain_30_180"
	}
}

func validate(cfg *Config) error {
	if cfg.Worker.ActivityName == "" {
		return fmt.Errorf("worker.activity_name is required")
	}
	if cfg.Worker.ActivityVersion == "" {
		return fmt.Errorf("worker.activity_version is required")
	}
	if cfg.Worker.SWFDomain == "" {
		return fmt.Errorf("worker.swf_domain is required")
	}
	if cfg.Worker.PollTimeout.Duration <= 0 {
		return fmt.Errorf("worker.poll_timeout must be > 0")
	}
	if cfg.Worker.ResolverTimeout.Duration <= 0 {
		return fmt.Errorf("worker.resolver_timeout must be > 0")
	}
	if cfg.Worker.SizeLimit <= 0 {
		return fmt.Errorf("worker.size_limit must be > 0")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of text, json, got %q", cfg.Log.Format)
	}
	if cfg.Storage.UseS3 && cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.use_s3 is enabled")
	}
	return nil
}
