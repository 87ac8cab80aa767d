// Package config loads simpletd configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine kinds accepted by EngineConfig.Kind.
const (
	EngineTDJSON = "tdjson"
	EngineRemote = "remote"
)

// Environment variables consulted when the config carries no identity.
const (
	EnvAPIID   = "SIMPLETD_API_ID"
	EnvAPIHash = "SIMPLETD_API_HASH"
)

// Config is the top-level configuration.
type Config struct {
	APIID   int32  `yaml:"api_id"`
	APIHash string `yaml:"api_hash"`

	// DataDir is where the engine persists session state between runs.
	DataDir string `yaml:"data_dir"`

	UseMessageDatabase *bool  `yaml:"use_message_database"`
	UseSecretChats     *bool  `yaml:"use_secret_chats"`
	SystemLanguageCode string `yaml:"system_language_code"`
	DeviceModel        string `yaml:"device_model"`
	ApplicationVersion string `yaml:"application_version"`

	// Verbosity is the engine's own log verbosity (0 fatal .. 3+ debug).
	Verbosity int `yaml:"verbosity"`

	// PollTimeout bounds one engine receive, as a duration string.
	PollTimeout string `yaml:"poll_timeout"`

	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig selects and configures the engine adapter.
type EngineConfig struct {
	Kind string `yaml:"kind"` // "tdjson" (default) or "remote"
	URL  string `yaml:"url"`  // bridge URL, required for "remote"
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns a Config with defaults applied.
// Environment variables referenced as ${VAR} or $VAR in the YAML are expanded
// before parsing, so secrets can live in the environment (e.g. loaded from a
// .env file) rather than in the file itself.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "tdlib_data"
	}
	if c.UseMessageDatabase == nil {
		c.UseMessageDatabase = ptr(true)
	}
	if c.UseSecretChats == nil {
		c.UseSecretChats = ptr(true)
	}
	if c.SystemLanguageCode == "" {
		c.SystemLanguageCode = "en"
	}
	if c.DeviceModel == "" {
		c.DeviceModel = "simpletd"
	}
	if c.ApplicationVersion == "" {
		c.ApplicationVersion = "1.1"
	}
	if c.Verbosity == 0 {
		c.Verbosity = 1
	}
	if c.PollTimeout == "" {
		c.PollTimeout = "1s"
	}
	if c.Engine.Kind == "" {
		c.Engine.Kind = EngineTDJSON
	}

	if c.APIID == 0 {
		if v, err := strconv.ParseInt(os.Getenv(EnvAPIID), 10, 32); err == nil {
			c.APIID = int32(v)
		}
	}
	if c.APIHash == "" {
		c.APIHash = os.Getenv(EnvAPIHash)
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	switch c.Engine.Kind {
	case EngineTDJSON:
	case EngineRemote:
		if c.Engine.URL == "" {
			return fmt.Errorf("config: engine %q requires a url", EngineRemote)
		}
	default:
		return fmt.Errorf("config: unknown engine kind %q", c.Engine.Kind)
	}

	if c.Verbosity < 0 {
		return fmt.Errorf("config: verbosity must not be negative")
	}
	if _, err := c.PollTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// PollTimeoutDuration parses the configured poll timeout.
func (c Config) PollTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid poll_timeout %q: %w", c.PollTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: poll_timeout must be positive")
	}
	return d, nil
}

// EnsureDataDir creates the data directory when missing.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("config: create data dir: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
