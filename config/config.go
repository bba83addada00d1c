// Package config loads and validates the WhastapWeb application
// configuration from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/piyushkb/WhastapWeb/errors"
)

// Environment variables overriding file configuration.
const (
	EnvHTTPAddr     = "WHASTAPWEB_HTTP_ADDR"
	EnvAPIKeys      = "WHASTAPWEB_API_KEYS"
	EnvNATSURL      = "WHASTAPWEB_NATS_URL"
	EnvStartTimeout = "WHASTAPWEB_START_TIMEOUT"
)

// Config represents the complete application configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Engine  EngineConfig  `yaml:"engine"`
	Session SessionConfig `yaml:"session"`
}

// HTTPConfig defines the listening surface.
type HTTPConfig struct {
	Addr               string `yaml:"addr"`
	ReadTimeoutStr     string `yaml:"read_timeout,omitempty"`
	WriteTimeoutStr    string `yaml:"write_timeout,omitempty"`
	ShutdownTimeoutStr string `yaml:"shutdown_timeout,omitempty"`

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

// ReadTimeout returns the parsed read timeout. Valid after Validate.
func (c *HTTPConfig) ReadTimeout() time.Duration { return c.readTimeout }

// WriteTimeout returns the parsed write timeout. Valid after Validate.
func (c *HTTPConfig) WriteTimeout() time.Duration { return c.writeTimeout }

// ShutdownTimeout returns the parsed shutdown timeout. Valid after Validate.
func (c *HTTPConfig) ShutdownTimeout() time.Duration { return c.shutdownTimeout }

// AuthConfig holds the valid API keys.
type AuthConfig struct {
	Keys []string `yaml:"keys"`
}

// EngineConfig defines how to reach the protocol engine sidecar.
type EngineConfig struct {
	URL               string `yaml:"url"`
	ClientName        string `yaml:"client_name,omitempty"`
	RequestTimeoutStr string `yaml:"request_timeout,omitempty"`

	requestTimeout time.Duration
}

// RequestTimeout returns the parsed request timeout. Valid after Validate.
func (c *EngineConfig) RequestTimeout() time.Duration { return c.requestTimeout }

// SessionConfig tunes the session orchestrator.
type SessionConfig struct {
	// StartTimeoutStr bounds the start wait. "0" keeps the wait
	// unbounded, matching the behavior of engines that never expire a
	// pairing attempt.
	StartTimeoutStr string `yaml:"start_timeout,omitempty"`

	startTimeout time.Duration
}

// StartTimeout returns the parsed start timeout. Valid after Validate.
func (c *SessionConfig) StartTimeout() time.Duration { return c.startTimeout }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:               ":3000",
			ReadTimeoutStr:     "30s",
			WriteTimeoutStr:    "0",
			ShutdownTimeoutStr: "10s",
		},
		Engine: EngineConfig{
			URL:               "nats://localhost:4222",
			ClientName:        "whastapweb",
			RequestTimeoutStr: "5s",
		},
		Session: SessionConfig{
			StartTimeoutStr: "0",
		},
	}
}

// Load reads configuration from path, falling back to defaults when path
// is empty. Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(EnvAPIKeys); v != "" {
		keys := strings.Split(v, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		c.Auth.Keys = keys
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Engine.URL = v
	}
	if v := os.Getenv(EnvStartTimeout); v != "" {
		c.Session.StartTimeoutStr = v
	}
}

// Validate checks the configuration and parses duration fields.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.WrapInvalid(fmt.Errorf("http.addr is required"), "Config", "Validate", "http config")
	}

	hasKey := false
	for _, k := range c.Auth.Keys {
		if k != "" {
			hasKey = true
			break
		}
	}
	if !hasKey {
		return errors.WrapInvalid(
			fmt.Errorf("auth.keys must contain at least one key (or set %s)", EnvAPIKeys),
			"Config", "Validate", "auth config")
	}

	if c.Engine.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("engine.url is required"), "Config", "Validate", "engine config")
	}
	if c.Engine.ClientName == "" {
		c.Engine.ClientName = "whastapweb"
	}

	var err error
	if c.HTTP.readTimeout, err = parseDuration("http.read_timeout", c.HTTP.ReadTimeoutStr, 30*time.Second); err != nil {
		return err
	}
	if c.HTTP.writeTimeout, err = parseDuration("http.write_timeout", c.HTTP.WriteTimeoutStr, 0); err != nil {
		return err
	}
	if c.HTTP.shutdownTimeout, err = parseDuration("http.shutdown_timeout", c.HTTP.ShutdownTimeoutStr, 10*time.Second); err != nil {
		return err
	}
	if c.Engine.requestTimeout, err = parseDuration("engine.request_timeout", c.Engine.RequestTimeoutStr, 5*time.Second); err != nil {
		return err
	}
	if c.Session.startTimeout, err = parseDuration("session.start_timeout", c.Session.StartTimeoutStr, 0); err != nil {
		return err
	}

	return nil
}

// parseDuration parses a duration field, accepting "" as the default and
// "0" as zero.
func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	if value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%s: invalid duration %q", field, value),
			"Config", "Validate", "duration parse")
	}
	if d < 0 {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%s: must not be negative", field),
			"Config", "Validate", "duration check")
	}
	return d, nil
}
