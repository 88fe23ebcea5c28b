package config

import (
	"fmt"
	"os"
	"time"

	"github.com/justapithecus/sheetdrop/types"
)

// EnvBaseURL names the environment variable that overrides the backend URL
// from the config file.
const EnvBaseURL = "SHEETDROP_API_BASE_URL"

// DefaultBaseURL is the backend address used when nothing else is set.
const DefaultBaseURL = "http://localhost:5000"

// Config represents a sheetdrop.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Poll    PollConfig    `yaml:"poll"`
	Storage StorageConfig `yaml:"storage"`
	Adapter AdapterConfig `yaml:"adapter"`
	Stub    StubConfig    `yaml:"stub"`
}

// BackendConfig holds backend connection defaults.
type BackendConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// PollConfig holds status polling defaults.
type PollConfig struct {
	Interval Duration `yaml:"interval"`
	Deadline Duration `yaml:"deadline"`
}

// StorageConfig holds object storage settings for s3:// candidate files.
type StorageConfig struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds outcome adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Codec   string            `yaml:"codec,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// StubConfig holds defaults for the development backend.
type StubConfig struct {
	Addr      string         `yaml:"addr"`
	StepDelay Duration       `yaml:"step_delay"`
	Clients   []types.Client `yaml:"clients"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ResolveBaseURL applies the backend URL precedence:
// flag, then $SHEETDROP_API_BASE_URL, then the config file, then the default.
// cfg may be nil.
func ResolveBaseURL(flag string, cfg *Config) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		return v
	}
	if cfg != nil && cfg.Backend.BaseURL != "" {
		return cfg.Backend.BaseURL
	}
	return DefaultBaseURL
}
