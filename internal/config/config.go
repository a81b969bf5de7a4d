// Package config loads the watcher configuration from a YAML file with
// environment variable overlays for credentials.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
)

// Config is the full configuration for one watcher process.
type Config struct {
	Auth     AuthConfig      `yaml:"auth"`
	Channels []ChannelConfig `yaml:"channels"`
	Watcher  WatcherConfig   `yaml:"watcher"`
	Relay    RelayConfig     `yaml:"relay"`
	Storage  StorageConfig   `yaml:"storage"`
}

// RelayConfig names the trusted relay that forwards minute-watched events.
type RelayConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// AuthConfig holds the externally supplied credentials. The token may also
// come from the TWITCH_AUTH_TOKEN environment variable, which wins over the
// file to keep secrets out of config files.
type AuthConfig struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
}

// ChannelConfig names one channel to watch.
type ChannelConfig struct {
	Login       string `yaml:"login"`
	DisplayName string `yaml:"display_name,omitempty"`
}

// WatcherConfig holds tunables for the watch loop.
type WatcherConfig struct {
	// MaxWatch caps how many online channels get progress events per cycle.
	MaxWatch int `yaml:"max_watch"`
	// JoinRaids enables following raids announced on watched channels.
	JoinRaids bool   `yaml:"join_raids"`
	LogLevel  string `yaml:"log_level"`
	LogDir    string `yaml:"log_dir"`
}

// StorageConfig selects where points history is persisted.
type StorageConfig struct {
	// Path to the history JSON file. Empty keeps history in memory only.
	Path string `yaml:"path"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if envToken := os.Getenv("TWITCH_AUTH_TOKEN"); envToken != "" {
		cfg.Auth.Token = envToken
	}
	if envUser := os.Getenv("TWITCH_USER_ID"); envUser != "" {
		cfg.Auth.UserID = envUser
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Watcher.MaxWatch <= 0 {
		c.Watcher.MaxWatch = constants.MaxWatchChannels
	}
	for i := range c.Channels {
		c.Channels[i].Login = strings.ToLower(strings.TrimSpace(c.Channels[i].Login))
	}
}

// Validate checks the config for fatal problems.
func (c *Config) Validate() error {
	if c.Auth.Token == "" {
		return fmt.Errorf("auth token missing: set auth.token or TWITCH_AUTH_TOKEN")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	if c.Relay.Endpoint == "" {
		return fmt.Errorf("relay endpoint missing: set relay.endpoint")
	}

	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Login == "" {
			return fmt.Errorf("channel with empty login")
		}
		if seen[ch.Login] {
			return fmt.Errorf("duplicate channel %q", ch.Login)
		}
		seen[ch.Login] = true
	}
	return nil
}
