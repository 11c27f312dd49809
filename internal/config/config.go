// Package config loads the player configuration from TOML files, with
// environment overrides for secrets.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "wavestream"

type Config struct {
	// StatePath is the preferences database; empty uses the XDG data dir.
	StatePath string `koanf:"state_path"`

	Backend       BackendConfig       `koanf:"backend"`
	Playback      PlaybackConfig      `koanf:"playback"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	Media         MediaConfig         `koanf:"media"`
	Power         PowerConfig         `koanf:"power"`
	Notifications NotificationsConfig `koanf:"notifications"`
	UI            UIConfig            `koanf:"ui"`

	// Last.fm scrobbling (enabled when fully configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Log LogConfig `koanf:"log"`
}

// BackendConfig is the library API the player streams from.
type BackendConfig struct {
	URL     string        `koanf:"url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout" default:"10s" validate:"gt=0"`
}

// PlaybackConfig tunes the transport.
type PlaybackConfig struct {
	RestartThreshold time.Duration `koanf:"restart_threshold" default:"19s" validate:"gte=0"`
	SeekOffset       time.Duration `koanf:"seek_offset" default:"19s" validate:"gt=0"`
	// GestureRetry retries a rejected play on the next user key press.
	GestureRetry     bool          `koanf:"gesture_retry"`
	PositionInterval time.Duration `koanf:"position_interval" default:"250ms" validate:"gt=0"`
}

// TelemetryConfig controls listening time reports.
type TelemetryConfig struct {
	Interval time.Duration `koanf:"interval" default:"5s" validate:"gt=0"`
	MinFlush time.Duration `koanf:"min_flush" default:"5s" validate:"gte=0"`
	Timeout  time.Duration `koanf:"timeout" default:"10s" validate:"gt=0"`
}

// MediaConfig controls the MPRIS media session.
type MediaConfig struct {
	Enabled  bool   `koanf:"enabled" default:"true"`
	Identity string `koanf:"identity" default:"wavestream" validate:"required"`
}

// PowerConfig controls the sleep inhibitor.
type PowerConfig struct {
	Enabled bool `koanf:"enabled" default:"true"`
}

// NotificationsConfig controls now-playing desktop notifications.
type NotificationsConfig struct {
	Enabled   bool `koanf:"enabled"`
	TimeoutMs int  `koanf:"timeout" default:"5000" validate:"gte=-1,lte=60000"`
}

// UIConfig tunes the terminal interface.
type UIConfig struct {
	Icons      string        `koanf:"icons" default:"unicode" validate:"oneof=nerd unicode none"`
	SeekStep   time.Duration `koanf:"seek_step" default:"10s" validate:"gt=0"`
	VolumeStep float64       `koanf:"volume_step" default:"0.05" validate:"gt=0,lte=1"`
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Output string `koanf:"output" default:"file" validate:"oneof=stdout stderr file"`
	File   string `koanf:"file"`
}

// Load reads the config files in order of priority (last wins), then an
// explicit path if given, applies environment overrides and validates.
func Load(explicit string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "load %s", path)
			}
		}
	}
	if explicit != "" {
		path := expandPath(explicit)
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
	}

	// Defaults first so explicit false and zero values in files survive.
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "set defaults")
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	cfg.overrideFromEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("WAVESTREAM_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("WAVESTREAM_BACKEND_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Lastfm.APIKey = v
	}
	if v := os.Getenv("LASTFM_API_SECRET"); v != "" {
		c.Lastfm.APISecret = v
	}
	if v := os.Getenv("LASTFM_SESSION_KEY"); v != "" {
		c.Lastfm.SessionKey = v
	}
}

func (c *Config) normalize() {
	c.Backend.URL = strings.TrimSuffix(c.Backend.URL, "/")
	c.StatePath = expandPath(c.StatePath)
	c.Log.Output = strings.ToLower(c.Log.Output)
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.UI.Icons = strings.ToLower(c.UI.Icons)
	if c.Log.File == "" {
		c.Log.File = filepath.Join(xdg.StateHome, appName, appName+".log")
	}
	c.Log.File = expandPath(c.Log.File)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != "" && c.Lastfm.SessionKey != ""
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/wavestream/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
