// Package config defines presenter configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and SALESBOARD_* env vars on top.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BackendURL is the base URL serving /people, /goals and /data.
	BackendURL string `koanf:"backend_url"`

	// PollIntervalMS is the delay between snapshot polls.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// RenderDelayMS defers the render that follows a rank-up.
	RenderDelayMS int `koanf:"render_delay_ms"`

	// CooldownMS is the grace delay after an interstitial before polling resumes.
	CooldownMS int `koanf:"cooldown_ms"`

	// PlaybackTimeoutMS bounds how long an interstitial may wait for viewers.
	PlaybackTimeoutMS int `koanf:"playback_timeout_ms"`

	// FetchTimeoutMS bounds every backend request.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// GoalsRefreshMS reloads people and goals periodically; 0 loads once at startup.
	GoalsRefreshMS int `koanf:"goals_refresh_ms"`

	// StateDBPath is the SQLite file holding the last top seller. Empty keeps it in memory.
	StateDBPath string `koanf:"state_db_path"`

	// FrameQueueSize bounds frames waiting for delivery to viewers.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// AssetBase prefixes photo, icon and video URLs.
	AssetBase string `koanf:"asset_base"`

	// AssetDir, when set, is served under AssetBase by the presenter itself.
	AssetDir string `koanf:"asset_dir"`

	// MetricsEnabled switches Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is how often process gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		BackendURL:        "http://localhost:5000",
		PollIntervalMS:    6000,
		RenderDelayMS:     1000,
		CooldownMS:        10000,
		PlaybackTimeoutMS: 120000,
		FetchTimeoutMS:    5000,
		GoalsRefreshMS:    0,
		StateDBPath:       "salesboard.db",
		FrameQueueSize:    256,
		AssetBase:         "/static/uploads",
		MetricsEnabled:    true,
		MetricsRefreshMS:  10000,
	}
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration { return ms(c.PollIntervalMS) }

// RenderDelay returns the post-rank-up render delay.
func (c *Config) RenderDelay() time.Duration { return ms(c.RenderDelayMS) }

// Cooldown returns the post-interstitial grace delay.
func (c *Config) Cooldown() time.Duration { return ms(c.CooldownMS) }

// PlaybackTimeout returns the interstitial playback bound.
func (c *Config) PlaybackTimeout() time.Duration { return ms(c.PlaybackTimeoutMS) }

// FetchTimeout returns the backend request timeout.
func (c *Config) FetchTimeout() time.Duration { return ms(c.FetchTimeoutMS) }

// GoalsRefresh returns the goal reload interval; zero disables reloading.
func (c *Config) GoalsRefresh() time.Duration { return ms(c.GoalsRefreshMS) }

// MetricsRefresh returns the process gauge sampling interval.
func (c *Config) MetricsRefresh() time.Duration { return ms(c.MetricsRefreshMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
