package config

import "time"

// Config holds runtime settings for the DayKeeper client.
//
// Fields:
//   - ServerBaseURL: base URL of the backend sync API.
//   - DatabasePath: path to the local SQLite database file.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: how often the background worker runs a sync cycle.
//   - BaseRetryDelay: base of the exponential backoff for failed pushes.
//   - MaxRetries: failed transmissions beyond this count are dead-lettered.
//   - MirrorCooldown: minimum interval between completed calendar mirrors.
//
// Units: all intervals are time.Duration values (e.g. 30*time.Second).
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	BaseRetryDelay      time.Duration
	MaxRetries          int
	MirrorCooldown      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "daykeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.BaseRetryDelay = time.Second
	c.MaxRetries = 10
	c.MirrorCooldown = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
