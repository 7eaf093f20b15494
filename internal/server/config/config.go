// Package config handles configuration for the sync server: defaults, an
// optional .env file, environment variables and command-line flags, applied
// in that order.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the daykeeper sync server.
//
// An empty DatabaseDSN selects the in-memory record store, useful for
// development and tests; any other value is a PostgreSQL DSN (pgx).
type Config struct {
	Addr                         string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	AuthRequestsPerSecond        float64
	AuthBurst                    int
	ShutdownTimeout              time.Duration
}

// LoadDefaults populates Config with development defaults. The secret key
// is insecure by design and must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 720 * time.Hour
	c.AuthRequestsPerSecond = 5
	c.AuthBurst = 10
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then a .env file if one
// exists, then environment variables, then command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	// Missing .env is fine; it only seeds the environment.
	_ = godotenv.Load()

	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

func parseEnv(c *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefreshTokenValidityDuration = d
		}
	}
}

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN (empty selects the in-memory store)
//	-s string   JWT HMAC secret key
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
