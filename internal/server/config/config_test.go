package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Empty(t, c.DatabaseDSN)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("DATABASE_DSN", "postgres://localhost/daykeeper")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c)

	assert.Equal(t, ":9090", c.Addr)
	assert.Equal(t, "postgres://localhost/daykeeper", c.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
}

func TestParseEnv_InvalidDurationKeepsDefault(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c)

	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
}
