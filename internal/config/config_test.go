package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               "8000",
		Env:                "development",
		DBPassword:         "secure-password",
		AccessTokenSecret:  "access-secret-at-least-32-chars-long!!",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenSecret: "refresh-secret-at-least-32-chars-long!",
		RefreshTokenExpiry: 240 * time.Hour,
		CookieSecure:       true,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing access secret", func(c *Config) { c.AccessTokenSecret = "" }, true},
		{"missing refresh secret", func(c *Config) { c.RefreshTokenSecret = "" }, true},
		{"shared secret", func(c *Config) { c.RefreshTokenSecret = c.AccessTokenSecret }, true},
		{"zero access expiry", func(c *Config) { c.AccessTokenExpiry = 0 }, true},
		{"short secret allowed in development", func(c *Config) { c.AccessTokenSecret = "short" }, false},
		{"short secret rejected in production", func(c *Config) {
			c.Env = "production"
			c.AccessTokenSecret = "short"
		}, true},
		{"default secret rejected in production", func(c *Config) {
			c.Env = "prod"
			c.RefreshTokenSecret = defaultRefreshSecret
		}, true},
		{"weak db password rejected in production", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"strong production config", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "15m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "72h")
	t.Setenv("S3_BUCKET", "quill-images")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, 72*time.Hour, cfg.RefreshTokenExpiry)
	assert.Equal(t, "quill-images", cfg.S3Bucket)
	assert.Equal(t, "8000", cfg.Port)
	assert.NotEqual(t, cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
}

func TestConfig_Origins(t *testing.T) {
	c := &Config{AllowedOrigins: " http://a.test ,, http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
}
