package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:                 tt.env,
				DBSSLMode:           tt.sslMode,
				JWTSecret:           "secure-secret-at-least-32-chars-long",
				DBPassword:          "secure-password",
				Port:                "8080",
				TracingSamplerRatio: 1,
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateRejectsBadRecorderSettings(t *testing.T) {
	c := &Config{Port: "8080", JWTSecret: "x", InteractionWorkers: -1}
	assert.Error(t, c.Validate())

	c = &Config{Port: "8080", JWTSecret: "x", TracingSamplerRatio: 1.5}
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("INTERACTION_WORKERS")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("INTERACTION_WORKERS", "4")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.Equal(t, 4, c.InteractionWorkers)
	assert.Equal(t, 1024, c.InteractionQueueSize)
	assert.Equal(t, "devflow", c.DBName)
}
