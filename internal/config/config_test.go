package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
store:
  driver: memory
http:
  network: unix
  socket: /run/nvrgate.sock
  readtimeout: 3s
security:
  csrfsecret: s3cret
  unauthenticatedpermissions: [viewVideo]
jobs:
  exportusers: ""
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "unix", cfg.HTTP.Network)
	assert.Equal(t, "/run/nvrgate.sock", cfg.HTTP.Socket)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "s3cret", cfg.Security.CSRFSecret)
	assert.Equal(t, []string{"viewVideo"}, cfg.Security.UnauthenticatedPermissions)
	assert.Equal(t, 5*time.Minute, cfg.Security.SessionCacheTTL)
	assert.Equal(t, "http-only,secure,same-site,same-site-strict", cfg.Security.LoginSessionFlags)
	assert.Equal(t, "accounts:events", cfg.Worker.Stream)
	assert.Equal(t, "0 */1 * * * *", cfg.Jobs.FlushUsage)
	assert.Empty(t, cfg.Jobs.ExportUsers)
}

func TestLoadFileEnvOverride(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: memory
security:
  csrfsecret: from-file
`)
	t.Setenv("NVRGATE_SECURITY_CSRFSECRET", "from-env")
	t.Setenv("NVRGATE_HTTP_PORT", "9090")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Security.CSRFSecret)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		return AppConfig{
			Store:    StoreConfig{Driver: "memory"},
			HTTP:     HTTPConfig{Network: "tcp"},
			Security: SecurityConfig{CSRFSecret: "x"},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"postgres without dsn", func(c *AppConfig) { c.Store.Driver = "postgres" }, "postgres.dsn"},
		{"unknown driver", func(c *AppConfig) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"unix without socket", func(c *AppConfig) { c.HTTP.Network = "unix" }, "http.socket"},
		{"unknown network", func(c *AppConfig) { c.HTTP.Network = "udp" }, "http.network"},
		{"no csrf secret", func(c *AppConfig) { c.Security.CSRFSecret = "" }, "csrfsecret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
