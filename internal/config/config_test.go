package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadDefaults expects a usable configuration without a file.
func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DBDRIVER", "DBPATH", "DBHOST", "PORT", "LOGLEVEL", "GIN_LOGGING"} {
		t.Setenv(key, "")
	}
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "contacts.db", cfg.Database.DSN())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.GinLogging)
}

// TestLoadFileWithEnvExpansion reads a YAML file that references an environment variable.
func TestLoadFileWithEnvExpansion(t *testing.T) {
	t.Setenv("CONTACTS_DB_PASSWORD", "bullo92")
	t.Setenv("PORT", "")
	t.Setenv("DBPWD", "")
	path := writeConfig(t, `
database:
  driver: mysql
  host: localhost:3306
  user: dirk
  password: ${CONTACTS_DB_PASSWORD}
  name: test
server:
  port: 9090
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bullo92", cfg.Database.Password)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Contains(t, cfg.Database.DSN(), "dirk:bullo92@tcp(localhost:3306)/test?")
	assert.Contains(t, cfg.Database.DSN(), "parseTime=true")
}

// TestApplyEnv overrides file values with the environment.
func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DBPATH":      "/tmp/other.db",
		"PORT":        "8181",
		"GIN_LOGGING": "OFF",
		"LOGLEVEL":    "warn",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(key string) string { return env[key] }))
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.False(t, cfg.Server.GinLogging)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

// TestApplyEnvInvalidPort expects an error for a port that is not a number.
func TestApplyEnvInvalidPort(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(key string) string {
		if key == "PORT" {
			return "eighty"
		}
		return ""
	})
	assert.ErrorContains(t, err, "PORT")
}

// TestValidate rejects incomplete configurations.
func TestValidate(t *testing.T) {
	invalid := []func(*Config){
		func(c *Config) { c.Database.Driver = "postgres" },
		func(c *Config) { c.Database.Path = "" },
		func(c *Config) { c.Database.Driver = "mysql" },
		func(c *Config) { c.Server.Port = 0 },
		func(c *Config) { c.Logging.Level = "verbose" },
	}
	for i, mutate := range invalid {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
	assert.NoError(t, Default().Validate())
}

// TestNewLogger checks that the level and format are honored.
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "id", 42)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"id":42`)
}
