// Package config loads the settings of the contacts programs from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig selects and addresses the database. Path is used by SQLite, the remaining
// fields by MySQL.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig holds the REST service settings.
type ServerConfig struct {
	Port       int  `yaml:"port"`
	GinLogging bool `yaml:"gin_logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is specified: a SQLite database file
// in the working directory and the service on port 8080.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: "contacts.db", Name: "contacts"},
		Server:   ServerConfig{Port: 8080, GinLogging: true},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// envVarPattern matches ${VAR_NAME} references in the configuration file.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load returns the default configuration, overridden by the YAML file at path (if path is not
// empty) and then by environment variables. Environment variables in the format ${VAR_NAME} are
// expanded inside the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
			return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings with the environment variables DBDRIVER, DBPATH, DBHOST, DBUSER,
// DBPWD, DBNAME, PORT, GIN_LOGGING and LOGLEVEL, where set.
//
// Usage example:
// > DBDRIVER=mysql DBHOST=localhost DBUSER=dirk DBPWD=bullo92 PORT=8080 GIN_LOGGING=off
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(target *string, key string) {
		if v := getenv(key); v != "" {
			*target = v
		}
	}
	set(&c.Database.Driver, "DBDRIVER")
	set(&c.Database.Path, "DBPATH")
	set(&c.Database.Host, "DBHOST")
	set(&c.Database.User, "DBUSER")
	set(&c.Database.Password, "DBPWD")
	set(&c.Database.Name, "DBNAME")
	set(&c.Logging.Level, "LOGLEVEL")
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse PORT env variable: %w", err)
		}
		c.Server.Port = port
	}
	if strings.EqualFold(getenv("GIN_LOGGING"), "off") {
		c.Server.GinLogging = false
	}
	return nil
}

// Validate checks that the configuration can be used to open a database and serve requests.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver != "mysql" {
		return d.Path
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Host
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (l LoggingConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

// NewLogger creates a logger writing to w in the configured format ("text" or "json").
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
