package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the store and its connection settings.
type Config struct {
	Driver string `yaml:"driver" envconfig:"DB_DRIVER"`
	// Path is the sqlite database file.
	Path string `yaml:"path" envconfig:"DB_PATH"`

	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     string `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`

	MaxConnections int `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	RetryAttempts  int `yaml:"retry_attempts" envconfig:"DB_RETRY_ATTEMPTS"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"DB_RETRY_BACKOFF_MS"`
}

// Normalize fills defaults and rejects unknown drivers.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "sqlite":
		c.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: sqlite3, postgres", c.Driver)
	}

	if c.Driver == DriverSQLite {
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "logobot.db"
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY between our own goroutines.
		c.MaxConnections = 1
	} else {
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 5
		}
	}

	switch {
	case c.RetryAttempts == 0:
		c.RetryAttempts = 3
	case c.RetryAttempts < 0 || c.RetryAttempts > 10:
		return fmt.Errorf("database.retry_attempts must be between 1 and 10")
	}
	switch {
	case c.RetryBackoffMS == 0:
		c.RetryBackoffMS = 100
	case c.RetryBackoffMS < 0:
		return fmt.Errorf("database.retry_backoff_ms must be >= 0")
	}
	return nil
}

// DSN returns the driver-specific connection string.
func (c Config) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
	}
	return "file:" + c.Path + "?_busy_timeout=5000&_foreign_keys=on"
}

// MigrateURL returns the postgres URL form used by golang-migrate.
func (c Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Policy returns the retry policy configured for this store.
func (c Config) Policy() Policy {
	return Policy{
		MaxAttempts: c.RetryAttempts,
		Backoff:     time.Duration(c.RetryBackoffMS) * time.Millisecond,
	}
}
