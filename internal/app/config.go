package app

import (
	"errors"
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/logobot/core/config"
	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/internal/access"
	"github.com/m3rciful/logobot/internal/exercises"
	"github.com/m3rciful/logobot/internal/schedule"
)

// Config is the whole application configuration. The core sections are
// inlined so telegram, webhook, logging and rate_limit stay top level.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config     `yaml:"database"`
	YouTube   exercises.YouTubeConfig `yaml:"youtube"`
	Exercises ExercisesConfig         `yaml:"exercises"`
	Schedule  schedule.Hours          `yaml:"schedule"`
	Access    AccessConfig            `yaml:"access"`
	Metrics   MetricsConfig           `yaml:"metrics"`
	Sender    SenderConfig            `yaml:"sender"`
}

// ExercisesConfig lists the video categories. Empty means the built-in set.
type ExercisesConfig struct {
	Categories []exercises.Category `yaml:"categories"`
}

// AccessConfig holds handles allowed before their owners ever write to the bot.
type AccessConfig struct {
	Handles []string `yaml:"handles" envconfig:"ACCESS_HANDLES"`
}

// MetricsConfig enables the Prometheus listener when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// SenderConfig sizes the outbound reply queue.
type SenderConfig struct {
	QueueSize  int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers    int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
}

// CoreConfig satisfies cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load decodes path plus .env and the environment, then normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	if err := c.YouTube.Normalize(); err != nil {
		return err
	}
	if len(c.Exercises.Categories) == 0 {
		c.Exercises.Categories = exercises.DefaultCategories
	}
	if err := exercises.ValidateCategories(c.Exercises.Categories); err != nil {
		return err
	}
	if err := c.Schedule.Normalize(); err != nil {
		return err
	}
	for i, h := range c.Access.Handles {
		if !access.ValidHandle(h) {
			return fmt.Errorf("access.handles[%d]: invalid handle %q", i, h)
		}
		c.Access.Handles[i] = access.NormalizeHandle(h)
	}
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	if c.Sender.QueueSize < 0 || c.Sender.Workers < 0 || c.Sender.MaxRetries < 0 {
		return errors.New("sender values must be >= 0")
	}
	return nil
}
