package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Deck struct {
		Path string `yaml:"path"` // empty means the built-in Week 1 deck
	} `yaml:"deck"`
	Storage struct {
		Backend       string `yaml:"backend"` // memory, file, sqlite, redis
		FilePath      string `yaml:"file_path"`
		SQLitePath    string `yaml:"sqlite_path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"` // activity history; empty disables recording
	} `yaml:"database"`
	Session struct {
		IdleTimeout time.Duration `yaml:"idle_timeout"`
		SingleUser  bool          `yaml:"single_user"`
	} `yaml:"session"`
	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron"`
		SweepCron    string `yaml:"sweep_cron"`
	} `yaml:"schedule"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("GREENDECK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GREENDECK_DECK"); v != "" {
		cfg.Deck.Path = v
	}
	if v := os.Getenv("GREENDECK_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("GREENDECK_STATE_FILE"); v != "" {
		cfg.Storage.FilePath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Storage.RedisDB = n
		}
	}
	if v := os.Getenv("GREENDECK_SINGLE_USER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Session.SingleUser = b
		}
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.FilePath == "" {
		cfg.Storage.FilePath = "data/progress.json"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/progress.db"
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = 30 * time.Minute
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 0 * * * *"
	}
	if cfg.Schedule.SweepCron == "" {
		cfg.Schedule.SweepCron = "0 */5 * * * *"
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "dev"
	}

	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "memory", "file", "sqlite":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, file, sqlite, redis", c.Storage.Backend)
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must not be negative")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.SnapshotCron); err != nil {
		return fmt.Errorf("schedule.snapshot_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.SweepCron); err != nil {
		return fmt.Errorf("schedule.sweep_cron: %w", err)
	}
	return nil
}
