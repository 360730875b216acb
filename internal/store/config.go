package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

const (
	DefaultServer      = "http://localhost:8080"
	DefaultTimeout     = 30 * time.Second
	DefaultSlotMinutes = 30
)

type Config struct {
	// Server is the base URL of the schedule service.
	Server string `yaml:"server,omitempty"`

	// Timeout bounds every HTTP request, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Theme is auto, light or dark.
	Theme string `yaml:"theme,omitempty"`

	// WeekStart is monday or sunday.
	WeekStart string `yaml:"week_start,omitempty"`

	// SlotMinutes is the move/resize step in the calendar.
	SlotMinutes int `yaml:"slot_minutes,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`
}

// Normalize fills zero values with defaults and folds unknown enum values
// back to the default.
func (c *Config) Normalize() {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	switch strings.ToLower(strings.TrimSpace(c.Theme)) {
	case "light", "dark":
		c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	default:
		c.Theme = "auto"
	}
	switch strings.ToLower(strings.TrimSpace(c.WeekStart)) {
	case "sunday":
		c.WeekStart = "sunday"
	default:
		c.WeekStart = "monday"
	}
	if c.SlotMinutes <= 0 || c.SlotMinutes > 24*60 {
		c.SlotMinutes = DefaultSlotMinutes
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
}

func (c Config) Slot() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

func (c Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

func (s Store) ConfigPath() string {
	return s.path(configFileName)
}

// LoadConfig reads config.yaml. A missing file yields the defaults.
func (s Store) LoadConfig() (*Config, error) {
	b, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.ConfigPath(), err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// SaveConfig writes config.yaml atomically with 0600 permissions, keeping the
// previous file as config.yaml.bak.
func (s Store) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := s.ConfigPath()
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(s.Dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o600)
	}
	return atomicWriteFile(s.Dir, "config.yaml.*.tmp", path, b, 0o600)
}

// ConfigKeys lists the keys accepted by Set, sorted.
func ConfigKeys() []string {
	keys := []string{"server", "timeout", "theme", "week_start", "slot_minutes", "log_level", "log_file"}
	sort.Strings(keys)
	return keys
}

// Set assigns one key from its string form.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "server":
		c.Server = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout %q (expected a positive duration like 30s)", value)
		}
		c.Timeout = d
	case "theme":
		switch value {
		case "auto", "light", "dark":
			c.Theme = value
		default:
			return fmt.Errorf("invalid theme %q (expected auto, light or dark)", value)
		}
	case "week_start":
		switch value {
		case "monday", "sunday":
			c.WeekStart = value
		default:
			return fmt.Errorf("invalid week_start %q (expected monday or sunday)", value)
		}
	case "slot_minutes":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > 24*60 {
			return fmt.Errorf("invalid slot_minutes %q (expected 1-1440)", value)
		}
		c.SlotMinutes = n
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log_level %q", value)
		}
	case "log_file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown config key %q (expected one of %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	return nil
}
