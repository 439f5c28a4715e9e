// Package config loads taskmaster settings from defaults, an optional YAML
// file and TASKMASTER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "taskmaster"
	EnvPrefix = "TASKMASTER"
)

var (
	ErrUnknownKey = errors.New("config: unknown key")
	ErrInvalid    = errors.New("config: invalid value")
)

type Config struct {
	DB       DBConfig   `mapstructure:"db"`
	Timezone string     `mapstructure:"timezone"`
	Plan     PlanConfig `mapstructure:"plan"`
	Log      LogConfig  `mapstructure:"log"`
	TUI      TUIConfig  `mapstructure:"tui"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
	// Driver is "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
	Driver string `mapstructure:"driver"`
}

type PlanConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	Break           time.Duration `mapstructure:"break"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Quiet bool   `mapstructure:"quiet"`
}

type TUIConfig struct {
	WakeBuffer int `mapstructure:"wake_buffer"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"db.path",
	"db.driver",
	"timezone",
	"plan.default_duration",
	"plan.break",
	"log.file",
	"log.quiet",
	"tui.wake_buffer",
}

func Default() *Config {
	return &Config{
		DB:       DBConfig{Path: DefaultDBPath(), Driver: "sqlite3"},
		Timezone: "Local",
		Plan:     PlanConfig{DefaultDuration: 30 * time.Minute, Break: 15 * time.Minute},
		TUI:      TUIConfig{WakeBuffer: 64},
	}
}

// Load reads path, or the user config file when path is empty. A missing
// user config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(UserConfigDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.DB.Path = expandHome(cfg.DB.Path)
	cfg.Log.File = expandHome(cfg.Log.File)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("db.driver", d.DB.Driver)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("plan.default_duration", d.Plan.DefaultDuration.String())
	v.SetDefault("plan.break", d.Plan.Break.String())
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.quiet", d.Log.Quiet)
	v.SetDefault("tui.wake_buffer", d.TUI.WakeBuffer)
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("%w: db.driver %q (want sqlite3 or sqlite)", ErrInvalid, c.DB.Driver)
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("%w: db.path is empty", ErrInvalid)
	}
	if c.Plan.DefaultDuration <= 0 {
		return fmt.Errorf("%w: plan.default_duration must be positive", ErrInvalid)
	}
	if c.Plan.Break < 0 {
		return fmt.Errorf("%w: plan.break must not be negative", ErrInvalid)
	}
	if c.TUI.WakeBuffer <= 0 {
		return fmt.Errorf("%w: tui.wake_buffer must be positive", ErrInvalid)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; "" and "Local" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Timezone, err)
	}
	return loc, nil
}

// Value renders one key for display.
func (c *Config) Value(key string) (string, error) {
	switch strings.ToLower(key) {
	case "db.path":
		return c.DB.Path, nil
	case "db.driver":
		return c.DB.Driver, nil
	case "timezone":
		return c.Timezone, nil
	case "plan.default_duration":
		return c.Plan.DefaultDuration.String(), nil
	case "plan.break":
		return c.Plan.Break.String(), nil
	case "log.file":
		return c.Log.File, nil
	case "log.quiet":
		return strconv.FormatBool(c.Log.Quiet), nil
	case "tui.wake_buffer":
		return strconv.Itoa(c.TUI.WakeBuffer), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// fileConfig is the on-disk YAML shape; durations are kept as strings so
// the file stays readable.
type fileConfig struct {
	DB struct {
		Path   string `yaml:"path"`
		Driver string `yaml:"driver"`
	} `yaml:"db"`
	Timezone string `yaml:"timezone"`
	Plan     struct {
		DefaultDuration string `yaml:"default_duration"`
		Break           string `yaml:"break"`
	} `yaml:"plan"`
	Log struct {
		File  string `yaml:"file,omitempty"`
		Quiet bool   `yaml:"quiet"`
	} `yaml:"log"`
	TUI struct {
		WakeBuffer int `yaml:"wake_buffer"`
	} `yaml:"tui"`
}

// Marshal renders cfg as YAML that Load reads back unchanged.
func Marshal(cfg *Config) ([]byte, error) {
	var f fileConfig
	f.DB.Path = cfg.DB.Path
	f.DB.Driver = cfg.DB.Driver
	f.Timezone = cfg.Timezone
	f.Plan.DefaultDuration = cfg.Plan.DefaultDuration.String()
	f.Plan.Break = cfg.Plan.Break.String()
	f.Log.File = cfg.Log.File
	f.Log.Quiet = cfg.Log.Quiet
	f.TUI.WakeBuffer = cfg.TUI.WakeBuffer
	return yaml.Marshal(&f)
}

// Write saves cfg to path, creating parent directories. An existing file is
// only replaced when overwrite is set.
func Write(cfg *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// UserConfigDir is $XDG_CONFIG_HOME/taskmaster, else ~/.config/taskmaster.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

func UserConfigPath() string {
	return filepath.Join(UserConfigDir(), "config.yaml")
}

// DefaultDBPath is $XDG_DATA_HOME/taskmaster/taskmaster.db, else under
// ~/.local/share.
func DefaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, appName+".db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName + ".db"
	}
	return filepath.Join(home, ".local", "share", appName, appName+".db")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
