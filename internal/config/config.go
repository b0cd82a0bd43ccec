package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	ckerrors "github.com/makerio90/checklist/internal/errors"
	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/retry"
)

const (
	EnvPrefix      = "CHECKLIST"
	BackendJSON    = "json"
	BackendSQLite  = "sqlite"
	configFileName = "config.toml"
)

type EngineConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	// Timezone schedules are evaluated in; "Local" means the host zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type RetryConfig struct {
	Mode       string        `mapstructure:"mode" yaml:"mode"`
	Initial    time.Duration `mapstructure:"initial" yaml:"initial"`
	Max        time.Duration `mapstructure:"max" yaml:"max"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File receives log output while the terminal UI owns the screen.
	File string `mapstructure:"file" yaml:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type UIConfig struct {
	DesktopNotifications bool `mapstructure:"desktop_notifications" yaml:"desktop_notifications"`
}

// ChecklistConfig is one [[checklist]] table.
type ChecklistConfig struct {
	Name          string   `mapstructure:"name" yaml:"name"`
	ResetSchedule string   `mapstructure:"reset_schedule" yaml:"reset_schedule"`
	Todo          []string `mapstructure:"todo" yaml:"todo"`
}

type Config struct {
	Engine     EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Storage    StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Retry      RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Log        LogConfig         `mapstructure:"log" yaml:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	UI         UIConfig          `mapstructure:"ui" yaml:"ui"`
	Checklists []ChecklistConfig `mapstructure:"checklist" yaml:"checklist"`

	path string
}

// DefaultConfigDir returns ~/.config/checklist.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "checklist")
	}
	return filepath.Join(home, ".config", "checklist")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), configFileName)
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	p := retry.DefaultPolicy()
	return &Config{
		Engine:  EngineConfig{TickInterval: 10 * time.Second, Timezone: "UTC"},
		Storage: StorageConfig{Backend: BackendJSON},
		Retry: RetryConfig{
			Mode:       string(p.Mode),
			Initial:    p.Initial,
			Max:        p.Max,
			MaxRetries: p.MaxRetries,
		},
		Log:        LogConfig{Level: "info"},
		Checklists: []ChecklistConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine.tick_interval", d.Engine.TickInterval)
	v.SetDefault("engine.timezone", d.Engine.Timezone)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("retry.mode", d.Retry.Mode)
	v.SetDefault("retry.initial", d.Retry.Initial)
	v.SetDefault("retry.max", d.Retry.Max)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("ui.desktop_notifications", false)
}

// Load reads the file at path (DefaultConfigPath when empty), applies
// CHECKLIST_* environment overrides and validates the result. A missing
// file is a configuration error: there is nothing to track without one.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ckerrors.Config(fmt.Sprintf("config directory %s does not exist", filepath.Dir(path)), err)
		}
		return nil, ckerrors.Config("cannot access config directory", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, ckerrors.Config(fmt.Sprintf("config file %s not found", path), err)
		}
		return nil, ckerrors.Config(fmt.Sprintf("reading config %s", path), err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ckerrors.Config(fmt.Sprintf("parsing config %s", path), err)
	}
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path is the file the configuration was read from, if any.
func (c *Config) Path() string { return c.path }

// Dir is the directory holding the configuration file.
func (c *Config) Dir() string {
	if c.path == "" {
		return DefaultConfigDir()
	}
	return filepath.Dir(c.path)
}

// StorageDir defaults to the config directory, next to config.toml.
func (c *Config) StorageDir() string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return c.Dir()
}

func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.StorageDir(), "checklist.db")
}

func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Dir(), "checklist.log")
}

func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Engine.Timezone) {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Engine.Timezone)
}

func (c *Config) RetryPolicy() retry.Policy {
	return retry.NewPolicy(retry.BackoffMode(c.Retry.Mode), c.Retry.Initial, c.Retry.Max, c.Retry.MaxRetries)
}

// Validate checks everything that must hold before the engine starts,
// including that every schedule parses.
func (c *Config) Validate() error {
	if c.Engine.TickInterval <= 0 {
		return ckerrors.Config(fmt.Sprintf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval), nil)
	}
	if _, err := c.Location(); err != nil {
		return ckerrors.Config(fmt.Sprintf("unknown engine.timezone %q", c.Engine.Timezone), err)
	}
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return ckerrors.Config(fmt.Sprintf("storage.backend must be %q or %q, got %q", BackendJSON, BackendSQLite, c.Storage.Backend), nil)
	}
	switch retry.BackoffMode(c.Retry.Mode) {
	case retry.BackoffFixed, retry.BackoffLinear, retry.BackoffExponential:
	default:
		return ckerrors.Config(fmt.Sprintf("unknown retry.mode %q", c.Retry.Mode), nil)
	}
	if c.Retry.MaxRetries < 0 {
		return ckerrors.Config("retry.max_retries cannot be negative", nil)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return ckerrors.Config(fmt.Sprintf("unknown log.level %q", c.Log.Level), err)
	}
	if _, err := c.Definitions(); err != nil {
		return err
	}
	return nil
}

// Definitions turns the [[checklist]] tables into model definitions, in
// file order.
func (c *Config) Definitions() ([]model.Definition, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, ckerrors.Config(fmt.Sprintf("unknown engine.timezone %q", c.Engine.Timezone), err)
	}
	seen := make(map[string]bool, len(c.Checklists))
	out := make([]model.Definition, 0, len(c.Checklists))
	for i, cc := range c.Checklists {
		def := model.Definition{Name: cc.Name, Todo: append([]string(nil), cc.Todo...)}
		if err := def.Validate(); err != nil {
			return nil, ckerrors.Config(fmt.Sprintf("checklist #%d", i+1), err)
		}
		if seen[cc.Name] {
			return nil, ckerrors.Config(fmt.Sprintf("duplicate checklist name %q", cc.Name), nil)
		}
		seen[cc.Name] = true
		if strings.TrimSpace(cc.ResetSchedule) != "" {
			sched, err := model.ParseSchedule(cc.ResetSchedule, loc)
			if err != nil {
				return nil, ckerrors.Config(fmt.Sprintf("checklist %q", cc.Name), err).WithContext("checklist", cc.Name)
			}
			def.Schedule = sched
		}
		out = append(out, def)
	}
	return out, nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
