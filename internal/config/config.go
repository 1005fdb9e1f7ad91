package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/libershare/launcher/internal/events"
	"github.com/libershare/launcher/internal/logger"
	"github.com/libershare/launcher/internal/process"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "LISH"
	DefaultBackend    = "lish-backend"
	DefaultAppName    = "libershare"
	DefaultIdentifier = "com.libershare.app"
)

// Config is the launcher configuration after file, environment and flags are merged.
type Config struct {
	Backend          string        `toml:"backend" mapstructure:"backend"`
	AppName          string        `toml:"app_name" mapstructure:"app_name"`
	Identifier       string        `toml:"identifier" mapstructure:"identifier"`
	DataDir          string        `toml:"data_dir" mapstructure:"data_dir"`
	ResourceDir      string        `toml:"resource_dir" mapstructure:"resource_dir"`
	Debug            bool          `toml:"debug" mapstructure:"debug"`
	Env              []string      `toml:"env" mapstructure:"env"`
	TerminateTimeout time.Duration `toml:"terminate_timeout" mapstructure:"terminate_timeout"`
	EventBuffer      int           `toml:"event_buffer" mapstructure:"event_buffer"`
	MetricsAddr      string        `toml:"metrics_addr" mapstructure:"metrics_addr"`
	LogToFile        bool          `toml:"log_to_file" mapstructure:"log_to_file"`
	Log              logger.Config `toml:"log" mapstructure:"log"`
}

// flagKeys maps cobra flag names to config keys.
var flagKeys = map[string]string{
	"backend":      "backend",
	"data-dir":     "data_dir",
	"resource-dir": "resource_dir",
	"debug":        "debug",
	"metrics-addr": "metrics_addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-file":     "log.file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("identifier", DefaultIdentifier)
	v.SetDefault("data_dir", "")
	v.SetDefault("resource_dir", "")
	v.SetDefault("debug", false)
	v.SetDefault("env", []string{})
	v.SetDefault("terminate_timeout", process.DefaultTerminateTimeout)
	v.SetDefault("event_buffer", events.DefaultBuffer)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_to_file", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
}

// Load reads the optional TOML file at path, LISH_* environment variables and
// any changed flags in fs, in increasing precedence.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.finalize(runtime.GOOS); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) finalize(goos string) error {
	if strings.TrimSpace(c.Backend) == "" {
		return errors.New("backend name is required")
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	if c.TerminateTimeout < 0 {
		return fmt.Errorf("terminate_timeout cannot be negative")
	}
	if c.DataDir == "" {
		dir, err := DefaultDataDir(goos, c.Identifier)
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	c.DataDir = filepath.Clean(c.DataDir)
	if c.LogToFile && c.Log.File.Path == "" {
		c.Log.File.Path = filepath.Join(c.DataDir, "logs", "launcher.log")
	}
	if c.Debug {
		c.Log.Level = "debug"
	}
	return nil
}

// DefaultDataDir returns the per-user application data directory for identifier.
func DefaultDataDir(goos, identifier string) (string, error) {
	if goos == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, identifier), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share", identifier), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, identifier), nil
}
