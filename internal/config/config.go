// Package config loads badbar settings from defaults, an optional YAML
// file, BADBAR_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hammamikhairi/badbar/internal/logger"
)

// EnvPrefix is prepended to every environment variable, e.g.
// BADBAR_SERVER_URL for server.url.
const EnvPrefix = "BADBAR"

// Keys.
const (
	KeyBackend       = "backend"
	KeyServerURL     = "server.url"
	KeyServerAddr    = "server.addr"
	KeyServerTimeout = "server.timeout"
	KeyShutdown      = "server.shutdown_timeout"
	KeyDBPath        = "db.path"
	KeyDBInMemory    = "db.in_memory"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyToastDuration = "toast.duration"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRemote = "remote"
)

// Config is the resolved configuration.
type Config struct {
	Backend string       `mapstructure:"backend"`
	Server  ServerConfig `mapstructure:"server"`
	DB      DBConfig     `mapstructure:"db"`
	Log     LogConfig    `mapstructure:"log"`
	Toast   ToastConfig  `mapstructure:"toast"`
}

// ServerConfig covers both ends of the HTTP API.
type ServerConfig struct {
	// URL is where the remote backend connects to.
	URL string `mapstructure:"url"`
	// Addr is where `badbar serve` listens.
	Addr string `mapstructure:"addr"`
	// Timeout bounds each plain request the remote backend makes.
	Timeout time.Duration `mapstructure:"timeout"`
	// ShutdownTimeout bounds how long `badbar serve` drains requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig configures the badger backend.
type DBConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives log output. "stderr" logs to the console.
	File string `mapstructure:"file"`
}

// ToastConfig configures transient TUI notifications.
type ToastConfig struct {
	Duration time.Duration `mapstructure:"duration"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, BackendBadger)
	v.SetDefault(KeyServerURL, "http://127.0.0.1:8787")
	v.SetDefault(KeyServerAddr, "127.0.0.1:8787")
	v.SetDefault(KeyServerTimeout, 15*time.Second)
	v.SetDefault(KeyShutdown, 5*time.Second)
	v.SetDefault(KeyDBPath, filepath.Join(".badbar", "db"))
	v.SetDefault(KeyDBInMemory, false)
	v.SetDefault(KeyLogLevel, "normal")
	v.SetDefault(KeyLogFile, filepath.Join(".badbar", "badbar.log"))
	v.SetDefault(KeyToastDuration, 3*time.Second)
}

// New returns a viper instance with defaults and environment binding set
// up. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (explicit path, or badbar.yaml in the working
// directory or the user config directory) and returns the merged result.
// A missing default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("badbar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "badbar"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBadger:
	case BackendRemote:
		if c.Server.URL == "" {
			return fmt.Errorf("backend %q requires %s", BackendRemote, KeyServerURL)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendMemory, BackendBadger, BackendRemote)
	}
	if c.Backend == BackendBadger && !c.DB.InMemory && c.DB.Path == "" {
		return fmt.Errorf("backend %q requires %s or %s", BackendBadger, KeyDBPath, KeyDBInMemory)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	for key, d := range map[string]time.Duration{
		KeyToastDuration: c.Toast.Duration,
		KeyServerTimeout: c.Server.Timeout,
		KeyShutdown:      c.Server.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}

// LogLevel returns the parsed log level. Validate has already vetted it.
func (c Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}
