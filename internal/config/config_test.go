package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/badbar/internal/logger"
)

// inTempDir runs the test from an empty directory so no stray badbar.yaml
// is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendBadger {
		t.Fatalf("backend = %q", cfg.Backend)
	}
	if cfg.Toast.Duration != 3*time.Second {
		t.Fatalf("toast duration = %s", cfg.Toast.Duration)
	}
	if cfg.Server.Timeout != 15*time.Second || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Fatalf("server timeouts = %s, %s", cfg.Server.Timeout, cfg.Server.ShutdownTimeout)
	}
	if cfg.LogLevel() != logger.LevelNormal {
		t.Fatalf("log level = %s", cfg.LogLevel())
	}
	if cfg.DB.Path == "" || cfg.Server.Addr == "" {
		t.Fatalf("missing defaults: %+v", cfg)
	}
}

func TestPrecedence(t *testing.T) {
	dir := inTempDir(t)

	file := filepath.Join(dir, "badbar.yaml")
	yaml := strings.Join([]string{
		"backend: remote",
		"server:",
		"  url: http://bar.example:9000",
		"log:",
		"  level: verbose",
		"toast:",
		"  duration: 5s",
	}, "\n")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BADBAR_LOG_LEVEL", "off")

	v := New()
	v.Set(KeyToastDuration, "1s") // stands in for an explicitly set flag

	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendRemote || cfg.Server.URL != "http://bar.example:9000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel() != logger.LevelOff {
		t.Fatalf("env should override file, level = %s", cfg.LogLevel())
	}
	if cfg.Toast.Duration != time.Second {
		t.Fatalf("override should win, toast = %s", cfg.Toast.Duration)
	}
}

func TestExplicitFileMustExist(t *testing.T) {
	dir := inTempDir(t)
	if _, err := Load(New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Backend: BackendMemory,
		Log:     LogConfig{Level: "normal"},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, true},
		{"remote without url", func(c *Config) { c.Backend = BackendRemote }, true},
		{"remote with url", func(c *Config) { c.Backend = BackendRemote; c.Server.URL = "http://x" }, false},
		{"badger without path", func(c *Config) { c.Backend = BackendBadger }, true},
		{"badger in memory", func(c *Config) { c.Backend = BackendBadger; c.DB.InMemory = true }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }, true},
		{"negative toast", func(c *Config) { c.Toast.Duration = -time.Second }, true},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, true},
		{"negative request timeout", func(c *Config) { c.Server.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
