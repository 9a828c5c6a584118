package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if cfg.Practice.Lang != nil || cfg.Engine.TickMS != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
lang = "de"
lesson = "home-fj"
seed = 7

[engine]
tick-ms = 50
max-attempts = 5

[log]
verbose = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Practice.Lang != "de" || *cfg.Practice.Lesson != "home-fj" || *cfg.Practice.Seed != 7 {
		t.Fatalf("unexpected practice config %+v", cfg.Practice)
	}
	if *cfg.Engine.TickMS != 50 || *cfg.Engine.MaxAttempts != 5 || cfg.Engine.ExerciseSeconds != nil {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Log.Verbose == nil || !*cfg.Log.Verbose || cfg.Log.File != nil {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[engine]\ntick = 5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "engine.tick") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "typedrill", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "typedrill", "typedrill.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
