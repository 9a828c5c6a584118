// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Engine   EngineConfig   `toml:"engine"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Lang       *string `toml:"lang"`
	Lesson     *string `toml:"lesson"`
	Seed       *int64  `toml:"seed"`
	CorpusDir  *string `toml:"corpus-dir"`
	WeakTop    *int    `toml:"weak-top"`
	WeakWindow *int    `toml:"weak-window"`
}

// EngineConfig maps session and lesson engine settings.
type EngineConfig struct {
	TickMS          *int `toml:"tick-ms"`
	MaxAttempts     *int `toml:"max-attempts"`
	ExerciseSeconds *int `toml:"exercise-seconds"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	File    *string `toml:"file"`
	Verbose *bool   `toml:"verbose"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
