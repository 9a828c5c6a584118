package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/typedrill/internal/config"
	"github.com/verte-zerg/typedrill/internal/content"
	"github.com/verte-zerg/typedrill/internal/generator"
	"github.com/verte-zerg/typedrill/internal/model"
	"github.com/verte-zerg/typedrill/internal/progression"
)

func testCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Load(content.WithGenerator(generator.NewWithSeed(1)))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("expected template to decode, got %v", err)
	}
}

func TestConfigFileOverlaysUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data := "[practice]\nlang = \"de\"\n[engine]\ntick-ms = 50\nmax-attempts = 7\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--tick-ms", "20"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := applyFileConfig(cmd); err != nil {
		t.Fatalf("apply config: %v", err)
	}
	if practiceLang != "de" || engineMaxAttempts != 7 {
		t.Fatalf("expected config values, got lang=%s attempts=%d", practiceLang, engineMaxAttempts)
	}
	if engineTickMS != 20 {
		t.Fatalf("expected explicit flag to win, got %d", engineTickMS)
	}
}

func TestValidatePracticeRejectsBadValues(t *testing.T) {
	newRootCmd()
	engineTickMS = 0
	if err := validatePractice(); err == nil || !strings.Contains(err.Error(), "--tick-ms") {
		t.Fatalf("expected tick error, got %v", err)
	}
	newRootCmd()
	practiceLang = "not a tag!"
	if err := validatePractice(); err == nil {
		t.Fatalf("expected lang error")
	}
	newRootCmd()
	if err := validatePractice(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestResolveLesson(t *testing.T) {
	c := testCatalog(t)
	ledger := progression.NewLedger(model.ProgressionState{}, nil)
	id, err := resolveLesson(c, ledger, "")
	if err != nil || id != "home-fj" {
		t.Fatalf("expected first lesson, got %q %v", id, err)
	}
	if _, err := resolveLesson(c, ledger, "top-ei"); err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected locked error, got %v", err)
	}
	if _, err := resolveLesson(c, ledger, "nope"); err == nil {
		t.Fatalf("expected unknown lesson error")
	}
}

func TestRenderLessons(t *testing.T) {
	c := testCatalog(t)
	ledger := progression.NewLedger(model.ProgressionState{}, map[string]model.LessonMastery{
		"home-fj": {LessonID: "home-fj", Score: 91, Completed: true},
	})
	var buf bytes.Buffer
	if err := renderLessons(&buf, c, ledger); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Stage 1: Home row", "[x] home-fj", "(mastery 91)", "home-dk", "<- next", "[-] top-ei"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestBuildStatsConfig(t *testing.T) {
	newRootCmd()
	newStatsCmd()
	statsSince = "2026-01-02"
	cfg, err := buildStatsConfig("en-GB")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.Lang != "en" || cfg.Since == nil || cfg.CurveWindow != defaultCurveWindow {
		t.Fatalf("unexpected config %+v", cfg)
	}
	statsSince = "yesterday"
	if _, err := buildStatsConfig(""); err == nil {
		t.Fatalf("expected since parse error")
	}
}
