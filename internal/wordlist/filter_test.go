package wordlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilterEnglishASCII(t *testing.T) {
	filter := FilterForLang("en")
	if !filter("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"résumé", "naïve", "don’t", "co-op"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterGerman(t *testing.T) {
	filter := FilterForLang("de")
	for _, word := range []string{"straße", "müde", "haus"} {
		if !filter(word) {
			t.Fatalf("expected %q to pass german filter", word)
		}
	}
	if filter("café") {
		t.Fatalf("expected café to be rejected")
	}
}

func TestSplitWordsTrimsAndDedups(t *testing.T) {
	words := SplitWords([]string{"The cat sat.", "A cat, the end!"}, FilterForLang("en"))
	got := strings.Join(words, " ")
	if got != "the cat sat a end" {
		t.Fatalf("unexpected words %q", got)
	}
}

func TestLoadWordsNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "de.txt")
	// "u" followed by a combining diaeresis.
	content := "# comment\n\nmu\u0308de Katze\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 1 || lines[0] != "m\u00fcde Katze" {
		t.Fatalf("expected composed line, got %q", lines)
	}
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path); err == nil {
		t.Fatalf("expected empty list error")
	}
}
