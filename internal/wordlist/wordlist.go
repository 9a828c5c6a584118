// Package wordlist loads practice corpora and splits them into words.
package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LoadWords reads one entry per line from the provided file path. Lines may
// be single words or whole sentences.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	words, err := ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// ReadLines returns the non-empty, NFC-normalized lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(norm.NFC.String(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return lines, nil
}

// SplitWords breaks sentences into lower-case words with surrounding
// punctuation trimmed. Words rejected by keep are skipped; keep may be nil.
func SplitWords(sentences []string, keep FilterFunc) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range sentences {
		for _, w := range strings.Fields(s) {
			w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()„“”«»-"))
			if w == "" {
				continue
			}
			if keep != nil && !keep(w) {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
