package wordlist

import "strings"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// extraLetters lists the letters each language adds to a-z.
var extraLetters = map[string]string{
	"en": "",
	"de": "äöüß",
}

// FilterForLang returns a language-specific filter for corpus words. Known
// languages keep lower-case words spelled from their alphabet only; unknown
// languages keep every non-empty word.
func FilterForLang(lang string) FilterFunc {
	extra, ok := extraLetters[strings.ToLower(lang)]
	if !ok {
		return func(word string) bool { return word != "" }
	}
	return func(word string) bool {
		return word != "" && strings.IndexFunc(word, func(r rune) bool {
			return (r < 'a' || r > 'z') && !strings.ContainsRune(extra, r)
		}) < 0
	}
}
