// Package langdetect identifies the language of input text and resolves
// language tags to English display names.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the gateway to keep the input's own language.
const Auto = "auto"

var supported = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German, lingua.Italian,
	lingua.Portuguese, lingua.Dutch, lingua.Russian, lingua.Chinese, lingua.Japanese,
	lingua.Korean, lingua.Arabic, lingua.Hindi, lingua.Turkish, lingua.Polish,
	lingua.Swedish, lingua.Ukrainian, lingua.Vietnamese,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code and English name of text's language.
// ok is false when the text is too short or ambiguous.
func Detect(text string) (code, name string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", false
	}
	lang, ok := getDetector().DetectLanguageOf(text)
	if !ok {
		return "", "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String(), true
}

// DisplayName maps tag-like values such as "es" or "pt-BR" to their English
// name. Anything else is returned unchanged.
func DisplayName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !looksLikeTag(s) {
		return s
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return s
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return s
}

func looksLikeTag(s string) bool {
	return len(s) <= 3 || strings.ContainsAny(s, "-_")
}
