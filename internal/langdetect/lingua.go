// Package langdetect tags quote text with an ISO 639-1 language code.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

const (
	// Quotes shorter than this many letters are left untagged.
	minLetters = 12

	minRelativeDistance = 0.1
)

// Detector lazily builds one lingua detector restricted to a language set.
type Detector struct {
	languages []lingua.Language

	once     sync.Once
	detector lingua.LanguageDetector
}

// New restricts detection to the given ISO 639-1 codes. Unknown codes are
// ignored; fewer than two usable codes means every language lingua knows.
func New(isoCodes []string) *Detector {
	wanted := make(map[string]struct{}, len(isoCodes))
	for _, code := range isoCodes {
		if code = primarySubtag(code); code != "" {
			wanted[code] = struct{}{}
		}
	}

	d := &Detector{}
	for _, language := range lingua.AllLanguages() {
		if _, ok := wanted[strings.ToLower(language.IsoCode639_1().String())]; ok {
			d.languages = append(d.languages, language)
		}
	}
	if len(d.languages) < 2 {
		d.languages = nil
	}
	return d
}

// Detect returns the language code for text, or "" when the text is too
// short or lingua is not confident.
func (d *Detector) Detect(text string) string {
	sample := quoteBody(text)
	if sample == "" {
		return ""
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return ""
	}

	language, exists := d.get().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func (d *Detector) get() lingua.LanguageDetector {
	d.once.Do(func() {
		var builder lingua.LanguageDetectorBuilder
		if len(d.languages) > 0 {
			builder = lingua.NewLanguageDetectorBuilder().FromLanguages(d.languages...)
		} else {
			builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
		}
		d.detector = builder.
			WithMinimumRelativeDistance(minRelativeDistance).
			WithPreloadedLanguageModels().
			Build()
	})
	return d.detector
}

// quoteBody drops surrounding quotation marks and elisions, which carry no
// language signal.
func quoteBody(text string) string {
	body := strings.TrimSpace(text)
	body = strings.Trim(body, "\"'“”‘’«»„")
	body = strings.ReplaceAll(body, "...", " ")
	body = strings.ReplaceAll(body, "…", " ")
	return strings.TrimSpace(body)
}

// primarySubtag reduces a language tag such as "EN_us" or "pt-BR" to its
// lowercase primary subtag. Tags with non-letter subtags yield "".
func primarySubtag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	tag = strings.ReplaceAll(tag, "_", "-")
	primary, _, _ := strings.Cut(tag, "-")
	if primary == "" {
		return ""
	}
	for _, r := range primary {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return primary
}
