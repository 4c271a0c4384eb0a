package textsim

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	ellipsisPattern = regexp.MustCompile(`\.{3,}|…`)

	quoteMarkReplacer = strings.NewReplacer(
		"‘", "'",
		"’", "'",
		"‚", "'",
		"‛", "'",
		"′", "'",
		"`", "'",
		"“", `"`,
		"”", `"`,
		"„", `"`,
		"‟", `"`,
		"«", `"`,
		"»", `"`,
	)
)

// Normalize lowercases text, unifies quote marks, turns every ellipsis into a
// word boundary and drops punctuation other than apostrophes and hyphens.
func Normalize(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return ""
	}
	lowered = quoteMarkReplacer.Replace(lowered)
	lowered = ellipsisPattern.ReplaceAllString(lowered, " ")

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == '\'' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Words returns the normalized word list of text.
func Words(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// HasEllipsis reports whether the raw text marks an omission.
func HasEllipsis(text string) bool {
	return ellipsisPattern.MatchString(text)
}

// ShorterLonger orders two raw texts by rune length. Ties keep the argument order.
func ShorterLonger(a, b string) (shorter, longer string, swapped bool) {
	if len([]rune(b)) < len([]rune(a)) {
		return b, a, true
	}
	return a, b, false
}

// CompareCompleteness orders two renderings of the same statement. It is
// positive when a is more complete than b: text without an ellipsis beats
// elided text, then more words win. Zero means neither is preferred.
func CompareCompleteness(a, b string) int {
	aElided, bElided := HasEllipsis(a), HasEllipsis(b)
	switch {
	case !aElided && bElided:
		return 1
	case aElided && !bElided:
		return -1
	}
	return len(Words(a)) - len(Words(b))
}
