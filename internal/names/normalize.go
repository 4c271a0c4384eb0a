package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parts is a normalized name decomposed for matching.
type Parts struct {
	First  string
	Middle string
	Last   string
}

// Full joins the parts back into the normalized name.
func (p Parts) Full() string {
	return strings.Join(strings.Fields(p.First+" "+p.Middle+" "+p.Last), " ")
}

// MiddleTokens returns the individual middle names.
func (p Parts) MiddleTokens() []string {
	return strings.Fields(p.Middle)
}

var honorifics = newLookup(
	"mr", "mrs", "ms", "miss", "mx", "dr", "doctor", "prof", "professor",
	"sen", "senator", "rep", "representative", "congressman", "congresswoman",
	"gov", "governor", "lt", "lieutenant", "president", "vice", "pres",
	"rev", "reverend", "fr", "father", "pastor", "rabbi", "imam", "bishop", "cardinal", "pope",
	"sir", "dame", "lord", "hon", "honorable", "honourable",
	"gen", "col", "colonel", "maj",
	"capt", "captain", "sgt", "sergeant", "adm", "admiral", "cmdr", "commander",
	"mayor", "secretary", "chancellor", "minister", "prime", "premier", "ambassador",
	"speaker", "chairman", "chairwoman", "attorney",
	"delegate", "assemblyman", "assemblywoman", "councilman", "councilwoman",
)

// Titles that double as given names or surnames ("Major Garrett", "Judge
// Reinhold") are only stripped ahead of a full name.
var nameLikeTitles = newLookup(
	"major", "chief", "justice", "judge", "general", "coach", "chair",
)

var generationalSuffixes = newLookup(
	"jr", "jnr", "sr", "snr", "ii", "iii", "iv", "vi", "2nd", "3rd", "4th",
	"esq", "phd", "md", "obe", "mbe", "kbe",
)

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type lookup map[string]struct{}

func newLookup(values ...string) lookup {
	out := make(lookup, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}

func (l lookup) has(value string) bool {
	_, ok := l[value]
	return ok
}

// NormalizeName strips honorifics and generational suffixes, folds
// diacritics, lowercases and collapses whitespace.
func NormalizeName(raw string) string {
	return strings.Join(coreTokens(tokenize(raw)), " ")
}

// Split normalizes raw and decomposes it into first/middle/last parts.
func Split(raw string) Parts {
	return SplitNormalized(NormalizeName(raw))
}

// SplitNormalized decomposes an already normalized name.
func SplitNormalized(normalized string) Parts {
	tokens := strings.Fields(normalized)
	switch len(tokens) {
	case 0:
		return Parts{}
	case 1:
		return Parts{Last: tokens[0]}
	case 2:
		return Parts{First: tokens[0], Last: tokens[1]}
	default:
		return Parts{
			First:  tokens[0],
			Middle: strings.Join(tokens[1:len(tokens)-1], " "),
			Last:   tokens[len(tokens)-1],
		}
	}
}

// DisplayName trims leading honorifics from raw but keeps the original casing
// and any generational suffix, for use as a person's canonical name.
func DisplayName(raw string) string {
	fields := strings.Fields(raw)
	for len(fields) > 0 && leadingTitle(cleanToken(fields[0]), len(fields)-1) {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func tokenize(raw string) []string {
	folded, _, err := transform.String(diacriticFolder, raw)
	if err != nil {
		folded = raw
	}

	fields := strings.Fields(strings.ToLower(folded))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, piece := range strings.FieldsFunc(field, isNameSeparator) {
			if token := cleanToken(piece); token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

func coreTokens(tokens []string) []string {
	for len(tokens) > 0 && leadingTitle(tokens[0], len(tokens)-1) {
		tokens = tokens[1:]
	}
	for len(tokens) > 1 && generationalSuffixes.has(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// leadingTitle reports whether token can be dropped when remaining name
// tokens follow it.
func leadingTitle(token string, remaining int) bool {
	switch {
	case honorifics.has(token):
		return remaining >= 1
	case nameLikeTitles.has(token):
		return remaining >= 2
	}
	return false
}

func isNameSeparator(r rune) bool {
	if r == '\'' || r == '-' || r == '.' || r == '’' {
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
}

// cleanToken drops periods and unifies apostrophes so "J." and "j" compare equal.
func cleanToken(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.ReplaceAll(token, "’", "'")
	token = strings.ReplaceAll(token, ".", "")
	return strings.Trim(token, "'-")
}
