package names

import (
	"strings"

	"github.com/antzucaro/matchr"
)

type PartType string

const (
	PartFirst  PartType = "first"
	PartMiddle PartType = "middle"
	PartLast   PartType = "last"
)

// PhoneticKey is one sound-alike code for one name part.
type PhoneticKey struct {
	Part     string
	Code     string
	PartType PartType
}

// Codes returns the distinct Double Metaphone codes of a single name part.
func Codes(part string) []string {
	cleaned := strings.ReplaceAll(cleanToken(part), "'", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if cleaned == "" {
		return nil
	}

	primary, alternate := matchr.DoubleMetaphone(cleaned)
	codes := make([]string, 0, 2)
	if primary != "" {
		codes = append(codes, primary)
	}
	if alternate != "" && alternate != primary {
		codes = append(codes, alternate)
	}
	return codes
}

// Keys produces the phonetic index rows for every part of a name. Initials
// carry no useful sound and are skipped.
func Keys(parts Parts) []PhoneticKey {
	keys := make([]PhoneticKey, 0, 6)
	add := func(part string, partType PartType) {
		if part == "" || isInitial(part) {
			return
		}
		for _, code := range Codes(part) {
			keys = append(keys, PhoneticKey{Part: part, Code: code, PartType: partType})
		}
	}

	add(parts.First, PartFirst)
	for _, middle := range parts.MiddleTokens() {
		add(middle, PartMiddle)
	}
	add(parts.Last, PartLast)
	return keys
}

// LastNameCodes is the lookup key set used for candidate retrieval.
func LastNameCodes(parts Parts) []string {
	return Codes(parts.Last)
}
