package textsim

import "strings"

// WordContainment returns the fraction of shorter's words that appear, in
// order but not necessarily adjacent, inside longer. The metric is
// asymmetric and is zero when shorter has more words than longer.
func WordContainment(shorter, longer string) float64 {
	short := Words(shorter)
	long := Words(longer)
	if len(short) == 0 || len(short) > len(long) {
		return 0
	}

	matched := 0
	cursor := 0
	for _, word := range short {
		for k := cursor; k < len(long); k++ {
			if long[k] == word {
				matched++
				cursor = k + 1
				break
			}
		}
		if cursor >= len(long) {
			break
		}
	}
	return float64(matched) / float64(len(short))
}

// EllipsisMatch splits shorter into anchor phrases around its ellipsis
// markers and reports the fraction of anchors found in order inside longer.
// ok is false when shorter has no ellipsis or no usable anchors.
func EllipsisMatch(shorter, longer string) (ratio float64, ok bool) {
	if !HasEllipsis(shorter) {
		return 0, false
	}

	anchors := make([]string, 0, 4)
	for _, part := range ellipsisPattern.Split(shorter, -1) {
		if normalized := Normalize(part); normalized != "" {
			anchors = append(anchors, normalized)
		}
	}
	if len(anchors) == 0 {
		return 0, false
	}

	// Pad so anchors only match on word boundaries.
	target := " " + Normalize(longer) + " "
	offset := 0
	found := 0
	for _, anchor := range anchors {
		needle := " " + anchor + " "
		idx := strings.Index(target[offset:], needle)
		if idx < 0 {
			continue
		}
		found++
		// Leave the trailing space in place for the next anchor.
		offset += idx + len(needle) - 1
	}
	return float64(found) / float64(len(anchors)), true
}

// BigramContainment is |bigrams(shorter) ∩ bigrams(longer)| / |bigrams(shorter)|.
func BigramContainment(shorter, longer string) float64 {
	short := bigramSet(Words(shorter))
	if len(short) == 0 {
		return 0
	}
	long := bigramSet(Words(longer))

	shared := 0
	for bigram := range short {
		if _, ok := long[bigram]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(short))
}

func bigramSet(words []string) map[string]struct{} {
	if len(words) < 2 {
		return nil
	}
	out := make(map[string]struct{}, len(words)-1)
	for i := 0; i+1 < len(words); i++ {
		out[words[i]+" "+words[i+1]] = struct{}{}
	}
	return out
}
