package names

import "github.com/antzucaro/matchr"

// Similarity is the Jaro-Winkler similarity of two normalized name strings.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}

// EditDistance is the Levenshtein distance between two name parts.
func EditDistance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// FirstNamesClose accepts compatible first names plus single-edit typos
// ("jhon" / "john"), which the fuzzy stage tolerates.
func FirstNamesClose(a, b string) bool {
	if FirstNameCompatible(a, b) {
		return true
	}
	left := cleanToken(a)
	right := cleanToken(b)
	if len(left) < 4 || len(right) < 4 {
		return false
	}
	return EditDistance(left, right) <= 1 || isTransposition(left, right)
}

func isTransposition(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	diff := make([]int, 0, 2)
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			diff = append(diff, i)
			if len(diff) > 2 {
				return false
			}
		}
	}
	return len(diff) == 2 && diff[1] == diff[0]+1 && a[diff[0]] == b[diff[1]] && a[diff[1]] == b[diff[0]]
}
