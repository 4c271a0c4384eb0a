package resolver

import (
	"sort"
	"strings"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/names"
)

const (
	viaExactAlias = "exact_alias"
	viaPhonetic   = "phonetic_last_name"
	viaFuzzy      = "fuzzy_name"
)

// First-name evidence weights. Last-name similarity and first-name evidence
// each carry half of a candidate score.
const (
	firstIdentical = 1.0
	firstNickname  = 0.95
	firstInitial   = 0.75
	firstMissing   = 0.7
	firstTypo      = 0.78

	ambiguousExactScore   = 0.8
	titleBoost            = 0.05
	middleConflictPenalty = 0.15

	// Distance kept below the auto threshold when surnames differ.
	surnameMismatchMargin = 0.01
)

type scored struct {
	Person     db.PersonRecord
	Alias      string
	Score      float64
	Via        string
	FirstMatch string
	Signals    map[string]any
}

// firstEvidence grades how well two first names agree. ok is false when they
// rule each other out.
func firstEvidence(incoming, known string, allowTypo bool) (score float64, kind string, ok bool) {
	switch {
	case incoming == known && incoming != "":
		return firstIdentical, "identical", true
	case incoming == "" || known == "":
		return firstMissing, "missing", true
	case names.IsInitial(incoming) || names.IsInitial(known):
		if names.FirstNameCompatible(incoming, known) {
			return firstInitial, "initial", true
		}
		return 0, "", false
	case names.SameNicknameCluster(incoming, known):
		return firstNickname, "nickname", true
	case allowTypo && names.FirstNamesClose(incoming, known):
		return firstTypo, "typo", true
	}
	return 0, "", false
}

// middleConflict reports two middle names that cannot be the same person's.
func middleConflict(incoming, known names.Parts) bool {
	left := incoming.MiddleTokens()
	right := known.MiddleTokens()
	if len(left) == 0 || len(right) == 0 {
		return false
	}
	return !names.FirstNameCompatible(left[0], right[0])
}

// scoreAlias compares the incoming parts with one alias of a candidate.
func scoreAlias(incoming names.Parts, alias db.AliasRecord, via string, fuzzyCutoff float64) (float64, string, bool) {
	known := names.SplitNormalized(alias.AliasNormalized)
	if known.Last == "" {
		return 0, "", false
	}

	lastSim := names.Similarity(incoming.Last, known.Last)
	if via == viaFuzzy && lastSim < fuzzyCutoff {
		return 0, "", false
	}

	first, kind, ok := firstEvidence(incoming.First, known.First, via == viaFuzzy)
	if !ok {
		return 0, "", false
	}

	score := 0.5*lastSim + 0.5*first
	if middleConflict(incoming, known) {
		score -= middleConflictPenalty
	}
	return score, kind, true
}

// titleMatches reports whether the speaker title shares a word with the
// person's disambiguation note ("Senator" vs "U.S. Senator from Ohio").
func titleMatches(title, disambiguation string) bool {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(disambiguation) == "" {
		return false
	}
	known := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(disambiguation)) {
		word = strings.Trim(word, ".,;:()")
		if len(word) > 2 {
			known[word] = struct{}{}
		}
	}
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,;:()")
		if _, ok := known[word]; ok && len(word) > 2 {
			return true
		}
	}
	return false
}

// bestPerPerson keeps the highest score for each person, best first.
func bestPerPerson(all []scored) []scored {
	best := make(map[int64]scored, len(all))
	for _, candidate := range all {
		current, ok := best[candidate.Person.PersonID]
		if !ok || candidate.Score > current.Score {
			best[candidate.Person.PersonID] = candidate
		}
	}
	out := make([]scored, 0, len(best))
	for _, candidate := range best {
		out = append(out, candidate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Person.PersonID < out[j].Person.PersonID
	})
	return out
}

// aliasTypeFor names the alias row written for a confident non-exact match.
func aliasTypeFor(firstKind string) string {
	switch firstKind {
	case "nickname":
		return "nickname"
	case "initial":
		return "abbreviation"
	default:
		return "variant"
	}
}
