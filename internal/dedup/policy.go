// Package dedup decides whether an incoming quote is a statement already
// stored for the same speaker and writes the outcome.
package dedup

import (
	"github.com/Bitstream73/QuoteLog02-sub000/internal/textsim"
)

type Decision string

const (
	DecisionAutoMerge Decision = "auto_merge"
	DecisionLLMVerify Decision = "llm_verify"
	DecisionNoMatch   Decision = "no_match"
)

// DecisionExactText is recorded when the normalized text already exists
// for the speaker. It never comes out of Classify.
const DecisionExactText Decision = "exact_text"

const (
	autoMergeContainment = 0.90
	autoMergeEllipsis    = 0.80
	verifyContainment    = 0.75
	verifyBigram         = 0.70
)

const (
	CanonicalPolicyKeepExisting   = "keep_existing"
	CanonicalPolicyPreferComplete = "prefer_complete"
)

const (
	relationshipIdentical = "identical"
	relationshipSubset    = "subset"
)

// Classification is the outcome of comparing one incoming text with one
// stored candidate. Metrics are taken shorter-against-longer.
type Classification struct {
	Decision          Decision
	WordContainment   float64
	EllipsisRatio     float64
	EllipsisApplies   bool
	BigramContainment float64
	// IncomingShorter is true when the incoming text is the shorter side.
	IncomingShorter   bool
}

// Classify compares incoming with candidate and picks a decision band.
func Classify(incoming, candidate string) Classification {
	shorter, longer, swapped := textsim.ShorterLonger(incoming, candidate)

	c := Classification{
		WordContainment:   textsim.WordContainment(shorter, longer),
		BigramContainment: textsim.BigramContainment(shorter, longer),
		IncomingShorter:   !swapped,
	}
	c.EllipsisRatio, c.EllipsisApplies = textsim.EllipsisMatch(shorter, longer)

	switch {
	case c.WordContainment > autoMergeContainment:
		c.Decision = DecisionAutoMerge
	case c.EllipsisApplies && c.EllipsisRatio > autoMergeEllipsis:
		c.Decision = DecisionAutoMerge
	case c.WordContainment > verifyContainment || c.BigramContainment > verifyBigram:
		c.Decision = DecisionLLMVerify
	default:
		c.Decision = DecisionNoMatch
	}
	return c
}

// signals flattens the metrics into the audit map stored with decisions.
func (c Classification) signals() map[string]any {
	out := map[string]any{
		"word_containment":   c.WordContainment,
		"bigram_containment": c.BigramContainment,
		"incoming_shorter":   c.IncomingShorter,
	}
	if c.EllipsisApplies {
		out["ellipsis_ratio"] = c.EllipsisRatio
	}
	return out
}

// autoRelationship names what an automatic merge found: the same words, or
// one text trimmed from the other.
func autoRelationship(incoming, candidate string) string {
	if textsim.Normalize(incoming) == textsim.Normalize(candidate) {
		return relationshipIdentical
	}
	return relationshipSubset
}
