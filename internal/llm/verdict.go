// Package llm asks a language model whether two quotes by the same speaker
// are the same statement.
package llm

import "context"

type Relationship string

const (
	RelationshipIdentical  Relationship = "IDENTICAL"
	RelationshipSubset     Relationship = "SUBSET"
	RelationshipParaphrase Relationship = "PARAPHRASE"
	RelationshipSameTopic  Relationship = "SAME_TOPIC"
	RelationshipUnrelated  Relationship = "UNRELATED"
)

// DuplicateConfidence is the confidence a verdict must exceed to count as a
// duplicate.
const DuplicateConfidence = 0.7

// PairRequest carries the two texts to compare. QuoteA is the incoming
// quote, QuoteB the stored candidate.
type PairRequest struct {
	QuoteA  string
	QuoteB  string
	Speaker string
}

type Verdict struct {
	Relationship Relationship `json:"relationship"`
	Confidence   float64      `json:"confidence"`
	Canonical    string       `json:"canonical,omitempty"`
	Explanation  string       `json:"explanation,omitempty"`
	Degraded     bool         `json:"degraded,omitempty"`
}

// IsDuplicate reports whether the verdict is strong enough to merge.
func (v Verdict) IsDuplicate() bool {
	switch v.Relationship {
	case RelationshipIdentical, RelationshipSubset:
		return v.Confidence > DuplicateConfidence
	default:
		return false
	}
}

// DegradedVerdict is what callers use when verification fails.
func DegradedVerdict(reason string) Verdict {
	return Verdict{
		Relationship: RelationshipUnrelated,
		Confidence:   0.5,
		Explanation:  reason,
		Degraded:     true,
	}
}

// Completer sends one prompt to a model and returns its text answer.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
