package dedup

import "testing"

const storedTaxQuote = "We are going to cut taxes for everyone in America this year, I promise you that, and I mean it"

func TestClassify_EllipsisFragmentAutoMerges(t *testing.T) {
	t.Parallel()

	c := Classify("...cut taxes for everyone in America...", storedTaxQuote)
	if c.Decision != DecisionAutoMerge {
		t.Fatalf("expected auto_merge, got %+v", c)
	}
	if !c.IncomingShorter {
		t.Fatalf("expected incoming fragment to be the shorter side")
	}
}

func TestClassify_EllipsisRatioAloneAutoMerges(t *testing.T) {
	t.Parallel()

	// One anchor is missing, so containment stays below the word threshold.
	c := Classify("We are going... cut taxes... for everyone... in America... this year... banana split", storedTaxQuote)
	if c.WordContainment > autoMergeContainment {
		t.Fatalf("expected containment at or below %.2f, got %f", autoMergeContainment, c.WordContainment)
	}
	if !c.EllipsisApplies || c.EllipsisRatio <= autoMergeEllipsis {
		t.Fatalf("expected ellipsis ratio above %.2f, got %+v", autoMergeEllipsis, c)
	}
	if c.Decision != DecisionAutoMerge {
		t.Fatalf("expected auto_merge, got %s", c.Decision)
	}
}

func TestClassify_GrayZoneGoesToVerifier(t *testing.T) {
	t.Parallel()

	c := Classify(
		"Our economy is strong and growing stronger every single day for all",
		"The economy is strong and getting stronger every single day",
	)
	if c.Decision != DecisionLLMVerify {
		t.Fatalf("expected llm_verify, got %+v", c)
	}
	if c.IncomingShorter {
		t.Fatalf("expected stored quote to be the shorter side")
	}
}

func TestClassify_UnrelatedIsNoMatch(t *testing.T) {
	t.Parallel()

	c := Classify("Totally unrelated remark about weather", "We will fight for every family")
	if c.Decision != DecisionNoMatch {
		t.Fatalf("expected no_match, got %+v", c)
	}
}

func TestAutoRelationship(t *testing.T) {
	t.Parallel()

	if got := autoRelationship("We will fight for every family.", "we will fight for every family"); got != relationshipIdentical {
		t.Fatalf("expected identical, got %s", got)
	}
	if got := autoRelationship("cut taxes now", "We will cut taxes now"); got != relationshipSubset {
		t.Fatalf("expected subset, got %s", got)
	}
}
