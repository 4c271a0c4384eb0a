package langdetect

import "testing"

func TestDetect_ShortQuoteIsUntagged(t *testing.T) {
	t.Parallel()

	d := New([]string{"en", "fr"})
	if got := d.Detect(`"No comment."`); got != "" {
		t.Fatalf("expected empty code for short quote, got %q", got)
	}
	if got := d.Detect("   "); got != "" {
		t.Fatalf("expected empty code for blank text, got %q", got)
	}
}

func TestNew_IgnoresUnknownCodes(t *testing.T) {
	t.Parallel()

	if d := New([]string{"en", "xx", " FR "}); len(d.languages) != 2 {
		t.Fatalf("expected two languages, got %d", len(d.languages))
	}
	if d := New([]string{"en"}); d.languages != nil {
		t.Fatalf("a single language must fall back to all languages")
	}
}

func TestQuoteBody(t *testing.T) {
	t.Parallel()

	if got := quoteBody(`“We will win... together”`); got != "We will win  together" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestPrimarySubtag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" EN_us ": "en",
		"pt-BR":   "pt",
		"de":      "de",
		"e1":      "",
		"-fr":     "",
		"":        "",
	}
	for in, want := range cases {
		if got := primarySubtag(in); got != want {
			t.Fatalf("primarySubtag(%q) = %q, want %q", in, got, want)
		}
	}
	if d := New([]string{"en-GB", "es_MX"}); len(d.languages) != 2 {
		t.Fatalf("expected regional tags to map to two languages, got %d", len(d.languages))
	}
}

func TestDetect_TagsConfiguredLanguages(t *testing.T) {
	t.Parallel()

	d := New([]string{"en", "fr"})
	if got := d.Detect(`"We are going to rebuild every bridge in this city before the winter comes."`); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if got := d.Detect("Nous allons reconstruire tous les ponts de la ville avant l'arrivée de l'hiver."); got != "fr" {
		t.Fatalf("expected fr, got %q", got)
	}
}
