package names

import "testing"

func TestNormalizeName_StripsHonorificsAndSuffixes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Dr. Martin Luther King Jr.":    "martin luther king",
		"  Senator   Ted  Cruz ":        "ted cruz",
		"Vice President Kamala Harris":  "kamala harris",
		"Rev. Jesse Jackson, Sr.":       "jesse jackson",
		"Jaren Jackson Jr.":             "jaren jackson",
		"President Biden":               "biden",
		"José Ramírez III":              "jose ramirez",
		"Sen. Patrick J. Leahy":         "patrick j leahy",
		"Conan O’Brien":                 "conan o'brien",
		"President":                     "president",
	}
	for input, want := range cases {
		if got := NormalizeName(input); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeName_KeepsTitleLikeNames(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Lady Gaga":                      "lady gaga",
		"Major Garrett":                  "major garrett",
		"Del Shannon":                    "del shannon",
		"Sandy V":                        "sandy v",
		"Justice Ginsburg":               "justice ginsburg",
		"Chief Justice John Roberts":     "john roberts",
		"Major General Jane Smith-Jones": "jane smith-jones",
	}
	for input, want := range cases {
		if got := NormalizeName(input); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", input, got, want)
		}
	}
	if got := DisplayName("Major Garrett"); got != "Major Garrett" {
		t.Fatalf("unexpected display name: %q", got)
	}
	if got := DisplayName("Judge Amy Coney Barrett"); got != "Amy Coney Barrett" {
		t.Fatalf("unexpected display name: %q", got)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	parts := Split("Dr. Martin Luther King Jr.")
	if parts.First != "martin" || parts.Middle != "luther" || parts.Last != "king" {
		t.Fatalf("unexpected parts: %+v", parts)
	}

	single := Split("Madonna")
	if single.First != "" || single.Last != "madonna" {
		t.Fatalf("expected last-name-only split, got %+v", single)
	}

	two := Split("Bill Clinton")
	if two.First != "bill" || two.Middle != "" || two.Last != "clinton" {
		t.Fatalf("unexpected two-part split: %+v", two)
	}

	many := Split("Hillary Diane Rodham Clinton")
	if many.Middle != "diane rodham" || many.Full() != "hillary diane rodham clinton" {
		t.Fatalf("unexpected multi-part split: %+v", many)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := DisplayName("Dr.  Martin Luther King Jr."); got != "Martin Luther King Jr." {
		t.Fatalf("unexpected display name: %q", got)
	}
}

func TestFirstNameCompatible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"jesse", "jaren", false},
		{"bill", "william", true},
		{"", "john", true},
		{"j.", "john", true},
		{"j", "jesse", true},
		{"k", "john", false},
		{"john", "john", true},
		{"bob", "robert", true},
		{"jim", "james", true},
		{"mike", "michael", true},
		{"bob", "william", false},
		{"Bill", "WILL", true},
	}
	for _, tc := range cases {
		if got := FirstNameCompatible(tc.a, tc.b); got != tc.want {
			t.Fatalf("FirstNameCompatible(%q, %q) = %t, want %t", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFirstNamesClose(t *testing.T) {
	t.Parallel()

	if !FirstNamesClose("jhon", "john") {
		t.Fatalf("expected transposition typo to be close")
	}
	if !FirstNamesClose("micheal", "michael") {
		t.Fatalf("expected transposition typo to be close")
	}
	if FirstNamesClose("jesse", "jaren") {
		t.Fatalf("expected unrelated first names to stay apart")
	}
}

func TestCodes(t *testing.T) {
	t.Parallel()

	upper := Codes("CLINTON")
	lower := Codes("clinton")
	if len(upper) == 0 || len(lower) == 0 {
		t.Fatalf("expected phonetic codes for clinton")
	}
	if upper[0] != lower[0] {
		t.Fatalf("expected case-insensitive codes, got %v and %v", upper, lower)
	}

	apostrophe := Codes("o'brien")
	plain := Codes("obrien")
	if len(apostrophe) == 0 || apostrophe[0] != plain[0] {
		t.Fatalf("expected apostrophes to be ignored, got %v and %v", apostrophe, plain)
	}

	if Codes("") != nil {
		t.Fatalf("expected no codes for empty part")
	}
}

func TestKeys_SkipsInitials(t *testing.T) {
	t.Parallel()

	keys := Keys(Split("Patrick J. Leahy"))
	for _, key := range keys {
		if key.Part == "j" {
			t.Fatalf("expected initials to be skipped, got %+v", key)
		}
	}

	var sawFirst, sawLast bool
	for _, key := range keys {
		switch key.PartType {
		case PartFirst:
			sawFirst = key.Part == "patrick"
		case PartLast:
			sawLast = key.Part == "leahy"
		}
	}
	if !sawFirst || !sawLast {
		t.Fatalf("expected first and last name keys, got %+v", keys)
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	if Similarity("clinton", "clinton") != 1 {
		t.Fatalf("expected identical names to score 1")
	}
	if Similarity("clinton", "") != 0 {
		t.Fatalf("expected empty name to score 0")
	}
	if s := Similarity("jackson", "jaxson"); s < 0.8 {
		t.Fatalf("expected close surnames to score high, got %f", s)
	}
}
