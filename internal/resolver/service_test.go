package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db/memstore"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/names"
)

func seedKnownPerson(store *memstore.Store, id int64, name, disambiguation string) {
	store.SeedPerson(db.PersonRecord{PersonID: id, CanonicalName: name, Disambiguation: disambiguation})
	normalized := names.NormalizeName(name)
	store.SeedAlias(db.AliasRecord{
		PersonID:        id,
		Alias:           name,
		AliasNormalized: normalized,
		AliasType:       "full_name",
		Confidence:      1,
		Source:          "extraction",
	})
	store.SeedPhonetics(PhoneticRows(id, names.SplitNormalized(normalized))...)
}

func newTestService(store *memstore.Store, provisional bool) *Service {
	return NewService(store, Options{ProvisionalAttach: provisional}, zerolog.Nop())
}

func TestResolvePerson_SharedSurnameCreatesNewPerson(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 1, "Jesse Jackson", "civil rights leader")

	resolution, err := newTestService(store, true).ResolvePerson(context.Background(), "Jaren Jackson Jr.", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created, ok := resolution.(NewPerson)
	if !ok {
		t.Fatalf("expected NewPerson, got %T %+v", resolution, resolution)
	}
	if created.PersonID == 1 {
		t.Fatalf("Jaren Jackson must never attach to Jesse Jackson")
	}

	aliases := store.Aliases(created.PersonID)
	if len(aliases) != 1 || aliases[0].AliasType != "full_name" || aliases[0].AliasNormalized != "jaren jackson" {
		t.Fatalf("unexpected aliases for new person: %+v", aliases)
	}
	if len(store.Phonetics(created.PersonID)) == 0 {
		t.Fatalf("expected phonetic keys for new person")
	}
	persons := store.Persons()
	if len(persons) != 2 || persons[1].CanonicalName != "Jaren Jackson Jr." {
		t.Fatalf("unexpected persons %+v", persons)
	}
}

func TestResolvePerson_NicknameResolvesToKnownPerson(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 1, "Jesse Jackson", "")
	seedKnownPerson(store, 7, "William Clinton", "42nd President of the United States")

	resolution, err := newTestService(store, true).ResolvePerson(context.Background(), "Bill Clinton", "Former President", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, ok := resolution.(Resolved)
	if !ok {
		t.Fatalf("expected Resolved, got %T %+v", resolution, resolution)
	}
	if resolved.PersonID != 7 || resolved.Via != viaPhonetic || !resolved.AliasAdded {
		t.Fatalf("unexpected resolution %+v", resolved)
	}

	aliases := store.Aliases(7)
	if len(aliases) != 2 || aliases[1].AliasNormalized != "bill clinton" || aliases[1].AliasType != "nickname" {
		t.Fatalf("expected nickname alias, got %+v", aliases)
	}
	merges := store.Merges()
	if len(merges) != 1 || merges[0].MergedBy != "auto" || merges[0].SurvivingPersonID != 7 {
		t.Fatalf("expected one automatic merge audit row, got %+v", merges)
	}

	// The new alias makes the next lookup exact and writes no further audit row.
	again, err := newTestService(store, true).ResolvePerson(context.Background(), "Bill Clinton", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := again.(Resolved); !ok || r.Via != viaExactAlias || r.AliasAdded {
		t.Fatalf("expected exact alias resolution, got %+v", again)
	}
	if got := len(store.Merges()); got != 1 {
		t.Fatalf("expected no extra merge rows, got %d", got)
	}
}

func TestResolvePerson_SurnameOnlyGoesToReview(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 7, "William Clinton", "")

	resolution, err := newTestService(store, true).ResolvePerson(
		context.Background(), "Clinton", "", "said at the rally",
		&db.ArticleRecord{ArticleID: 3, URL: "https://news.example/rally"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, ok := resolution.(PendingReview)
	if !ok {
		t.Fatalf("expected PendingReview, got %T %+v", resolution, resolution)
	}
	if pending.CandidateID == nil || *pending.CandidateID != 7 || pending.ProvisionalPersonID != 7 {
		t.Fatalf("expected provisional attach to 7, got %+v", pending)
	}
	if resolution.AttachTo() != 7 {
		t.Fatalf("expected quote to attach provisionally to 7")
	}

	items, total, err := store.ListPendingQueue(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if total != 1 || items[0].QueueItemID != pending.QueueItemID {
		t.Fatalf("unexpected queue %+v", items)
	}
	if items[0].NewContext != "said at the rally" || items[0].CandidateName == nil || *items[0].CandidateName != "William Clinton" {
		t.Fatalf("unexpected queue item %+v", items[0])
	}
	if len(items[0].MatchSignals) == 0 {
		t.Fatalf("expected match signals on queue item")
	}
	if got := len(store.Persons()); got != 1 {
		t.Fatalf("review band must not create a person, got %d persons", got)
	}
}

func TestResolvePerson_HoldsQuoteUnattachedWithoutProvisionalAttach(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 7, "William Clinton", "")

	resolution, err := newTestService(store, false).ResolvePerson(context.Background(), "Clinton", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, ok := resolution.(PendingReview)
	if !ok {
		t.Fatalf("expected PendingReview, got %T", resolution)
	}
	if pending.ProvisionalPersonID != 0 || resolution.AttachTo() != 0 {
		t.Fatalf("expected unattached quote, got %+v", pending)
	}
}

func TestResolvePerson_FuzzyTypoGoesToReview(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 4, "Hillary Clinton", "")

	resolution, err := newTestService(store, true).ResolvePerson(context.Background(), "Hilary Clintn", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, ok := resolution.(PendingReview)
	if !ok {
		t.Fatalf("expected misspelled name to be queued, got %T %+v", resolution, resolution)
	}
	if pending.Confidence >= DefaultAutoThreshold || pending.Confidence < DefaultReviewThreshold {
		t.Fatalf("expected review-band confidence, got %v", pending.Confidence)
	}
	if got := len(store.Merges()); got != 0 {
		t.Fatalf("expected no automatic merge for a misspelled surname, got %d", got)
	}
	if got := len(store.Aliases(4)); got != 1 {
		t.Fatalf("expected no alias to be learned before review, got %d", got)
	}
}

func TestResolvePerson_FuzzySurnameMissedByPhoneticsGoesToReview(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 9, "Bernie Sanders", "")

	// SMTR and SNTR share no Double Metaphone code; only trigram blocking finds the person.
	resolution, err := newTestService(store, true).ResolvePerson(context.Background(), "Bernie Samders", "", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, ok := resolution.(PendingReview)
	if !ok {
		t.Fatalf("expected PendingReview, got %T %+v", resolution, resolution)
	}
	if pending.CandidateID == nil || *pending.CandidateID != 9 {
		t.Fatalf("expected candidate 9, got %+v", pending)
	}

	items, _, err := store.ListPendingQueue(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one queue item, got %d", len(items))
	}
	var signals map[string]any
	if err := json.Unmarshal(items[0].MatchSignals, &signals); err != nil {
		t.Fatalf("decode match signals: %v", err)
	}
	if signals["discovered_via"] != viaFuzzy {
		t.Fatalf("expected fuzzy discovery signal, got %v", signals)
	}
	if got := len(store.Merges()); got != 0 {
		t.Fatalf("expected no automatic merge, got %d", got)
	}
}

func TestResolvePerson_SameNameTwiceIsAmbiguous(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedKnownPerson(store, 1, "John Smith", "Ohio state senator")
	seedKnownPerson(store, 2, "John Smith", "British explorer")

	resolution, err := newTestService(store, true).ResolvePerson(context.Background(), "Sen. John Smith", "State Senator", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending, ok := resolution.(PendingReview)
	if !ok {
		t.Fatalf("expected PendingReview for shared exact alias, got %T", resolution)
	}
	if pending.CandidateID == nil || *pending.CandidateID != 1 {
		t.Fatalf("expected title to favour person 1, got %+v", pending)
	}
}

func TestResolvePerson_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.FailOn("InsertPhonetics", errors.New("unique violation"))

	if _, err := newTestService(store, true).ResolvePerson(context.Background(), "Ada Lovelace", "", "", nil); err == nil {
		t.Fatalf("expected error")
	}
	if got := len(store.Persons()); got != 0 {
		t.Fatalf("expected no persons after rollback, got %d", got)
	}
}

func TestResolvePerson_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	if _, err := newTestService(memstore.New(), true).ResolvePerson(context.Background(), " ... , ", "", "", nil); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
