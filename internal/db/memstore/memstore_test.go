package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

func TestInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	store := New()
	store.SeedPerson(db.PersonRecord{PersonID: 1, CanonicalName: "Ada Lovelace"})

	boom := errors.New("boom")
	err := store.InTx(context.Background(), func(tx db.StoreTx) error {
		personID := int64(1)
		if _, err := tx.InsertQuote(context.Background(), db.NewQuote{
			PersonID:       &personID,
			Text:           "The engine weaves algebraic patterns",
			TextNormalized: "the engine weaves algebraic patterns",
			SeenAt:         time.Unix(100, 0).UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := len(store.Quotes()); got != 0 {
		t.Fatalf("expected rolled back insert, found %d quotes", got)
	}
}

func TestInTx_FailOnInjectsError(t *testing.T) {
	t.Parallel()

	store := New()
	store.SeedPerson(db.PersonRecord{PersonID: 3, CanonicalName: "Grace Hopper"})
	injected := errors.New("constraint violation")
	store.FailOn("InsertAlias", injected)

	err := store.InTx(context.Background(), func(tx db.StoreTx) error {
		_, err := tx.InsertAlias(context.Background(), db.AliasRecord{PersonID: 3, Alias: "Grace", AliasNormalized: "grace"})
		return err
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	store.FailOn("InsertAlias", nil)
	err = store.InTx(context.Background(), func(tx db.StoreTx) error {
		_, err := tx.InsertAlias(context.Background(), db.AliasRecord{PersonID: 3, Alias: "Grace", AliasNormalized: "grace"})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error after clearing failure: %v", err)
	}
	if got := len(store.Aliases(3)); got != 1 {
		t.Fatalf("expected one alias, got %d", got)
	}
}

func TestRepointCanonical_KeepsGraphFlat(t *testing.T) {
	t.Parallel()

	store := New()
	personID := int64(1)
	store.SeedPerson(db.PersonRecord{PersonID: personID, CanonicalName: "Ada Lovelace"})
	store.SeedQuote(db.QuoteRecord{QuoteID: 1, PersonID: &personID, Text: "old"})
	oldID := int64(1)
	store.SeedQuote(db.QuoteRecord{QuoteID: 2, PersonID: &personID, Text: "variant", CanonicalQuoteID: &oldID})
	store.SeedQuote(db.QuoteRecord{QuoteID: 3, PersonID: &personID, Text: "new"})

	err := store.InTx(context.Background(), func(tx db.StoreTx) error {
		n, err := tx.RepointCanonical(context.Background(), 1, 3, time.Now())
		if err != nil {
			return err
		}
		if n != 2 {
			t.Fatalf("expected 2 repointed rows, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, quote := range store.Quotes() {
		switch quote.QuoteID {
		case 1, 2:
			if quote.CanonicalQuoteID == nil || *quote.CanonicalQuoteID != 3 {
				t.Fatalf("quote %d should point at 3, got %v", quote.QuoteID, quote.CanonicalQuoteID)
			}
		case 3:
			if !quote.IsCanonical() {
				t.Fatalf("quote 3 should stay canonical")
			}
		}
	}
}

func TestFuzzyAliasCandidates_TrigramBlocking(t *testing.T) {
	t.Parallel()

	store := New()
	store.SeedPerson(db.PersonRecord{PersonID: 7, CanonicalName: "Bill Clinton"})
	store.SeedAlias(db.AliasRecord{PersonID: 7, Alias: "Bill Clinton", AliasNormalized: "bill clinton"})
	store.SeedPerson(db.PersonRecord{PersonID: 9, CanonicalName: "Ada Lovelace"})
	store.SeedAlias(db.AliasRecord{PersonID: 9, Alias: "Ada Lovelace", AliasNormalized: "ada lovelace"})

	persons, err := store.FuzzyAliasCandidates(context.Background(), "clintn", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(persons) != 1 || persons[0].PersonID != 7 {
		t.Fatalf("expected only person 7, got %+v", persons)
	}
}
