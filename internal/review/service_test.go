package review

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db/memstore"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/names"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/resolver"
)

const clintonID = int64(7)

func seedClinton(store *memstore.Store) {
	store.SeedPerson(db.PersonRecord{PersonID: clintonID, CanonicalName: "William Clinton"})
	store.SeedAlias(db.AliasRecord{
		PersonID:        clintonID,
		Alias:           "William Clinton",
		AliasNormalized: "william clinton",
		AliasType:       "full_name",
		Confidence:      1,
		Source:          "extraction",
	})
	store.SeedPhonetics(resolver.PhoneticRows(clintonID, names.SplitNormalized("william clinton"))...)
}

// queueSurname sends "Clinton" through the resolver and stores a quote for
// the resulting queue item the way ingestion does.
func queueSurname(t *testing.T, store *memstore.Store, provisional bool) (queueItemID, quoteID int64) {
	t.Helper()
	ctx := context.Background()

	svc := resolver.NewService(store, resolver.Options{ProvisionalAttach: provisional}, zerolog.Nop())
	resolution, err := svc.ResolvePerson(ctx, "Clinton", "", "at the rally", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	pending, ok := resolution.(resolver.PendingReview)
	if !ok {
		t.Fatalf("expected PendingReview, got %T", resolution)
	}

	err = store.InTx(ctx, func(tx db.StoreTx) error {
		var owner *int64
		if id := resolution.AttachTo(); id != 0 {
			owner = &id
		}
		quote, err := tx.InsertQuote(ctx, db.NewQuote{
			PersonID:       owner,
			Text:           "We will balance the budget.",
			TextNormalized: "we will balance the budget",
			SeenAt:         globaltime.UTC(),
		})
		if err != nil {
			return err
		}
		if owner != nil {
			if err := tx.IncrementPersonQuoteCount(ctx, *owner, quote.FirstSeenAt); err != nil {
				return err
			}
		}
		quoteID = quote.QuoteID
		return tx.SetQueueItemQuote(ctx, pending.QueueItemID, quote.QuoteID)
	})
	if err != nil {
		t.Fatalf("store quote: %v", err)
	}
	return pending.QueueItemID, quoteID
}

func personByID(t *testing.T, store *memstore.Store, id int64) db.PersonRecord {
	t.Helper()
	person, err := store.GetPerson(context.Background(), id)
	if err != nil {
		t.Fatalf("get person %d: %v", id, err)
	}
	return person
}

func TestMerge_AddsAliasMovesQuoteAndAudits(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedClinton(store)
	itemID, quoteID := queueSurname(t, store, false)
	svc := NewService(store, zerolog.Nop())

	outcome, err := svc.Merge(context.Background(), itemID, " editor ")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if outcome.PersonID != clintonID || outcome.Status != db.QueueStatusMerged {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	aliases := store.Aliases(clintonID)
	if len(aliases) != 2 || aliases[1].AliasNormalized != "clinton" || aliases[1].Source != "user" || aliases[1].AliasType != "variant" {
		t.Fatalf("expected user variant alias, got %+v", aliases)
	}

	quote, err := store.GetQuote(context.Background(), quoteID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if quote.PersonID == nil || *quote.PersonID != clintonID {
		t.Fatalf("expected quote to move to %d, got %v", clintonID, quote.PersonID)
	}
	if got := personByID(t, store, clintonID).QuoteCount; got != 1 {
		t.Fatalf("expected quote_count 1, got %d", got)
	}

	merges := store.Merges()
	if len(merges) != 1 || merges[0].MergedBy != "user" || merges[0].QueueItemID == nil || *merges[0].QueueItemID != itemID {
		t.Fatalf("expected one user merge row, got %+v", merges)
	}

	item, err := store.GetQueueItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("get queue item: %v", err)
	}
	if item.Status != db.QueueStatusMerged || item.ResolvedBy == nil || *item.ResolvedBy != "editor" || item.ResolvedAt == nil {
		t.Fatalf("unexpected queue item %+v", item)
	}

	if _, err := svc.Merge(context.Background(), itemID, "editor"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second merge, got %v", err)
	}
	if got := len(store.Merges()); got != 1 {
		t.Fatalf("second merge must not audit again, got %d rows", got)
	}
}

func TestReject_CreatesPersonAndRecountsPreviousOwner(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedClinton(store)
	itemID, quoteID := queueSurname(t, store, true)
	if got := personByID(t, store, clintonID).QuoteCount; got != 1 {
		t.Fatalf("expected provisional quote_count 1, got %d", got)
	}

	outcome, err := NewService(store, zerolog.Nop()).Reject(context.Background(), itemID, "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if outcome.PersonID == clintonID || outcome.Status != db.QueueStatusNewPerson {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	created := personByID(t, store, outcome.PersonID)
	if created.CanonicalName != "Clinton" || created.QuoteCount != 1 {
		t.Fatalf("unexpected new person %+v", created)
	}
	if got := personByID(t, store, clintonID).QuoteCount; got != 0 {
		t.Fatalf("expected previous owner recount to 0, got %d", got)
	}

	quote, err := store.GetQuote(context.Background(), quoteID)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if quote.PersonID == nil || *quote.PersonID != outcome.PersonID {
		t.Fatalf("expected quote to move to new person, got %v", quote.PersonID)
	}

	item, err := store.GetQueueItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("get queue item: %v", err)
	}
	if item.ResolvedBy == nil || *item.ResolvedBy != "user" {
		t.Fatalf("expected default reviewer, got %+v", item.ResolvedBy)
	}
	if len(store.Merges()) != 0 {
		t.Fatalf("reject must not write merge rows")
	}
}

func TestMerge_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedClinton(store)
	itemID, _ := queueSurname(t, store, false)
	store.FailOn("ResolveQueueItem", errors.New("connection reset"))

	if _, err := NewService(store, zerolog.Nop()).Merge(context.Background(), itemID, "editor"); err == nil {
		t.Fatalf("expected error")
	}
	if got := len(store.Aliases(clintonID)); got != 1 {
		t.Fatalf("expected alias insert rolled back, got %d aliases", got)
	}
	if got := len(store.Merges()); got != 0 {
		t.Fatalf("expected merge row rolled back, got %d", got)
	}
}

func TestSkip_KeepsItemPending(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedClinton(store)
	itemID, _ := queueSurname(t, store, false)
	svc := NewService(store, zerolog.Nop())

	before, err := store.GetQueueItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("get queue item: %v", err)
	}
	if err := svc.Skip(context.Background(), itemID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	after, err := store.GetQueueItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("get queue item: %v", err)
	}
	if after.Status != db.QueueStatusPending || after.CreatedAt.Before(before.CreatedAt) {
		t.Fatalf("unexpected skipped item %+v", after)
	}

	if err := svc.Skip(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBatch_IsolatesFailures(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	seedClinton(store)
	first, _ := queueSurname(t, store, false)
	second, _ := queueSurname(t, store, false)
	svc := NewService(store, zerolog.Nop())

	result, err := svc.Batch(context.Background(), "Merge", []int64{first, 999, first, second}, "editor")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if result.BatchID == "" || result.Action != ActionMerge {
		t.Fatalf("unexpected batch header %+v", result)
	}
	if result.Succeeded != 2 || result.Failed != 2 || len(result.Results) != 4 {
		t.Fatalf("unexpected batch counts %+v", result)
	}
	if !result.Results[0].OK || result.Results[1].OK || result.Results[2].OK || !result.Results[3].OK {
		t.Fatalf("unexpected per-item results %+v", result.Results)
	}

	page, err := svc.ListPending(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if page.Total != 0 || page.Limit != defaultPageSize {
		t.Fatalf("expected empty queue, got %+v", page)
	}
	if got := len(store.Merges()); got != 2 {
		t.Fatalf("expected one merge row per merged item, got %d", got)
	}

	if _, err := svc.Batch(context.Background(), "skip", []int64{first}, "editor"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestMerge_FoldsHeldQuoteIntoExistingCanonical(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	seedClinton(store)
	first, firstQuote := queueSurname(t, store, false)
	second, secondQuote := queueSurname(t, store, false)
	err := store.InTx(ctx, func(tx db.StoreTx) error {
		if err := tx.SetQuoteSourceURLs(ctx, firstQuote, []string{"https://news.example/a"}, globaltime.UTC()); err != nil {
			return err
		}
		if err := tx.SetQuoteSourceURLs(ctx, secondQuote, []string{"https://news.example/b"}, globaltime.UTC()); err != nil {
			return err
		}
		return tx.LinkQuoteArticle(ctx, secondQuote, 42)
	})
	if err != nil {
		t.Fatalf("seed urls: %v", err)
	}
	svc := NewService(store, zerolog.Nop())

	if _, err := svc.Merge(ctx, first, "editor"); err != nil {
		t.Fatalf("merge first: %v", err)
	}
	outcome, err := svc.Merge(ctx, second, "editor")
	if err != nil {
		t.Fatalf("merge second: %v", err)
	}
	if outcome.QuoteID == nil || *outcome.QuoteID != firstQuote {
		t.Fatalf("expected the queued quote to end under %d, got %v", firstQuote, outcome.QuoteID)
	}

	canonical := 0
	for _, quote := range store.Quotes() {
		if quote.PersonID != nil && *quote.PersonID == clintonID && quote.IsCanonical() {
			canonical++
		}
	}
	if canonical != 1 {
		t.Fatalf("expected one canonical row for the repeated statement, got %d", canonical)
	}
	if got := personByID(t, store, clintonID).QuoteCount; got != 1 {
		t.Fatalf("expected quote_count 1, got %d", got)
	}

	folded, err := store.GetQuote(ctx, secondQuote)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if folded.CanonicalQuoteID == nil || *folded.CanonicalQuoteID != firstQuote {
		t.Fatalf("expected %d to become a variant of %d, got %+v", secondQuote, firstQuote, folded)
	}
	survivor, err := store.GetQuote(ctx, firstQuote)
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if len(survivor.SourceURLs) != 2 {
		t.Fatalf("expected source urls to be unioned, got %v", survivor.SourceURLs)
	}
	if ids := store.ArticleIDs(firstQuote); len(ids) != 1 || ids[0] != 42 {
		t.Fatalf("expected article link to move to the survivor, got %v", ids)
	}

	rels := store.Relationships()
	if len(rels) != 1 || rels[0].QuoteIDB == nil || *rels[0].QuoteIDB != secondQuote || rels[0].DecisionPath != "exact_text" {
		t.Fatalf("expected one exact_text relationship row, got %+v", rels)
	}
}
