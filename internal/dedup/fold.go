package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

// FoldCanonicalTx turns folded, a canonical quote whose text exactly matches
// survivor, into a variant of survivor. Source URLs, article links and labels
// move to survivor; variants of folded are repointed with it. Callers recount
// the owner's quote_count afterwards.
func FoldCanonicalTx(ctx context.Context, tx db.StoreTx, folded, survivor db.QuoteRecord, now time.Time) error {
	if folded.QuoteID == survivor.QuoteID {
		return nil
	}
	if !folded.IsCanonical() || !survivor.IsCanonical() {
		return fmt.Errorf("fold quote %d into %d: both quotes must be canonical", folded.QuoteID, survivor.QuoteID)
	}

	if _, err := tx.RepointCanonical(ctx, folded.QuoteID, survivor.QuoteID, now); err != nil {
		return err
	}
	if err := tx.CopyQuoteLinks(ctx, folded.QuoteID, survivor.QuoteID); err != nil {
		return err
	}

	urls := survivor.SourceURLs
	for _, url := range folded.SourceURLs {
		urls = unionURLs(urls, url)
	}
	if len(urls) != len(survivor.SourceURLs) {
		if err := tx.SetQuoteSourceURLs(ctx, survivor.QuoteID, urls, now); err != nil {
			return err
		}
	}

	foldedID := folded.QuoteID
	return tx.InsertQuoteRelationship(ctx, db.RelationshipRecord{
		QuoteIDA:         survivor.QuoteID,
		QuoteIDB:         &foldedID,
		Relationship:     relationshipIdentical,
		Confidence:       1,
		CanonicalQuoteID: survivor.QuoteID,
		DecisionPath:     string(DecisionExactText),
		IncomingText:     folded.Text,
		MatchSignals:     map[string]any{"folded_quote_id": folded.QuoteID, "exact_text": true},
		CreatedAt:        now,
	})
}
