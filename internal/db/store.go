package db

import (
	"context"
	"fmt"
	"time"
)

// StoreTx is the typed write surface available inside one transaction.
// Services never see SQL; they compose these calls and the pool decides
// commit or rollback.
type StoreTx interface {
	FindCanonicalQuoteByText(ctx context.Context, personID int64, textNormalized string) (QuoteRecord, bool, error)
	LockQuote(ctx context.Context, quoteID int64) (QuoteRecord, error)
	InsertQuote(ctx context.Context, quote NewQuote) (QuoteRecord, error)
	SetQuoteSourceURLs(ctx context.Context, quoteID int64, urls []string, now time.Time) error
	RepointCanonical(ctx context.Context, fromCanonicalID, toCanonicalID int64, now time.Time) (int64, error)
	ReassignQuoteOwner(ctx context.Context, quoteID, personID int64, now time.Time) (int64, error)
	LinkQuoteArticle(ctx context.Context, quoteID, articleID int64) error
	CopyQuoteLinks(ctx context.Context, fromQuoteID, toQuoteID int64) error
	AddQuoteTopics(ctx context.Context, quoteID int64, topics []string) error
	AddQuoteKeywords(ctx context.Context, quoteID int64, keywords []string) error
	InsertQuoteRelationship(ctx context.Context, record RelationshipRecord) error

	LockPerson(ctx context.Context, personID int64) (PersonRecord, error)
	InsertPerson(ctx context.Context, person NewPerson) (PersonRecord, error)
	IncrementPersonQuoteCount(ctx context.Context, personID int64, seenAt time.Time) error
	TouchPerson(ctx context.Context, personID int64, seenAt time.Time) error
	RecountPersonQuotes(ctx context.Context, personID int64, now time.Time) (int, error)
	InsertAlias(ctx context.Context, alias AliasRecord) (bool, error)
	InsertPhonetics(ctx context.Context, rows []PhoneticRecord) error
	InsertPersonMerge(ctx context.Context, record PersonMergeRecord) (int64, error)

	InsertQueueItem(ctx context.Context, item NewQueueItem) (QueueItemRecord, error)
	LockQueueItem(ctx context.Context, queueItemID int64) (QueueItemRecord, error)
	ResolveQueueItem(ctx context.Context, queueItemID int64, status, resolvedBy string, now time.Time) (bool, error)
	RefreshQueueItem(ctx context.Context, queueItemID int64, now time.Time) (bool, error)
	SetQueueItemQuote(ctx context.Context, queueItemID, quoteID int64) error
}

// InTx runs fn inside one transaction. Any error returned by fn rolls the
// whole unit back.
func (p *Pool) InTx(ctx context.Context, fn func(tx StoreTx) error) error {
	tx, err := p.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&storeTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type storeTx struct {
	tx Tx
}
