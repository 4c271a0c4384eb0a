package db

import (
	"context"
	"fmt"
	"time"
)

// StatsTotals stores all-time counts.
type StatsTotals struct {
	Persons         int64 `json:"persons"`
	Aliases         int64 `json:"aliases"`
	Articles        int64 `json:"articles"`
	CanonicalQuotes int64 `json:"canonical_quotes"`
	VariantQuotes   int64 `json:"variant_quotes"`
	Embeddings      int64 `json:"embeddings"`
}

// QueueCounts breaks the disambiguation queue down by status.
type QueueCounts struct {
	Pending   int64 `json:"pending"`
	Merged    int64 `json:"merged"`
	NewPerson int64 `json:"new_person"`
	Rejected  int64 `json:"rejected"`
}

// DailyThroughput stores counters for one UTC day.
type DailyThroughput struct {
	QuotesStored    int64 `json:"quotes_stored"`
	DuplicatesFound int64 `json:"duplicates_found"`
	PersonsCreated  int64 `json:"persons_created"`
	QueueItemsAdded int64 `json:"queue_items_added"`
	AutoMerges      int64 `json:"auto_merges"`
	ReviewMerges    int64 `json:"review_merges"`
}

// QuoteLogStats is the read model returned by the stats command.
type QuoteLogStats struct {
	Day        string          `json:"day"`
	Totals     StatsTotals     `json:"totals"`
	Queue      QueueCounts     `json:"queue"`
	Throughput DailyThroughput `json:"throughput"`
}

// QueryQuoteLogStats returns all-time totals, queue status counts and the
// activity of the [dayStart, dayEnd) window.
func (p *Pool) QueryQuoteLogStats(ctx context.Context, dayStart, dayEnd time.Time) (*QuoteLogStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &QuoteLogStats{Day: startUTC.Format("2006-01-02")}

	const totalsQuery = `
SELECT
	(SELECT COUNT(*) FROM quotelog.persons)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.person_aliases)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.articles)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.quotes WHERE canonical_quote_id IS NULL)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.quotes WHERE canonical_quote_id IS NOT NULL)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.quote_embeddings)::BIGINT
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.Totals.Persons,
		&stats.Totals.Aliases,
		&stats.Totals.Articles,
		&stats.Totals.CanonicalQuotes,
		&stats.Totals.VariantQuotes,
		&stats.Totals.Embeddings,
	); err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	const queueQuery = `
SELECT
	COUNT(*) FILTER (WHERE status = 'pending')::BIGINT,
	COUNT(*) FILTER (WHERE status = 'merged')::BIGINT,
	COUNT(*) FILTER (WHERE status = 'new_person')::BIGINT,
	COUNT(*) FILTER (WHERE status = 'rejected')::BIGINT
FROM quotelog.disambiguation_queue
`
	if err := p.QueryRow(ctx, queueQuery).Scan(
		&stats.Queue.Pending,
		&stats.Queue.Merged,
		&stats.Queue.NewPerson,
		&stats.Queue.Rejected,
	); err != nil {
		return nil, fmt.Errorf("query queue counts: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM quotelog.quotes WHERE created_at >= $1 AND created_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.quote_relationships WHERE created_at >= $1 AND created_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.persons WHERE created_at >= $1 AND created_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.disambiguation_queue WHERE created_at >= $1 AND created_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.person_merges WHERE merged_by = 'auto' AND merged_at >= $1 AND merged_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM quotelog.person_merges WHERE merged_by = 'user' AND merged_at >= $1 AND merged_at < $2)::BIGINT
`
	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.QuotesStored,
		&stats.Throughput.DuplicatesFound,
		&stats.Throughput.PersonsCreated,
		&stats.Throughput.QueueItemsAdded,
		&stats.Throughput.AutoMerges,
		&stats.Throughput.ReviewMerges,
	); err != nil {
		return nil, fmt.Errorf("query throughput: %w", err)
	}

	return stats, nil
}
