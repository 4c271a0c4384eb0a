package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const queueItemColumns = `
	d.queue_item_id,
	d.queue_item_uuid::text,
	d.new_name,
	d.new_name_normalized,
	d.new_context,
	d.candidate_person_id,
	p.canonical_name,
	d.similarity_score,
	d.match_signals,
	d.status,
	d.resolved_by,
	d.resolved_at,
	d.quote_id,
	d.created_at`

func scanQueueItem(row rowScanner) (QueueItemRecord, error) {
	var (
		rec        QueueItemRecord
		signalsRaw []byte
	)
	if err := row.Scan(
		&rec.QueueItemID,
		&rec.QueueItemUUID,
		&rec.NewName,
		&rec.NewNameNormalized,
		&rec.NewContext,
		&rec.CandidatePersonID,
		&rec.CandidateName,
		&rec.SimilarityScore,
		&signalsRaw,
		&rec.Status,
		&rec.ResolvedBy,
		&rec.ResolvedAt,
		&rec.QuoteID,
		&rec.CreatedAt,
	); err != nil {
		return QueueItemRecord{}, err
	}
	if len(signalsRaw) > 0 {
		rec.MatchSignals = json.RawMessage(append([]byte(nil), signalsRaw...))
	}
	return rec, nil
}

// ListPendingQueue pages through pending items, oldest first, and reports
// the total number of pending items.
func (p *Pool) ListPendingQueue(ctx context.Context, limit, offset int) ([]QueueItemRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const countQ = `
SELECT COUNT(*)
FROM quotelog.disambiguation_queue
WHERE status = 'pending'
`
	var total int64
	if err := p.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending queue: %w", err)
	}

	const q = `
SELECT` + queueItemColumns + `
FROM quotelog.disambiguation_queue d
LEFT JOIN quotelog.persons p ON p.person_id = d.candidate_person_id
WHERE d.status = 'pending'
ORDER BY d.created_at ASC, d.queue_item_id ASC
LIMIT $1
OFFSET $2
`
	rows, err := p.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query pending queue: %w", err)
	}
	defer rows.Close()

	items := make([]QueueItemRecord, 0, limit)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate queue items: %w", err)
	}
	return items, total, nil
}

// GetQueueItem loads one queue item in any status.
func (p *Pool) GetQueueItem(ctx context.Context, queueItemID int64) (QueueItemRecord, error) {
	const q = `
SELECT` + queueItemColumns + `
FROM quotelog.disambiguation_queue d
LEFT JOIN quotelog.persons p ON p.person_id = d.candidate_person_id
WHERE d.queue_item_id = $1
`
	item, err := scanQueueItem(p.QueryRow(ctx, q, queueItemID))
	if err != nil {
		if IsNoRows(err) {
			return QueueItemRecord{}, ErrNoRows
		}
		return QueueItemRecord{}, fmt.Errorf("query queue item id=%d: %w", queueItemID, err)
	}
	return item, nil
}

func (s *storeTx) InsertQueueItem(ctx context.Context, item NewQueueItem) (QueueItemRecord, error) {
	const q = `
WITH inserted AS (
	INSERT INTO quotelog.disambiguation_queue (
		new_name,
		new_name_normalized,
		new_context,
		candidate_person_id,
		similarity_score,
		match_signals,
		status,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6::jsonb, 'pending', $7)
	RETURNING *
)
SELECT` + queueItemColumns + `
FROM inserted d
LEFT JOIN quotelog.persons p ON p.person_id = d.candidate_person_id
`
	signalsJSON, err := marshalSignals(item.MatchSignals)
	if err != nil {
		return QueueItemRecord{}, fmt.Errorf("marshal queue signals: %w", err)
	}

	rec, err := scanQueueItem(s.tx.QueryRow(
		ctx,
		q,
		item.NewName,
		item.NewNameNormalized,
		item.NewContext,
		item.CandidatePersonID,
		item.SimilarityScore,
		signalsJSON,
		item.CreatedAt,
	))
	if err != nil {
		return QueueItemRecord{}, fmt.Errorf("insert queue item: %w", err)
	}
	return rec, nil
}

func (s *storeTx) LockQueueItem(ctx context.Context, queueItemID int64) (QueueItemRecord, error) {
	const q = `
SELECT` + queueItemColumns + `
FROM quotelog.disambiguation_queue d
LEFT JOIN quotelog.persons p ON p.person_id = d.candidate_person_id
WHERE d.queue_item_id = $1
FOR UPDATE OF d
`
	item, err := scanQueueItem(s.tx.QueryRow(ctx, q, queueItemID))
	if err != nil {
		if IsNoRows(err) {
			return QueueItemRecord{}, ErrNoRows
		}
		return QueueItemRecord{}, fmt.Errorf("lock queue item id=%d: %w", queueItemID, err)
	}
	return item, nil
}

// ResolveQueueItem moves a pending item to a terminal status. It reports
// false when the item was no longer pending.
func (s *storeTx) ResolveQueueItem(ctx context.Context, queueItemID int64, status, resolvedBy string, now time.Time) (bool, error) {
	const q = `
UPDATE quotelog.disambiguation_queue
SET status = $2,
	resolved_by = $3,
	resolved_at = $4
WHERE queue_item_id = $1
  AND status = 'pending'
`
	tag, err := s.tx.Exec(ctx, q, queueItemID, status, resolvedBy, now)
	if err != nil {
		return false, fmt.Errorf("resolve queue item id=%d: %w", queueItemID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RefreshQueueItem moves a pending item to the back of the queue.
func (s *storeTx) RefreshQueueItem(ctx context.Context, queueItemID int64, now time.Time) (bool, error) {
	const q = `
UPDATE quotelog.disambiguation_queue
SET created_at = $2
WHERE queue_item_id = $1
  AND status = 'pending'
`
	tag, err := s.tx.Exec(ctx, q, queueItemID, now)
	if err != nil {
		return false, fmt.Errorf("refresh queue item id=%d: %w", queueItemID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *storeTx) SetQueueItemQuote(ctx context.Context, queueItemID, quoteID int64) error {
	const q = `
UPDATE quotelog.disambiguation_queue
SET quote_id = $2
WHERE queue_item_id = $1
`
	if _, err := s.tx.Exec(ctx, q, queueItemID, quoteID); err != nil {
		return fmt.Errorf("set quote on queue item id=%d: %w", queueItemID, err)
	}
	return nil
}
