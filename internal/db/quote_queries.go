package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const quoteColumns = `
	q.quote_id,
	q.quote_uuid::text,
	q.person_id,
	q.text,
	q.text_normalized,
	q.quote_type,
	q.context,
	q.canonical_quote_id,
	q.source_urls,
	q.language,
	q.first_seen_at,
	q.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (QuoteRecord, error) {
	var (
		rec     QuoteRecord
		urlsRaw []byte
	)
	if err := row.Scan(
		&rec.QuoteID,
		&rec.QuoteUUID,
		&rec.PersonID,
		&rec.Text,
		&rec.TextNormalized,
		&rec.QuoteType,
		&rec.Context,
		&rec.CanonicalQuoteID,
		&urlsRaw,
		&rec.Language,
		&rec.FirstSeenAt,
		&rec.CreatedAt,
	); err != nil {
		return QuoteRecord{}, err
	}
	rec.SourceURLs = decodeStringList(urlsRaw)
	return rec, nil
}

func scanQuotes(rows *Rows) ([]QuoteRecord, error) {
	defer rows.Close()

	out := make([]QuoteRecord, 0, 16)
	for rows.Next() {
		rec, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}

// RecentCanonicalQuotes lists the newest canonical quotes of one person.
func (p *Pool) RecentCanonicalQuotes(ctx context.Context, personID int64, limit int) ([]QuoteRecord, error) {
	const q = `
SELECT` + quoteColumns + `
FROM quotelog.quotes q
WHERE q.person_id = $1
  AND q.canonical_quote_id IS NULL
ORDER BY q.first_seen_at DESC, q.quote_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent canonical quotes person_id=%d: %w", personID, err)
	}
	return scanQuotes(rows)
}

// CanonicalQuotesByIDs loads the canonical quotes of one person among ids.
func (p *Pool) CanonicalQuotesByIDs(ctx context.Context, personID int64, ids []int64) ([]QuoteRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
SELECT` + quoteColumns + `
FROM quotelog.quotes q
WHERE q.person_id = $1
  AND q.canonical_quote_id IS NULL
  AND q.quote_id IN (SELECT jsonb_array_elements_text($2::jsonb)::BIGINT)
`
	rows, err := p.Query(ctx, q, personID, encodeJSONList(ids))
	if err != nil {
		return nil, fmt.Errorf("query canonical quotes by id person_id=%d: %w", personID, err)
	}
	return scanQuotes(rows)
}

// GetQuote loads one quote by id.
func (p *Pool) GetQuote(ctx context.Context, quoteID int64) (QuoteRecord, error) {
	const q = `
SELECT` + quoteColumns + `
FROM quotelog.quotes q
WHERE q.quote_id = $1
`
	rec, err := scanQuote(p.QueryRow(ctx, q, quoteID))
	if err != nil {
		if IsNoRows(err) {
			return QuoteRecord{}, ErrNoRows
		}
		return QuoteRecord{}, fmt.Errorf("query quote quote_id=%d: %w", quoteID, err)
	}
	return rec, nil
}

func (s *storeTx) FindCanonicalQuoteByText(ctx context.Context, personID int64, textNormalized string) (QuoteRecord, bool, error) {
	const q = `
SELECT` + quoteColumns + `
FROM quotelog.quotes q
WHERE q.person_id = $1
  AND q.text_normalized = $2
  AND q.canonical_quote_id IS NULL
ORDER BY q.quote_id ASC
LIMIT 1
FOR UPDATE
`
	rec, err := scanQuote(s.tx.QueryRow(ctx, q, personID, textNormalized))
	if err != nil {
		if IsNoRows(err) {
			return QuoteRecord{}, false, nil
		}
		return QuoteRecord{}, false, fmt.Errorf("find canonical quote by text person_id=%d: %w", personID, err)
	}
	return rec, true, nil
}

func (s *storeTx) LockQuote(ctx context.Context, quoteID int64) (QuoteRecord, error) {
	const q = `
SELECT` + quoteColumns + `
FROM quotelog.quotes q
WHERE q.quote_id = $1
FOR UPDATE
`
	rec, err := scanQuote(s.tx.QueryRow(ctx, q, quoteID))
	if err != nil {
		if IsNoRows(err) {
			return QuoteRecord{}, ErrNoRows
		}
		return QuoteRecord{}, fmt.Errorf("lock quote quote_id=%d: %w", quoteID, err)
	}
	return rec, nil
}

func (s *storeTx) InsertQuote(ctx context.Context, quote NewQuote) (QuoteRecord, error) {
	const q = `
INSERT INTO quotelog.quotes AS q (
	person_id,
	text,
	text_normalized,
	quote_type,
	context,
	canonical_quote_id,
	source_urls,
	language,
	first_seen_at,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, NULL, $6::jsonb, $7, $9, $8, $8)
RETURNING` + quoteColumns

	firstSeen := quote.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = quote.SeenAt
	}

	rec, err := scanQuote(s.tx.QueryRow(
		ctx,
		q,
		quote.PersonID,
		quote.Text,
		quote.TextNormalized,
		defaultString(quote.QuoteType, "direct"),
		quote.Context,
		encodeJSONList(quote.SourceURLs),
		quote.Language,
		quote.SeenAt,
		firstSeen,
	))
	if err != nil {
		return QuoteRecord{}, fmt.Errorf("insert quote: %w", err)
	}
	return rec, nil
}

func (s *storeTx) SetQuoteSourceURLs(ctx context.Context, quoteID int64, urls []string, now time.Time) error {
	const q = `
UPDATE quotelog.quotes
SET source_urls = $2::jsonb,
	updated_at = $3
WHERE quote_id = $1
`
	if _, err := s.tx.Exec(ctx, q, quoteID, encodeJSONList(urls), now); err != nil {
		return fmt.Errorf("update source_urls quote_id=%d: %w", quoteID, err)
	}
	return nil
}

// RepointCanonical makes fromCanonicalID and all of its variants point at
// toCanonicalID, keeping the canonical graph one level deep.
func (s *storeTx) RepointCanonical(ctx context.Context, fromCanonicalID, toCanonicalID int64, now time.Time) (int64, error) {
	const q = `
UPDATE quotelog.quotes
SET canonical_quote_id = $2,
	updated_at = $3
WHERE (quote_id = $1 OR canonical_quote_id = $1)
  AND quote_id <> $2
`
	tag, err := s.tx.Exec(ctx, q, fromCanonicalID, toCanonicalID, now)
	if err != nil {
		return 0, fmt.Errorf("repoint canonical %d -> %d: %w", fromCanonicalID, toCanonicalID, err)
	}
	return tag.RowsAffected(), nil
}

// ReassignQuoteOwner moves a canonical quote and its variants to personID.
func (s *storeTx) ReassignQuoteOwner(ctx context.Context, quoteID, personID int64, now time.Time) (int64, error) {
	const q = `
UPDATE quotelog.quotes
SET person_id = $2,
	updated_at = $3
WHERE quote_id = $1
   OR canonical_quote_id = $1
`
	tag, err := s.tx.Exec(ctx, q, quoteID, personID, now)
	if err != nil {
		return 0, fmt.Errorf("reassign quote_id=%d to person_id=%d: %w", quoteID, personID, err)
	}
	return tag.RowsAffected(), nil
}

func (s *storeTx) LinkQuoteArticle(ctx context.Context, quoteID, articleID int64) error {
	const q = `
INSERT INTO quotelog.quote_articles (quote_id, article_id, linked_at)
VALUES ($1, $2, now())
ON CONFLICT (quote_id, article_id) DO NOTHING
`
	if _, err := s.tx.Exec(ctx, q, quoteID, articleID); err != nil {
		return fmt.Errorf("link quote_id=%d article_id=%d: %w", quoteID, articleID, err)
	}
	return nil
}

// CopyQuoteLinks carries article links, topics and keywords from one quote
// to another.
func (s *storeTx) CopyQuoteLinks(ctx context.Context, fromQuoteID, toQuoteID int64) error {
	const articlesQ = `
INSERT INTO quotelog.quote_articles (quote_id, article_id, linked_at)
SELECT $2, qa.article_id, qa.linked_at
FROM quotelog.quote_articles qa
WHERE qa.quote_id = $1
ON CONFLICT (quote_id, article_id) DO NOTHING
`
	const topicsQ = `
INSERT INTO quotelog.quote_topics (quote_id, topic)
SELECT $2, qt.topic
FROM quotelog.quote_topics qt
WHERE qt.quote_id = $1
ON CONFLICT (quote_id, topic) DO NOTHING
`
	const keywordsQ = `
INSERT INTO quotelog.quote_keywords (quote_id, keyword)
SELECT $2, qk.keyword
FROM quotelog.quote_keywords qk
WHERE qk.quote_id = $1
ON CONFLICT (quote_id, keyword) DO NOTHING
`
	for _, q := range []string{articlesQ, topicsQ, keywordsQ} {
		if _, err := s.tx.Exec(ctx, q, fromQuoteID, toQuoteID); err != nil {
			return fmt.Errorf("copy quote links %d -> %d: %w", fromQuoteID, toQuoteID, err)
		}
	}
	return nil
}

func (s *storeTx) AddQuoteTopics(ctx context.Context, quoteID int64, topics []string) error {
	const q = `
INSERT INTO quotelog.quote_topics (quote_id, topic)
SELECT DISTINCT $1::BIGINT, t.topic
FROM jsonb_array_elements_text($2::jsonb) AS t(topic)
ON CONFLICT (quote_id, topic) DO NOTHING
`
	cleaned := cleanLabels(topics)
	if len(cleaned) == 0 {
		return nil
	}
	if _, err := s.tx.Exec(ctx, q, quoteID, encodeJSONList(cleaned)); err != nil {
		return fmt.Errorf("insert topics quote_id=%d: %w", quoteID, err)
	}
	return nil
}

func (s *storeTx) AddQuoteKeywords(ctx context.Context, quoteID int64, keywords []string) error {
	const q = `
INSERT INTO quotelog.quote_keywords (quote_id, keyword)
SELECT DISTINCT $1::BIGINT, k.keyword
FROM jsonb_array_elements_text($2::jsonb) AS k(keyword)
ON CONFLICT (quote_id, keyword) DO NOTHING
`
	cleaned := cleanLabels(keywords)
	if len(cleaned) == 0 {
		return nil
	}
	if _, err := s.tx.Exec(ctx, q, quoteID, encodeJSONList(cleaned)); err != nil {
		return fmt.Errorf("insert keywords quote_id=%d: %w", quoteID, err)
	}
	return nil
}

func (s *storeTx) InsertQuoteRelationship(ctx context.Context, record RelationshipRecord) error {
	const q = `
INSERT INTO quotelog.quote_relationships (
	quote_id_a,
	quote_id_b,
	relationship,
	confidence,
	canonical_quote_id,
	decision_path,
	incoming_text,
	match_signals,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
`
	signalsJSON, err := marshalSignals(record.MatchSignals)
	if err != nil {
		return fmt.Errorf("marshal relationship signals: %w", err)
	}

	_, err = s.tx.Exec(
		ctx,
		q,
		record.QuoteIDA,
		record.QuoteIDB,
		record.Relationship,
		record.Confidence,
		record.CanonicalQuoteID,
		record.DecisionPath,
		record.IncomingText,
		signalsJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote_relationship canonical_quote_id=%d: %w", record.CanonicalQuoteID, err)
	}
	return nil
}

func encodeJSONList[T any](values []T) string {
	if len(values) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func cleanLabels(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		label := strings.ToLower(strings.Join(strings.Fields(value), " "))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
