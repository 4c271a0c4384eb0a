package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// ScoredQuote is a vector-search hit: a canonical quote id and its cosine
// similarity to the query embedding.
type ScoredQuote struct {
	QuoteID int64
	Score   float64
}

// UpsertQuoteEmbedding stores the embedding of one quote for a model.
func (p *Pool) UpsertQuoteEmbedding(ctx context.Context, quoteID, personID int64, modelName string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is empty")
	}

	const q = `
INSERT INTO quotelog.quote_embeddings (
	quote_id,
	person_id,
	model_name,
	embedding,
	embedded_at
)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (quote_id, model_name) DO UPDATE
SET person_id = EXCLUDED.person_id,
	embedding = EXCLUDED.embedding,
	embedded_at = EXCLUDED.embedded_at
`
	if _, err := p.Exec(ctx, q, quoteID, personID, modelName, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("upsert quote embedding quote_id=%d: %w", quoteID, err)
	}
	return nil
}

// NearestCanonicalQuotes returns the canonical quotes of one person closest
// to embedding, best first, keeping only hits with score above minScore.
func (p *Pool) NearestCanonicalQuotes(
	ctx context.Context,
	personID int64,
	modelName string,
	embedding []float32,
	minScore float64,
	limit int,
) ([]ScoredQuote, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	const q = `
SELECT
	e.quote_id,
	(1 - (e.embedding <=> $3))::DOUBLE PRECISION AS score
FROM quotelog.quote_embeddings e
JOIN quotelog.quotes q ON q.quote_id = e.quote_id
WHERE q.person_id = $1
  AND q.canonical_quote_id IS NULL
  AND e.model_name = $2
  AND (1 - (e.embedding <=> $3)) > $4
ORDER BY e.embedding <=> $3 ASC
LIMIT $5
`
	rows, err := p.Query(ctx, q, personID, modelName, pgvector.NewVector(embedding), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest quotes person_id=%d: %w", personID, err)
	}
	defer rows.Close()

	out := make([]ScoredQuote, 0, limit)
	for rows.Next() {
		var hit ScoredQuote
		if err := rows.Scan(&hit.QuoteID, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan nearest quote: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest quotes: %w", err)
	}
	return out, nil
}
