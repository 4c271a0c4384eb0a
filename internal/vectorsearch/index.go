// Package vectorsearch keeps quote embeddings in pgvector and answers
// person-scoped nearest-neighbour queries for the dedup candidate finder.
package vectorsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/dedup"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
)

const (
	DefaultEmbeddingModel = "bge-small-en-v1.5"
	DefaultTimeout        = 5 * time.Second
)

type Store interface {
	UpsertQuoteEmbedding(ctx context.Context, quoteID, personID int64, modelName string, embedding []float32) error
	NearestCanonicalQuotes(ctx context.Context, personID int64, modelName string, embedding []float32, minScore float64, limit int) ([]db.ScoredQuote, error)
}

// Index embeds text through the embedding service and looks it up in the
// quote_embeddings table. Every call is bounded by the configured timeout.
type Index struct {
	store    Store
	embedder *Embedder
	model    string
	timeout  time.Duration
	logger   zerolog.Logger
}

var (
	_ dedup.VectorSearcher = (*Index)(nil)
	_ dedup.VectorIndexer  = (*Index)(nil)
)

func NewIndex(store Store, embedder *Embedder, model string, timeout time.Duration, logger zerolog.Logger) *Index {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Index{
		store:    store,
		embedder: embedder,
		model:    model,
		timeout:  timeout,
		logger:   logger.With().Str("component", "vectorsearch").Str("model", model).Logger(),
	}
}

// Search returns the stored canonical quotes of personID nearest to text.
// Score filtering is left to the caller.
func (i *Index) Search(ctx context.Context, text string, personID int64, limit int) ([]dedup.VectorMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	started := globaltime.Now()
	vector, err := i.embedOne(ctx, text)
	if err != nil {
		return nil, err
	}

	hits, err := i.store.NearestCanonicalQuotes(ctx, personID, i.model, vector, 0, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dedup.VectorMatch, 0, len(hits))
	for _, hit := range hits {
		out = append(out, dedup.VectorMatch{QuoteID: hit.QuoteID, Score: hit.Score})
	}
	i.logger.Debug().
		Int64("person_id", personID).
		Int("hits", len(out)).
		Dur("latency", globaltime.Since(started)).
		Msg("vector search")
	return out, nil
}

func (i *Index) IndexQuote(ctx context.Context, quoteID, personID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	vector, err := i.embedOne(ctx, text)
	if err != nil {
		return err
	}
	return i.store.UpsertQuoteEmbedding(ctx, quoteID, personID, i.model, vector)
}

func (i *Index) embedOne(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	vectors, err := i.embedder.Embed(ctx, i.model, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
