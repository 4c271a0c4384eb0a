// Package ingest feeds extracted quote candidates through speaker resolution
// and quote deduplication.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/dedup"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/resolver"
	payloadschema "github.com/Bitstream73/QuoteLog02-sub000/schema"
)

type Store interface {
	UpsertArticle(ctx context.Context, url, title string, publishedAt *time.Time) (db.ArticleRecord, error)
	InTx(ctx context.Context, fn func(tx db.StoreTx) error) error
}

type PersonResolver interface {
	ResolvePerson(ctx context.Context, speakerName, speakerTitle, quoteContext string, article *db.ArticleRecord) (resolver.Resolution, error)
}

type QuoteDeduplicator interface {
	InsertAndDeduplicate(ctx context.Context, quote dedup.QuoteData, personID int64, article *db.ArticleRecord) (dedup.InsertResult, error)
}

type Service struct {
	store    Store
	resolver PersonResolver
	dedup    QuoteDeduplicator
	logger   zerolog.Logger
}

func NewService(store Store, resolver PersonResolver, dedup QuoteDeduplicator, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		dedup:    dedup,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

type CandidateResult struct {
	Index       int                 `json:"index"`
	Speaker     string              `json:"speaker"`
	Resolution  string              `json:"resolution,omitempty"`
	PersonID    int64               `json:"person_id,omitempty"`
	QueueItemID int64               `json:"queue_item_id,omitempty"`
	Quote       *dedup.InsertResult `json:"quote,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type BatchResult struct {
	RunID      string            `json:"run_id"`
	Article    db.ArticleRecord  `json:"article"`
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Queued     int               `json:"queued"`
	Failed     int               `json:"failed"`
	Candidates []CandidateResult `json:"candidates"`
}

// IngestBatch stores one article and runs every candidate through
// IngestCandidate. A failed candidate is recorded and does not stop the rest.
func (s *Service) IngestBatch(ctx context.Context, batch *payloadschema.QuoteBatch) (BatchResult, error) {
	if s == nil || s.store == nil || s.resolver == nil || s.dedup == nil {
		return BatchResult{}, fmt.Errorf("ingest service is not initialized")
	}
	if batch == nil {
		return BatchResult{}, fmt.Errorf("batch is required")
	}

	article, err := s.store.UpsertArticle(
		ctx,
		strings.TrimSpace(batch.Article.URL),
		strings.TrimSpace(batch.Article.Title),
		batch.Article.PublishedTime(),
	)
	if err != nil {
		return BatchResult{}, fmt.Errorf("upsert article: %w", err)
	}

	result := BatchResult{
		RunID:      uuid.NewString(),
		Article:    article,
		Candidates: make([]CandidateResult, 0, len(batch.Candidates)),
	}
	logger := s.logger.With().Str("run_id", result.RunID).Int64("article_id", article.ArticleID).Logger()

	for i, candidate := range batch.Candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, err := s.IngestCandidate(ctx, article, candidate)
		out.Index = i
		if err != nil {
			out.Error = err.Error()
			result.Failed++
			logger.Warn().Err(err).Int("index", i).Str("speaker", candidate.SpeakerName).Msg("candidate failed")
		} else {
			if out.Quote.IsDuplicate {
				result.Duplicates++
			} else {
				result.Inserted++
			}
			if out.QueueItemID != 0 {
				result.Queued++
			}
		}
		result.Candidates = append(result.Candidates, out)
	}

	logger.Info().
		Int("candidates", len(batch.Candidates)).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Int("queued", result.Queued).
		Int("failed", result.Failed).
		Msg("ingest batch completed")
	return result, nil
}

// IngestCandidate resolves the speaker, stores or folds the quote, and links
// a freshly stored quote to the queue item when the speaker is under review.
func (s *Service) IngestCandidate(ctx context.Context, article db.ArticleRecord, candidate payloadschema.QuoteCandidate) (CandidateResult, error) {
	out := CandidateResult{Speaker: strings.TrimSpace(candidate.SpeakerName)}

	resolution, err := s.resolver.ResolvePerson(ctx, candidate.SpeakerName, candidate.SpeakerTitle, candidate.Context, &article)
	if err != nil {
		return out, fmt.Errorf("resolve speaker %q: %w", out.Speaker, err)
	}
	out.Resolution = resolver.Kind(resolution)
	out.PersonID = resolution.AttachTo()

	inserted, err := s.dedup.InsertAndDeduplicate(ctx, dedup.QuoteData{
		Text:      candidate.Text,
		QuoteType: candidate.QuoteType,
		Context:   candidate.Context,
		SourceURL: candidate.SourceURL,
		Topics:    candidate.Topics,
		Keywords:  candidate.Keywords,
	}, out.PersonID, &article)
	if err != nil {
		return out, fmt.Errorf("store quote: %w", err)
	}
	out.Quote = &inserted

	pending, ok := resolution.(resolver.PendingReview)
	if !ok {
		return out, nil
	}
	out.QueueItemID = pending.QueueItemID
	// A folded duplicate belongs to quotes stored before this item existed,
	// so only a new row follows the review decision.
	if inserted.IsDuplicate {
		return out, nil
	}
	err = s.store.InTx(ctx, func(tx db.StoreTx) error {
		return tx.SetQueueItemQuote(ctx, pending.QueueItemID, inserted.ID)
	})
	if err != nil {
		return out, fmt.Errorf("link queue item %d to quote %d: %w", pending.QueueItemID, inserted.ID, err)
	}
	return out, nil
}
