// Package review resolves disambiguation queue items: merge a queued name
// into its candidate person, split it off as a new person, or push it to the
// back of the queue.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/dedup"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/names"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/resolver"
)

var (
	ErrNotFound      = errors.New("queue item not found")
	ErrConflict      = errors.New("queue item cannot be resolved")
	ErrInvalidAction = errors.New("invalid review action")
)

const (
	ActionMerge  = "merge"
	ActionReject = "reject"

	defaultPageSize = 50
	maxPageSize     = 200
)

type Store interface {
	ListPendingQueue(ctx context.Context, limit, offset int) ([]db.QueueItemRecord, int64, error)
	InTx(ctx context.Context, fn func(tx db.StoreTx) error) error
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "review").Logger(),
	}
}

type Page struct {
	Items  []db.QueueItemRecord `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// Outcome describes one resolved queue item.
type Outcome struct {
	QueueItemID int64  `json:"queue_item_id"`
	Status      string `json:"status"`
	PersonID    int64  `json:"person_id"`
	QuoteID     *int64 `json:"quote_id,omitempty"`
}

type BatchItemResult struct {
	QueueItemID int64    `json:"queue_item_id"`
	OK          bool     `json:"ok"`
	Outcome     *Outcome `json:"outcome,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type BatchResult struct {
	BatchID   string            `json:"batch_id"`
	Action    string            `json:"action"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// ListPending pages through pending items, oldest first.
func (s *Service) ListPending(ctx context.Context, limit, offset int) (Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	offset = max(offset, 0)

	items, total, err := s.store.ListPendingQueue(ctx, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list pending queue: %w", err)
	}
	return Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Merge folds the queued name into the candidate person: the name becomes a
// variant alias and the queued quote moves to the candidate.
func (s *Service) Merge(ctx context.Context, queueItemID int64, reviewer string) (Outcome, error) {
	reviewer = reviewerName(reviewer)
	now := globaltime.UTC()

	var out Outcome
	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		item, err := lockPending(ctx, tx, queueItemID)
		if err != nil {
			return err
		}
		if item.CandidatePersonID == nil {
			return fmt.Errorf("%w: item %d has no candidate person", ErrConflict, queueItemID)
		}
		candidateID := *item.CandidatePersonID

		if _, err := tx.LockPerson(ctx, candidateID); err != nil {
			if db.IsNoRows(err) {
				return fmt.Errorf("%w: candidate person %d no longer exists", ErrConflict, candidateID)
			}
			return fmt.Errorf("lock person %d: %w", candidateID, err)
		}
		if _, err := tx.InsertAlias(ctx, db.AliasRecord{
			PersonID:        candidateID,
			Alias:           item.NewName,
			AliasNormalized: item.NewNameNormalized,
			AliasType:       "variant",
			Confidence:      item.SimilarityScore,
			Source:          "user",
		}); err != nil {
			return fmt.Errorf("insert alias: %w", err)
		}
		if err := tx.InsertPhonetics(ctx, resolver.PhoneticRows(candidateID, names.SplitNormalized(item.NewNameNormalized))); err != nil {
			return fmt.Errorf("insert phonetics: %w", err)
		}

		movedTo, err := moveQuoteTx(ctx, tx, item.QuoteID, candidateID, now)
		if err != nil {
			return err
		}

		if _, err := tx.InsertPersonMerge(ctx, db.PersonMergeRecord{
			SurvivingPersonID: candidateID,
			MergedName:        item.NewName,
			QueueItemID:       &item.QueueItemID,
			MergedAt:          now,
			MergedBy:          "user",
			Confidence:        item.SimilarityScore,
			Reason:            fmt.Sprintf("merged by %s from review queue", reviewer),
		}); err != nil {
			return fmt.Errorf("insert person merge: %w", err)
		}

		if err := resolveTx(ctx, tx, queueItemID, db.QueueStatusMerged, reviewer, now); err != nil {
			return err
		}
		out = Outcome{QueueItemID: queueItemID, Status: db.QueueStatusMerged, PersonID: candidateID, QuoteID: movedTo}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	s.logger.Info().Int64("queue_item_id", queueItemID).Int64("person_id", out.PersonID).Str("reviewer", reviewer).Msg("queue item merged")
	return out, nil
}

// Reject splits the queued name off as a brand-new person and moves the
// queued quote to it.
func (s *Service) Reject(ctx context.Context, queueItemID int64, reviewer string) (Outcome, error) {
	reviewer = reviewerName(reviewer)
	now := globaltime.UTC()

	var out Outcome
	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		item, err := lockPending(ctx, tx, queueItemID)
		if err != nil {
			return err
		}

		person, err := resolver.CreatePersonTx(ctx, tx, item.NewName, item.NewNameNormalized, "", now)
		if err != nil {
			return err
		}
		movedTo, err := moveQuoteTx(ctx, tx, item.QuoteID, person.PersonID, now)
		if err != nil {
			return err
		}
		if err := resolveTx(ctx, tx, queueItemID, db.QueueStatusNewPerson, reviewer, now); err != nil {
			return err
		}
		out = Outcome{QueueItemID: queueItemID, Status: db.QueueStatusNewPerson, PersonID: person.PersonID, QuoteID: movedTo}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	s.logger.Info().Int64("queue_item_id", queueItemID).Int64("person_id", out.PersonID).Str("reviewer", reviewer).Msg("queue item split into new person")
	return out, nil
}

// Skip sends a pending item to the back of the queue.
func (s *Service) Skip(ctx context.Context, queueItemID int64) error {
	return s.store.InTx(ctx, func(tx db.StoreTx) error {
		if _, err := lockPending(ctx, tx, queueItemID); err != nil {
			return err
		}
		refreshed, err := tx.RefreshQueueItem(ctx, queueItemID, globaltime.UTC())
		if err != nil {
			return fmt.Errorf("refresh queue item %d: %w", queueItemID, err)
		}
		if !refreshed {
			return fmt.Errorf("%w: item %d is no longer pending", ErrConflict, queueItemID)
		}
		return nil
	})
}

// Batch applies action to every id in its own transaction. A failed id
// never rolls back its siblings.
func (s *Service) Batch(ctx context.Context, action string, ids []int64, reviewer string) (BatchResult, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	var apply func(context.Context, int64, string) (Outcome, error)
	switch action {
	case ActionMerge:
		apply = s.Merge
	case ActionReject:
		apply = s.Reject
	default:
		return BatchResult{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	result := BatchResult{
		BatchID: uuid.NewString(),
		Action:  action,
		Results: make([]BatchItemResult, 0, len(ids)),
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := apply(ctx, id, reviewer)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, BatchItemResult{QueueItemID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BatchItemResult{QueueItemID: id, OK: true, Outcome: &outcome})
	}

	s.logger.Info().
		Str("batch_id", result.BatchID).
		Str("action", action).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("review batch applied")
	return result, nil
}

func lockPending(ctx context.Context, tx db.StoreTx, queueItemID int64) (db.QueueItemRecord, error) {
	item, err := tx.LockQueueItem(ctx, queueItemID)
	if err != nil {
		if db.IsNoRows(err) {
			return db.QueueItemRecord{}, fmt.Errorf("%w: %d", ErrNotFound, queueItemID)
		}
		return db.QueueItemRecord{}, fmt.Errorf("lock queue item %d: %w", queueItemID, err)
	}
	if item.Status != db.QueueStatusPending {
		return db.QueueItemRecord{}, fmt.Errorf("%w: item %d is %s", ErrConflict, queueItemID, item.Status)
	}
	return item, nil
}

func resolveTx(ctx context.Context, tx db.StoreTx, queueItemID int64, status, reviewer string, now time.Time) error {
	resolved, err := tx.ResolveQueueItem(ctx, queueItemID, status, reviewer, now)
	if err != nil {
		return fmt.Errorf("resolve queue item %d: %w", queueItemID, err)
	}
	if !resolved {
		return fmt.Errorf("%w: item %d is no longer pending", ErrConflict, queueItemID)
	}
	return nil
}

// moveQuoteTx reassigns the queued quote, with its variants, to personID and
// recounts both the receiving and the previous owner. A moved canonical whose
// text personID already has is folded into that quote; the returned id is
// the canonical the queued quote ends up under.
func moveQuoteTx(ctx context.Context, tx db.StoreTx, quoteID *int64, personID int64, now time.Time) (*int64, error) {
	if quoteID == nil {
		_, err := tx.RecountPersonQuotes(ctx, personID, now)
		return nil, err
	}

	quote, err := tx.LockQuote(ctx, *quoteID)
	if err != nil {
		return nil, fmt.Errorf("lock quote %d: %w", *quoteID, err)
	}
	canonical := quote
	if quote.CanonicalQuoteID != nil {
		canonical, err = tx.LockQuote(ctx, *quote.CanonicalQuoteID)
		if err != nil {
			return nil, fmt.Errorf("lock canonical of quote %d: %w", *quoteID, err)
		}
	}

	existing, found, err := tx.FindCanonicalQuoteByText(ctx, personID, canonical.TextNormalized)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ReassignQuoteOwner(ctx, canonical.QuoteID, personID, now); err != nil {
		return nil, fmt.Errorf("reassign quote %d: %w", canonical.QuoteID, err)
	}
	final := canonical.QuoteID
	if found && existing.QuoteID != canonical.QuoteID {
		if err := dedup.FoldCanonicalTx(ctx, tx, canonical, existing, now); err != nil {
			return nil, fmt.Errorf("fold quote %d into %d: %w", canonical.QuoteID, existing.QuoteID, err)
		}
		final = existing.QuoteID
	}

	if _, err := tx.RecountPersonQuotes(ctx, personID, now); err != nil {
		return nil, fmt.Errorf("recount quotes for person %d: %w", personID, err)
	}
	if canonical.PersonID != nil && *canonical.PersonID != personID {
		if _, err := tx.RecountPersonQuotes(ctx, *canonical.PersonID, now); err != nil {
			return nil, fmt.Errorf("recount quotes for person %d: %w", *canonical.PersonID, err)
		}
	}
	return &final, nil
}

func reviewerName(raw string) string {
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return trimmed
	}
	return "user"
}
