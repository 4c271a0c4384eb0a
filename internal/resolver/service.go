package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/names"
)

const (
	DefaultAutoThreshold   = 0.9
	DefaultReviewThreshold = 0.7
	DefaultFuzzyCutoff     = 0.88

	fuzzyCandidateLimit = 25
)

var ErrEmptyName = errors.New("speaker name is empty")

type Store interface {
	FindPersonsByAlias(ctx context.Context, aliasNormalized string) ([]db.PersonRecord, error)
	FindPersonsByPhonetic(ctx context.Context, partType string, codes []string) ([]db.PersonRecord, error)
	FuzzyAliasCandidates(ctx context.Context, lastName string, limit int) ([]db.PersonRecord, error)
	ListAliases(ctx context.Context, personIDs []int64) (map[int64][]db.AliasRecord, error)
	InTx(ctx context.Context, fn func(tx db.StoreTx) error) error
}

type Options struct {
	AutoThreshold     float64
	ReviewThreshold   float64
	FuzzyCutoff       float64
	ProvisionalAttach bool
}

type Service struct {
	store  Store
	opts   Options
	logger zerolog.Logger
}

func NewService(store Store, opts Options, logger zerolog.Logger) *Service {
	if opts.AutoThreshold <= 0 {
		opts.AutoThreshold = DefaultAutoThreshold
	}
	if opts.ReviewThreshold <= 0 {
		opts.ReviewThreshold = DefaultReviewThreshold
	}
	if opts.FuzzyCutoff <= 0 {
		opts.FuzzyCutoff = DefaultFuzzyCutoff
	}
	return &Service{
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// speaker is the incoming name in every form the resolver needs.
type speaker struct {
	Display    string
	Normalized string
	Parts      names.Parts
	Title      string
	Context    string
}

// ResolvePerson decides which person speakerName refers to. Ambiguity is
// not an error: it comes back as PendingReview with a queued item.
func (s *Service) ResolvePerson(ctx context.Context, speakerName, speakerTitle, quoteContext string, article *db.ArticleRecord) (Resolution, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("resolver service is not initialized")
	}

	normalized := names.NormalizeName(speakerName)
	if normalized == "" {
		return nil, ErrEmptyName
	}
	in := speaker{
		Display:    names.DisplayName(strings.TrimSpace(speakerName)),
		Normalized: normalized,
		Parts:      names.SplitNormalized(normalized),
		Title:      strings.TrimSpace(speakerTitle),
		Context:    strings.TrimSpace(quoteContext),
	}

	candidates, err := s.findCandidates(ctx, in)
	if err != nil {
		return nil, err
	}

	var best *scored
	ambiguous := false
	if len(candidates) > 0 {
		best = &candidates[0]
		ambiguous = len(candidates) > 1 && candidates[1].Score >= s.opts.AutoThreshold
	}

	var resolution Resolution
	switch {
	case best != nil && best.Score >= s.opts.AutoThreshold && !ambiguous:
		resolution, err = s.attach(ctx, in, *best)
	case best != nil && best.Score >= s.opts.ReviewThreshold:
		resolution, err = s.queue(ctx, in, *best, candidates, article)
	default:
		resolution, err = s.create(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	event := s.logger.Debug().
		Str("speaker", in.Display).
		Str("resolution", Kind(resolution)).
		Int64("person_id", resolution.AttachTo())
	if best != nil {
		event = event.Float64("best_score", best.Score).Str("via", best.Via)
	}
	event.Msg("speaker resolved")
	return resolution, nil
}

// findCandidates runs exact alias, phonetic and fuzzy discovery in that
// order and returns the best score per person, highest first.
func (s *Service) findCandidates(ctx context.Context, in speaker) ([]scored, error) {
	exact, err := s.store.FindPersonsByAlias(ctx, in.Normalized)
	if err != nil {
		return nil, fmt.Errorf("find persons by alias: %w", err)
	}
	if len(exact) > 0 {
		out := make([]scored, 0, len(exact))
		for _, person := range exact {
			score := 1.0
			if len(exact) > 1 {
				score = ambiguousExactScore
				if titleMatches(in.Title, person.Disambiguation) {
					score += titleBoost
				}
			}
			out = append(out, scored{
				Person:  person,
				Alias:   in.Normalized,
				Score:   score,
				Via:     viaExactAlias,
				Signals: map[string]any{"exact_alias": true, "same_alias_persons": len(exact)},
			})
		}
		return bestPerPerson(out), nil
	}

	var all []scored
	if codes := names.LastNameCodes(in.Parts); len(codes) > 0 {
		persons, err := s.store.FindPersonsByPhonetic(ctx, string(names.PartLast), codes)
		if err != nil {
			return nil, fmt.Errorf("find persons by phonetic code: %w", err)
		}
		found, err := s.scorePersons(ctx, in, persons, viaPhonetic)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}

	fuzzy, err := s.store.FuzzyAliasCandidates(ctx, in.Parts.Last, fuzzyCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("find fuzzy alias candidates: %w", err)
	}
	seen := make(map[int64]struct{}, len(all))
	for _, candidate := range all {
		seen[candidate.Person.PersonID] = struct{}{}
	}
	remaining := make([]db.PersonRecord, 0, len(fuzzy))
	for _, person := range fuzzy {
		if _, ok := seen[person.PersonID]; !ok {
			remaining = append(remaining, person)
		}
	}
	found, err := s.scorePersons(ctx, in, remaining, viaFuzzy)
	if err != nil {
		return nil, err
	}
	all = append(all, found...)

	return bestPerPerson(all), nil
}

func (s *Service) scorePersons(ctx context.Context, in speaker, persons []db.PersonRecord, via string) ([]scored, error) {
	if len(persons) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(persons))
	for _, person := range persons {
		ids = append(ids, person.PersonID)
	}
	aliases, err := s.store.ListAliases(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}

	out := make([]scored, 0, len(persons))
	for _, person := range persons {
		for _, alias := range aliases[person.PersonID] {
			score, firstKind, ok := scoreAlias(in.Parts, alias, via, s.opts.FuzzyCutoff)
			if !ok {
				continue
			}
			titled := titleMatches(in.Title, person.Disambiguation)
			if titled {
				score += titleBoost
			}
			lastSim := names.Similarity(in.Parts.Last, names.SplitNormalized(alias.AliasNormalized).Last)
			score = min(score, 1)
			if lastSim < 1 {
				// A surname that only sounds or looks alike never auto-attaches.
				score = min(score, s.opts.AutoThreshold-surnameMismatchMargin)
			}
			out = append(out, scored{
				Person:     person,
				Alias:      alias.AliasNormalized,
				Score:      score,
				Via:        via,
				FirstMatch: firstKind,
				Signals: map[string]any{
					"matched_alias":  alias.AliasNormalized,
					"first_name":     firstKind,
					"last_name_sim":  lastSim,
					"title_match":    titled,
					"discovered_via": via,
				},
			})
		}
	}
	return out, nil
}

func (s *Service) attach(ctx context.Context, in speaker, best scored) (Resolution, error) {
	now := globaltime.UTC()
	resolved := Resolved{PersonID: best.Person.PersonID, Confidence: best.Score, Via: best.Via}

	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		if _, err := tx.LockPerson(ctx, best.Person.PersonID); err != nil {
			return fmt.Errorf("lock person %d: %w", best.Person.PersonID, err)
		}

		source := "extraction"
		if best.Via == viaFuzzy {
			source = "fuzzy_match"
		}
		aliasType := "full_name"
		if best.Via != viaExactAlias {
			aliasType = aliasTypeFor(best.FirstMatch)
		}
		added, err := tx.InsertAlias(ctx, db.AliasRecord{
			PersonID:        best.Person.PersonID,
			Alias:           in.Display,
			AliasNormalized: in.Normalized,
			AliasType:       aliasType,
			Confidence:      best.Score,
			Source:          source,
		})
		if err != nil {
			return fmt.Errorf("insert alias: %w", err)
		}
		resolved.AliasAdded = added
		if !added {
			return nil
		}

		if err := tx.InsertPhonetics(ctx, PhoneticRows(best.Person.PersonID, in.Parts)); err != nil {
			return fmt.Errorf("insert phonetics: %w", err)
		}
		if best.Via == viaExactAlias {
			return nil
		}
		if _, err := tx.InsertPersonMerge(ctx, db.PersonMergeRecord{
			SurvivingPersonID: best.Person.PersonID,
			MergedName:        in.Display,
			MergedAt:          now,
			MergedBy:          "auto",
			Confidence:        best.Score,
			Reason:            fmt.Sprintf("%s (%s first name) matched alias %q", best.Via, best.FirstMatch, best.Alias),
		}); err != nil {
			return fmt.Errorf("insert person merge: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *Service) queue(ctx context.Context, in speaker, best scored, candidates []scored, article *db.ArticleRecord) (Resolution, error) {
	now := globaltime.UTC()
	signals := make(map[string]any, len(best.Signals)+4)
	for k, v := range best.Signals {
		signals[k] = v
	}
	signals["candidate_count"] = len(candidates)
	if len(candidates) > 1 {
		signals["runner_up_person_id"] = candidates[1].Person.PersonID
		signals["runner_up_score"] = candidates[1].Score
	}
	if in.Title != "" {
		signals["speaker_title"] = in.Title
	}
	if article != nil && article.URL != "" {
		signals["article_url"] = article.URL
	}

	candidateID := best.Person.PersonID
	pending := PendingReview{CandidateID: &candidateID, Confidence: best.Score}
	if s.opts.ProvisionalAttach {
		pending.ProvisionalPersonID = candidateID
	}

	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		item, err := tx.InsertQueueItem(ctx, db.NewQueueItem{
			NewName:           in.Display,
			NewNameNormalized: in.Normalized,
			NewContext:        in.Context,
			CandidatePersonID: &candidateID,
			SimilarityScore:   best.Score,
			MatchSignals:      signals,
			CreatedAt:         now,
		})
		if err != nil {
			return fmt.Errorf("insert queue item: %w", err)
		}
		pending.QueueItemID = item.QueueItemID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *Service) create(ctx context.Context, in speaker) (Resolution, error) {
	var created NewPerson
	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		person, err := CreatePersonTx(ctx, tx, in.Display, in.Normalized, in.Title, globaltime.UTC())
		if err != nil {
			return err
		}
		created.PersonID = person.PersonID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreatePersonTx inserts a person with its full_name alias and phonetic
// keys. Review reuses it when a queued name is rejected.
func CreatePersonTx(ctx context.Context, tx db.StoreTx, display, normalized, disambiguation string, now time.Time) (db.PersonRecord, error) {
	person, err := tx.InsertPerson(ctx, db.NewPerson{
		CanonicalName:  display,
		Disambiguation: disambiguation,
		SeenAt:         now,
	})
	if err != nil {
		return db.PersonRecord{}, fmt.Errorf("insert person: %w", err)
	}
	if _, err := tx.InsertAlias(ctx, db.AliasRecord{
		PersonID:        person.PersonID,
		Alias:           display,
		AliasNormalized: normalized,
		AliasType:       "full_name",
		Confidence:      1,
		Source:          "extraction",
	}); err != nil {
		return db.PersonRecord{}, fmt.Errorf("insert alias: %w", err)
	}
	if err := tx.InsertPhonetics(ctx, PhoneticRows(person.PersonID, names.SplitNormalized(normalized))); err != nil {
		return db.PersonRecord{}, fmt.Errorf("insert phonetics: %w", err)
	}
	return person, nil
}

// PhoneticRows builds the phonetic index rows for one name of personID.
func PhoneticRows(personID int64, parts names.Parts) []db.PhoneticRecord {
	keys := names.Keys(parts)
	rows := make([]db.PhoneticRecord, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, db.PhoneticRecord{
			PersonID:     personID,
			NamePart:     key.Part,
			PhoneticCode: key.Code,
			PartType:     string(key.PartType),
		})
	}
	return rows
}
