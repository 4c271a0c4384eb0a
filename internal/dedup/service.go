package dedup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/llm"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/textsim"
)

const defaultVerifyConcurrency = 2

var ErrEmptyText = errors.New("quote text is empty")

// Store is the persistence surface the dedup service needs. Reads happen
// outside the write transaction.
type Store interface {
	RecentCanonicalQuotes(ctx context.Context, personID int64, limit int) ([]db.QuoteRecord, error)
	CanonicalQuotesByIDs(ctx context.Context, personID int64, ids []int64) ([]db.QuoteRecord, error)
	GetPerson(ctx context.Context, personID int64) (db.PersonRecord, error)
	InTx(ctx context.Context, fn func(tx db.StoreTx) error) error
}

// PairVerifier decides gray-zone pairs. An error is degraded to an
// UNRELATED verdict by the caller.
type PairVerifier interface {
	VerifyPair(ctx context.Context, req llm.PairRequest) (llm.Verdict, error)
}

type Options struct {
	CanonicalPolicy   string
	Verifier          PairVerifier
	Vector            VectorSearcher
	Indexer           VectorIndexer
	DetectLanguage    func(text string) string
	VerifyConcurrency int
}

type Service struct {
	store             Store
	policy            string
	verifier          PairVerifier
	vector            VectorSearcher
	indexer           VectorIndexer
	detectLanguage    func(string) string
	verifyConcurrency int
	logger            zerolog.Logger
}

// QuoteData is one extracted quote as it arrives from ingestion.
type QuoteData struct {
	Text      string
	QuoteType string
	Context   string
	SourceURL string
	Topics    []string
	Keywords  []string
}

type InsertResult struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	PersonID    int64     `json:"person_id"`
	PersonName  string    `json:"person_name,omitempty"`
	SourceURLs  []string  `json:"source_urls"`
	CreatedAt   time.Time `json:"created_at"`
	IsDuplicate bool      `json:"is_duplicate"`
	// Relationship and Decision are empty for new quotes.
	Relationship string   `json:"relationship,omitempty"`
	Decision     Decision `json:"decision,omitempty"`
	// CanonicalReplaced is set when a more complete text took over as the
	// canonical row.
	CanonicalReplaced bool `json:"canonical_replaced,omitempty"`
}

func NewService(store Store, opts Options, logger zerolog.Logger) *Service {
	policy := strings.TrimSpace(opts.CanonicalPolicy)
	if policy == "" {
		policy = CanonicalPolicyKeepExisting
	}
	concurrency := opts.VerifyConcurrency
	if concurrency <= 0 {
		concurrency = defaultVerifyConcurrency
	}
	return &Service{
		store:             store,
		policy:            policy,
		verifier:          opts.Verifier,
		vector:            opts.Vector,
		indexer:           opts.Indexer,
		detectLanguage:    opts.DetectLanguage,
		verifyConcurrency: concurrency,
		logger:            logger.With().Str("component", "dedup").Logger(),
	}
}

// match is a decided duplicate: the stored quote the incoming text folds
// into and the evidence for it.
type match struct {
	QuoteID      int64
	Relationship string
	Confidence   float64
	Decision     Decision
	Signals      map[string]any
}

// InsertAndDeduplicate stores quote for personID, or folds it into an
// existing canonical quote of the same person. personID 0 stores an
// unattached quote that is never deduplicated. article may be nil.
func (s *Service) InsertAndDeduplicate(ctx context.Context, quote QuoteData, personID int64, article *db.ArticleRecord) (InsertResult, error) {
	if s == nil || s.store == nil {
		return InsertResult{}, fmt.Errorf("dedup service is not initialized")
	}

	text := strings.TrimSpace(quote.Text)
	normalized := textsim.Normalize(text)
	if normalized == "" {
		return InsertResult{}, ErrEmptyText
	}
	quote.Text = text

	var personName string
	var found *match
	if personID != 0 {
		person, err := s.store.GetPerson(ctx, personID)
		if err != nil {
			return InsertResult{}, fmt.Errorf("load person %d: %w", personID, err)
		}
		personName = person.CanonicalName
		found = s.decide(ctx, text, personName, s.findCandidates(ctx, text, personID))
	}

	language := ""
	if s.detectLanguage != nil {
		language = s.detectLanguage(text)
	}
	sourceURL := strings.TrimSpace(quote.SourceURL)
	if sourceURL == "" && article != nil {
		sourceURL = strings.TrimSpace(article.URL)
	}

	now := globaltime.UTC()
	var result InsertResult
	err := s.store.InTx(ctx, func(tx db.StoreTx) error {
		current := found
		if personID != 0 {
			existing, ok, err := tx.FindCanonicalQuoteByText(ctx, personID, normalized)
			if err != nil {
				return err
			}
			if ok {
				current = &match{
					QuoteID:      existing.QuoteID,
					Relationship: relationshipIdentical,
					Confidence:   1,
					Decision:     DecisionExactText,
					Signals:      map[string]any{"signal": string(DecisionExactText)},
				}
			}
		}

		write := pendingWrite{
			quote:      quote,
			normalized: normalized,
			language:   language,
			sourceURL:  sourceURL,
			personID:   personID,
			article:    article,
			now:        now,
		}
		var err error
		if current != nil {
			result, err = s.applyDuplicateTx(ctx, tx, write, *current)
		} else {
			result, err = applyNewTx(ctx, tx, write)
		}
		return err
	})
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert quote: %w", err)
	}
	result.PersonName = personName

	s.logger.Debug().
		Int64("quote_id", result.ID).
		Int64("person_id", personID).
		Bool("duplicate", result.IsDuplicate).
		Str("decision", string(result.Decision)).
		Msg("quote stored")

	if s.indexer != nil && personID != 0 && (!result.IsDuplicate || result.CanonicalReplaced) {
		if err := s.indexer.IndexQuote(ctx, result.ID, personID, result.Text); err != nil {
			s.logger.Warn().Err(err).Int64("quote_id", result.ID).Msg("quote embedding not stored")
		}
	}
	return result, nil
}

// decide walks the ranked candidates. The first automatic merge wins;
// otherwise gray-zone candidates go to the verifier and the most confident
// duplicate verdict wins.
func (s *Service) decide(ctx context.Context, text, speaker string, candidates []candidate) *match {
	type pending struct {
		candidate      candidate
		classification Classification
	}
	var gray []pending

	for _, cand := range candidates {
		c := Classify(text, cand.Quote.Text)
		switch c.Decision {
		case DecisionAutoMerge:
			signals := candidateSignals(cand, c)
			return &match{
				QuoteID:      cand.Quote.QuoteID,
				Relationship: autoRelationship(text, cand.Quote.Text),
				Confidence:   max(c.WordContainment, c.EllipsisRatio),
				Decision:     DecisionAutoMerge,
				Signals:      signals,
			}
		case DecisionLLMVerify:
			gray = append(gray, pending{candidate: cand, classification: c})
		}
	}
	if len(gray) == 0 {
		return nil
	}

	verdicts := make([]llm.Verdict, len(gray))
	var g errgroup.Group
	g.SetLimit(s.verifyConcurrency)
	for i, item := range gray {
		g.Go(func() error {
			verdicts[i] = s.verify(ctx, text, item.candidate.Quote, speaker)
			return nil
		})
	}
	_ = g.Wait()

	var best *match
	for i, verdict := range verdicts {
		if !verdict.IsDuplicate() {
			continue
		}
		if best != nil && verdict.Confidence <= best.Confidence {
			continue
		}
		signals := candidateSignals(gray[i].candidate, gray[i].classification)
		signals["llm_relationship"] = string(verdict.Relationship)
		signals["llm_confidence"] = verdict.Confidence
		if verdict.Explanation != "" {
			signals["llm_explanation"] = verdict.Explanation
		}
		best = &match{
			QuoteID:      gray[i].candidate.Quote.QuoteID,
			Relationship: strings.ToLower(string(verdict.Relationship)),
			Confidence:   verdict.Confidence,
			Decision:     DecisionLLMVerify,
			Signals:      signals,
		}
	}
	return best
}

func (s *Service) verify(ctx context.Context, text string, stored db.QuoteRecord, speaker string) llm.Verdict {
	if s.verifier == nil {
		return llm.DegradedVerdict("no verifier configured")
	}
	verdict, err := s.verifier.VerifyPair(ctx, llm.PairRequest{QuoteA: text, QuoteB: stored.Text, Speaker: speaker})
	if err != nil {
		s.logger.Warn().Err(err).Int64("candidate_quote_id", stored.QuoteID).Msg("pair verification degraded")
		return llm.DegradedVerdict(err.Error())
	}
	return verdict
}

func candidateSignals(cand candidate, c Classification) map[string]any {
	signals := c.signals()
	signals["candidate_quote_id"] = cand.Quote.QuoteID
	signals["candidate_source"] = cand.Source
	signals["candidate_score"] = cand.Score
	return signals
}

type pendingWrite struct {
	quote      QuoteData
	normalized string
	language   string
	sourceURL  string
	personID   int64
	article    *db.ArticleRecord
	now        time.Time
}

func (w pendingWrite) personRef() *int64 {
	if w.personID == 0 {
		return nil
	}
	id := w.personID
	return &id
}

func applyNewTx(ctx context.Context, tx db.StoreTx, w pendingWrite) (InsertResult, error) {
	urls := unionURLs(nil, w.sourceURL)
	rec, err := tx.InsertQuote(ctx, db.NewQuote{
		PersonID:       w.personRef(),
		Text:           w.quote.Text,
		TextNormalized: w.normalized,
		QuoteType:      w.quote.QuoteType,
		Context:        w.quote.Context,
		SourceURLs:     urls,
		Language:       w.language,
		SeenAt:         w.now,
	})
	if err != nil {
		return InsertResult{}, err
	}
	if err := attachLabelsTx(ctx, tx, rec.QuoteID, w); err != nil {
		return InsertResult{}, err
	}
	if w.personID != 0 {
		if err := tx.IncrementPersonQuoteCount(ctx, w.personID, w.now); err != nil {
			return InsertResult{}, fmt.Errorf("bump quote count for person %d: %w", w.personID, err)
		}
	}

	return InsertResult{
		ID:         rec.QuoteID,
		Text:       rec.Text,
		PersonID:   w.personID,
		SourceURLs: rec.SourceURLs,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

func (s *Service) applyDuplicateTx(ctx context.Context, tx db.StoreTx, w pendingWrite, m match) (InsertResult, error) {
	canonical, err := tx.LockQuote(ctx, m.QuoteID)
	if err != nil {
		return InsertResult{}, fmt.Errorf("lock quote %d: %w", m.QuoteID, err)
	}
	// Candidates are canonical when read; a concurrent replacement may have
	// demoted this one since.
	if canonical.CanonicalQuoteID != nil {
		canonical, err = tx.LockQuote(ctx, *canonical.CanonicalQuoteID)
		if err != nil {
			return InsertResult{}, fmt.Errorf("lock canonical of quote %d: %w", m.QuoteID, err)
		}
	}

	if s.policy == CanonicalPolicyPreferComplete &&
		m.Decision != DecisionExactText &&
		textsim.CompareCompleteness(w.quote.Text, canonical.Text) > 0 {
		return replaceCanonicalTx(ctx, tx, w, m, canonical)
	}

	urls := unionURLs(canonical.SourceURLs, w.sourceURL)
	if len(urls) != len(canonical.SourceURLs) {
		if err := tx.SetQuoteSourceURLs(ctx, canonical.QuoteID, urls, w.now); err != nil {
			return InsertResult{}, err
		}
	}
	if err := attachLabelsTx(ctx, tx, canonical.QuoteID, w); err != nil {
		return InsertResult{}, err
	}
	if err := tx.InsertQuoteRelationship(ctx, db.RelationshipRecord{
		QuoteIDA:         canonical.QuoteID,
		Relationship:     m.Relationship,
		Confidence:       m.Confidence,
		CanonicalQuoteID: canonical.QuoteID,
		DecisionPath:     string(m.Decision),
		IncomingText:     w.quote.Text,
		MatchSignals:     m.Signals,
		CreatedAt:        w.now,
	}); err != nil {
		return InsertResult{}, err
	}

	return InsertResult{
		ID:           canonical.QuoteID,
		Text:         canonical.Text,
		PersonID:     w.personID,
		SourceURLs:   urls,
		CreatedAt:    canonical.CreatedAt,
		IsDuplicate:  true,
		Relationship: m.Relationship,
		Decision:     m.Decision,
	}, nil
}

// replaceCanonicalTx promotes the incoming, more complete text to canonical.
// The old canonical and every variant pointing at it are repointed so the
// graph stays one level deep.
func replaceCanonicalTx(ctx context.Context, tx db.StoreTx, w pendingWrite, m match, old db.QuoteRecord) (InsertResult, error) {
	quoteType := w.quote.QuoteType
	if quoteType == "" {
		quoteType = old.QuoteType
	}
	rec, err := tx.InsertQuote(ctx, db.NewQuote{
		PersonID:       old.PersonID,
		Text:           w.quote.Text,
		TextNormalized: w.normalized,
		QuoteType:      quoteType,
		Context:        firstNonEmpty(w.quote.Context, old.Context),
		SourceURLs:     unionURLs(old.SourceURLs, w.sourceURL),
		Language:       firstNonEmpty(w.language, old.Language),
		SeenAt:         w.now,
		FirstSeenAt:    old.FirstSeenAt,
	})
	if err != nil {
		return InsertResult{}, err
	}
	if old.PersonID != nil {
		if err := tx.TouchPerson(ctx, *old.PersonID, w.now); err != nil {
			return InsertResult{}, fmt.Errorf("touch person %d: %w", *old.PersonID, err)
		}
	}
	if _, err := tx.RepointCanonical(ctx, old.QuoteID, rec.QuoteID, w.now); err != nil {
		return InsertResult{}, err
	}
	if err := tx.CopyQuoteLinks(ctx, old.QuoteID, rec.QuoteID); err != nil {
		return InsertResult{}, err
	}
	if err := attachLabelsTx(ctx, tx, rec.QuoteID, w); err != nil {
		return InsertResult{}, err
	}

	signals := make(map[string]any, len(m.Signals)+1)
	for k, v := range m.Signals {
		signals[k] = v
	}
	signals["replaced_canonical_quote_id"] = old.QuoteID
	oldID := old.QuoteID
	if err := tx.InsertQuoteRelationship(ctx, db.RelationshipRecord{
		QuoteIDA:         rec.QuoteID,
		QuoteIDB:         &oldID,
		Relationship:     m.Relationship,
		Confidence:       m.Confidence,
		CanonicalQuoteID: rec.QuoteID,
		DecisionPath:     string(m.Decision),
		IncomingText:     w.quote.Text,
		MatchSignals:     signals,
		CreatedAt:        w.now,
	}); err != nil {
		return InsertResult{}, err
	}

	return InsertResult{
		ID:                rec.QuoteID,
		Text:              rec.Text,
		PersonID:          w.personID,
		SourceURLs:        rec.SourceURLs,
		CreatedAt:         rec.CreatedAt,
		IsDuplicate:       true,
		Relationship:      m.Relationship,
		Decision:          m.Decision,
		CanonicalReplaced: true,
	}, nil
}

func attachLabelsTx(ctx context.Context, tx db.StoreTx, quoteID int64, w pendingWrite) error {
	if len(w.quote.Topics) > 0 {
		if err := tx.AddQuoteTopics(ctx, quoteID, w.quote.Topics); err != nil {
			return err
		}
	}
	if len(w.quote.Keywords) > 0 {
		if err := tx.AddQuoteKeywords(ctx, quoteID, w.quote.Keywords); err != nil {
			return err
		}
	}
	if w.article != nil && w.article.ArticleID != 0 {
		if err := tx.LinkQuoteArticle(ctx, quoteID, w.article.ArticleID); err != nil {
			return err
		}
	}
	return nil
}

// unionURLs appends url to existing when it is not already present.
func unionURLs(existing []string, url string) []string {
	out := slices.Clone(existing)
	if out == nil {
		out = []string{}
	}
	if url == "" || slices.Contains(out, url) {
		return out
	}
	return append(out, url)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
