package dedup

import (
	"context"
	"sort"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/textsim"
)

const (
	candidateLimit         = 10
	vectorMinScore         = 0.78
	recentCandidateWindow  = 50
	recentContainmentFloor = 0.5
	candidateSourceVector  = "vector"
	candidateSourceRecent  = "recent"
)

// VectorMatch is one hit from a person-scoped similarity search.
type VectorMatch struct {
	QuoteID int64
	Score   float64
}

// VectorSearcher finds stored canonical quotes of one person that read like
// text. Implementations apply their own timeout.
type VectorSearcher interface {
	Search(ctx context.Context, text string, personID int64, limit int) ([]VectorMatch, error)
}

// VectorIndexer stores the embedding of a freshly written canonical quote.
type VectorIndexer interface {
	IndexQuote(ctx context.Context, quoteID, personID int64, text string) error
}

type candidate struct {
	Quote  db.QuoteRecord
	Score  float64
	Source string
}

// findCandidates never fails: an empty result means the quote is new.
func (s *Service) findCandidates(ctx context.Context, text string, personID int64) []candidate {
	if s.vector != nil {
		found, err := s.vectorCandidates(ctx, text, personID)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Int64("person_id", personID).Msg("vector candidate search failed, scanning recent quotes")
		case len(found) > 0:
			return found
		}
	}
	return s.recentCandidates(ctx, text, personID)
}

func (s *Service) vectorCandidates(ctx context.Context, text string, personID int64) ([]candidate, error) {
	matches, err := s.vector.Search(ctx, text, personID, candidateLimit)
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]float64, len(matches))
	ids := make([]int64, 0, len(matches))
	for _, match := range matches {
		if match.Score <= vectorMinScore {
			continue
		}
		if _, seen := scores[match.QuoteID]; seen {
			continue
		}
		scores[match.QuoteID] = match.Score
		ids = append(ids, match.QuoteID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	quotes, err := s.store.CanonicalQuotesByIDs(ctx, personID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(quotes))
	for _, quote := range quotes {
		out = append(out, candidate{Quote: quote, Score: scores[quote.QuoteID], Source: candidateSourceVector})
	}
	return rankCandidates(out), nil
}

func (s *Service) recentCandidates(ctx context.Context, text string, personID int64) []candidate {
	recent, err := s.store.RecentCanonicalQuotes(ctx, personID, recentCandidateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Int64("person_id", personID).Msg("recent quote scan failed, treating quote as new")
		return nil
	}

	out := make([]candidate, 0, len(recent))
	for _, quote := range recent {
		shorter, longer, _ := textsim.ShorterLonger(text, quote.Text)
		score := textsim.WordContainment(shorter, longer)
		if score <= recentContainmentFloor {
			continue
		}
		out = append(out, candidate{Quote: quote, Score: score, Source: candidateSourceRecent})
	}
	return rankCandidates(out)
}

func rankCandidates(in []candidate) []candidate {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Score != in[j].Score {
			return in[i].Score > in[j].Score
		}
		return in[i].Quote.QuoteID < in[j].Quote.QuoteID
	})
	if len(in) > candidateLimit {
		in = in[:candidateLimit]
	}
	return in
}
