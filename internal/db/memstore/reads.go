package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

func (s *Store) RecentCanonicalQuotes(_ context.Context, personID int64, limit int) ([]db.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.QuoteRecord, 0)
	for _, rec := range s.state.quotes {
		if rec.PersonID != nil && *rec.PersonID == personID && rec.IsCanonical() {
			out = append(out, copyQuote(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeenAt.Equal(out[j].FirstSeenAt) {
			return out[i].FirstSeenAt.After(out[j].FirstSeenAt)
		}
		return out[i].QuoteID > out[j].QuoteID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CanonicalQuotesByIDs(_ context.Context, personID int64, ids []int64) ([]db.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.QuoteRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.state.quotes[id]
		if !ok || rec.PersonID == nil || *rec.PersonID != personID || !rec.IsCanonical() {
			continue
		}
		out = append(out, copyQuote(rec))
	}
	return out, nil
}

func (s *Store) GetQuote(_ context.Context, quoteID int64) (db.QuoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.quotes[quoteID]
	if !ok {
		return db.QuoteRecord{}, db.ErrNoRows
	}
	return copyQuote(rec), nil
}

func (s *Store) GetPerson(_ context.Context, personID int64) (db.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.persons[personID]
	if !ok {
		return db.PersonRecord{}, db.ErrNoRows
	}
	return rec, nil
}

func (s *Store) FindPersonsByAlias(_ context.Context, aliasNormalized string) ([]db.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{})
	out := make([]db.PersonRecord, 0)
	for _, alias := range s.state.aliases {
		if alias.AliasNormalized != aliasNormalized {
			continue
		}
		if _, ok := seen[alias.PersonID]; ok {
			continue
		}
		seen[alias.PersonID] = struct{}{}
		if person, ok := s.state.persons[alias.PersonID]; ok {
			out = append(out, person)
		}
	}
	return sortPersons(out), nil
}

func (s *Store) FindPersonsByPhonetic(_ context.Context, partType string, codes []string) ([]db.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{})
	out := make([]db.PersonRecord, 0)
	for _, row := range s.state.phonetics {
		if row.PartType != partType || !slices.Contains(codes, row.PhoneticCode) {
			continue
		}
		if _, ok := seen[row.PersonID]; ok {
			continue
		}
		seen[row.PersonID] = struct{}{}
		if person, ok := s.state.persons[row.PersonID]; ok {
			out = append(out, person)
		}
	}
	return sortPersons(out), nil
}

// FuzzyAliasCandidates mirrors pg_trgm word_similarity() > 0.3 over aliases,
// approximated as the best trigram similarity against any alias word.
func (s *Store) FuzzyAliasCandidates(_ context.Context, lastName string, limit int) ([]db.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lastName == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}

	best := make(map[int64]float64)
	for _, alias := range s.state.aliases {
		score := wordSimilarity(lastName, alias.AliasNormalized)
		if score <= 0.3 {
			continue
		}
		if score > best[alias.PersonID] {
			best[alias.PersonID] = score
		}
	}

	out := make([]db.PersonRecord, 0, len(best))
	for id := range best {
		if person, ok := s.state.persons[id]; ok {
			out = append(out, person)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := best[out[i].PersonID], best[out[j].PersonID]
		if si != sj {
			return si > sj
		}
		return out[i].PersonID < out[j].PersonID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListAliases(_ context.Context, personIDs []int64) (map[int64][]db.AliasRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64][]db.AliasRecord, len(personIDs))
	for _, alias := range s.state.aliases {
		if slices.Contains(personIDs, alias.PersonID) {
			out[alias.PersonID] = append(out[alias.PersonID], alias)
		}
	}
	return out, nil
}

func (s *Store) ListPendingQueue(_ context.Context, limit, offset int) ([]db.QueueItemRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	pending := make([]db.QueueItemRecord, 0)
	for _, item := range s.state.queue {
		if item.Status == db.QueueStatusPending {
			pending = append(pending, s.state.withCandidateName(item))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].QueueItemID < pending[j].QueueItemID
	})

	total := int64(len(pending))
	if offset >= len(pending) {
		return []db.QueueItemRecord{}, total, nil
	}
	pending = pending[max(offset, 0):]
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, total, nil
}

func (s *Store) GetQueueItem(_ context.Context, queueItemID int64) (db.QueueItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.state.queue[queueItemID]
	if !ok {
		return db.QueueItemRecord{}, db.ErrNoRows
	}
	return s.state.withCandidateName(item), nil
}

func (s *Store) UpsertArticle(_ context.Context, url, title string, publishedAt *time.Time) (db.ArticleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url = strings.TrimSpace(url)
	for id, rec := range s.state.articles {
		if rec.URL != url {
			continue
		}
		if rec.Title == "" {
			rec.Title = strings.TrimSpace(title)
		}
		if rec.PublishedAt == nil {
			rec.PublishedAt = publishedAt
		}
		s.state.articles[id] = rec
		return rec, nil
	}

	s.state.nextArticleID++
	rec := db.ArticleRecord{
		ArticleID:   s.state.nextArticleID,
		URL:         url,
		Title:       strings.TrimSpace(title),
		PublishedAt: publishedAt,
	}
	s.state.articles[rec.ArticleID] = rec
	return rec, nil
}

func wordSimilarity(needle, haystack string) float64 {
	best := 0.0
	for _, word := range strings.Fields(haystack) {
		best = max(best, trigramSimilarity(needle, word))
	}
	return best
}

func trigramSimilarity(a, b string) float64 {
	left := trigrams(a)
	right := trigrams(b)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	shared := 0
	for gram := range left {
		if _, ok := right[gram]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(left)+len(right)-shared)
}

func trigrams(value string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(value)) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}
