package memstore

import (
	"slices"
	"sort"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

// SeedPerson stores rec as-is, keeping its PersonID.
func (s *Store) SeedPerson(rec db.PersonRecord) db.PersonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.PersonUUID == "" {
		rec.PersonUUID = newUUID()
	}
	s.state.persons[rec.PersonID] = rec
	s.state.nextPersonID = max(s.state.nextPersonID, rec.PersonID)
	return rec
}

func (s *Store) SeedAlias(alias db.AliasRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.nextAliasID++
	alias.PersonAliasID = s.state.nextAliasID
	s.state.aliases = append(s.state.aliases, alias)
}

func (s *Store) SeedPhonetics(rows ...db.PhoneticRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.phonetics = append(s.state.phonetics, rows...)
}

// SeedQuote stores rec as-is, keeping its QuoteID.
func (s *Store) SeedQuote(rec db.QuoteRecord) db.QuoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.QuoteUUID == "" {
		rec.QuoteUUID = newUUID()
	}
	if rec.QuoteType == "" {
		rec.QuoteType = "direct"
	}
	rec = copyQuote(rec)
	s.state.quotes[rec.QuoteID] = rec
	s.state.nextQuoteID = max(s.state.nextQuoteID, rec.QuoteID)
	return rec
}

// Quotes returns every quote ordered by id.
func (s *Store) Quotes() []db.QuoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.QuoteRecord, 0, len(s.state.quotes))
	for _, rec := range s.state.quotes {
		out = append(out, copyQuote(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteID < out[j].QuoteID })
	return out
}

func (s *Store) Persons() []db.PersonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.PersonRecord, 0, len(s.state.persons))
	for _, rec := range s.state.persons {
		out = append(out, rec)
	}
	return sortPersons(out)
}

func (s *Store) Aliases(personID int64) []db.AliasRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.AliasRecord, 0)
	for _, alias := range s.state.aliases {
		if alias.PersonID == personID {
			out = append(out, alias)
		}
	}
	return out
}

func (s *Store) Phonetics(personID int64) []db.PhoneticRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]db.PhoneticRecord, 0)
	for _, row := range s.state.phonetics {
		if row.PersonID == personID {
			out = append(out, row)
		}
	}
	return out
}

func (s *Store) Relationships() []db.RelationshipRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.relationships)
}

func (s *Store) Merges() []db.PersonMergeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.merges)
}

// ArticleIDs lists the articles linked to a quote in ascending order.
func (s *Store) ArticleIDs(quoteID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, 0)
	for key := range s.state.quoteArticles {
		if key[0] == quoteID {
			out = append(out, key[1])
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) Topics(quoteID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.topics[quoteID])
}

func (s *Store) Keywords(quoteID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.keywords[quoteID])
}
