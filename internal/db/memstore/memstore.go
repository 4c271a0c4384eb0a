// Package memstore is an in-memory, transactional stand-in for the Postgres
// pool. Domain tests run their services against it; every InTx call works on
// a copy of the state that is published only when the callback succeeds.
package memstore

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

type Store struct {
	mu     sync.Mutex
	state  *state
	failOn map[string]error
}

func New() *Store {
	return &Store{
		state:  newState(),
		failOn: make(map[string]error),
	}
}

// FailOn makes the named StoreTx method return err until cleared with a nil
// error.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

// InTx runs fn against a private copy of the store. The copy replaces the
// live state only when fn returns nil. Transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(tx db.StoreTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&storeTx{st: working, failOn: s.failOn}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type state struct {
	persons       map[int64]db.PersonRecord
	aliases       []db.AliasRecord
	phonetics     []db.PhoneticRecord
	articles      map[int64]db.ArticleRecord
	quotes        map[int64]db.QuoteRecord
	quoteArticles map[[2]int64]time.Time
	topics        map[int64][]string
	keywords      map[int64][]string
	relationships []db.RelationshipRecord
	queue         map[int64]db.QueueItemRecord
	merges        []db.PersonMergeRecord

	nextPersonID  int64
	nextAliasID   int64
	nextArticleID int64
	nextQuoteID   int64
	nextQueueID   int64
	nextMergeID   int64
}

func newState() *state {
	return &state{
		persons:       make(map[int64]db.PersonRecord),
		articles:      make(map[int64]db.ArticleRecord),
		quotes:        make(map[int64]db.QuoteRecord),
		quoteArticles: make(map[[2]int64]time.Time),
		topics:        make(map[int64][]string),
		keywords:      make(map[int64][]string),
		queue:         make(map[int64]db.QueueItemRecord),
	}
}

func (st *state) clone() *state {
	out := &state{
		persons:       make(map[int64]db.PersonRecord, len(st.persons)),
		aliases:       slices.Clone(st.aliases),
		phonetics:     slices.Clone(st.phonetics),
		articles:      make(map[int64]db.ArticleRecord, len(st.articles)),
		quotes:        make(map[int64]db.QuoteRecord, len(st.quotes)),
		quoteArticles: make(map[[2]int64]time.Time, len(st.quoteArticles)),
		topics:        make(map[int64][]string, len(st.topics)),
		keywords:      make(map[int64][]string, len(st.keywords)),
		relationships: slices.Clone(st.relationships),
		queue:         make(map[int64]db.QueueItemRecord, len(st.queue)),
		merges:        slices.Clone(st.merges),

		nextPersonID:  st.nextPersonID,
		nextAliasID:   st.nextAliasID,
		nextArticleID: st.nextArticleID,
		nextQuoteID:   st.nextQuoteID,
		nextQueueID:   st.nextQueueID,
		nextMergeID:   st.nextMergeID,
	}
	for id, rec := range st.persons {
		out.persons[id] = rec
	}
	for id, rec := range st.articles {
		out.articles[id] = rec
	}
	for id, rec := range st.quotes {
		rec.SourceURLs = slices.Clone(rec.SourceURLs)
		out.quotes[id] = rec
	}
	for key, at := range st.quoteArticles {
		out.quoteArticles[key] = at
	}
	for id, labels := range st.topics {
		out.topics[id] = slices.Clone(labels)
	}
	for id, labels := range st.keywords {
		out.keywords[id] = slices.Clone(labels)
	}
	for id, item := range st.queue {
		out.queue[id] = item
	}
	return out
}

func (st *state) withCandidateName(item db.QueueItemRecord) db.QueueItemRecord {
	item.CandidateName = nil
	if item.CandidatePersonID != nil {
		if person, ok := st.persons[*item.CandidatePersonID]; ok {
			name := person.CanonicalName
			item.CandidateName = &name
		}
	}
	return item
}

func copyQuote(rec db.QuoteRecord) db.QuoteRecord {
	rec.SourceURLs = slices.Clone(rec.SourceURLs)
	if rec.SourceURLs == nil {
		rec.SourceURLs = []string{}
	}
	return rec
}

func sortPersons(persons []db.PersonRecord) []db.PersonRecord {
	sort.Slice(persons, func(i, j int) bool { return persons[i].PersonID < persons[j].PersonID })
	return persons
}

func cleanLabels(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		label := strings.ToLower(strings.Join(strings.Fields(value), " "))
		if label == "" || slices.Contains(out, label) {
			continue
		}
		out = append(out, label)
	}
	return out
}

func encodeSignals(signals map[string]any) json.RawMessage {
	if len(signals) == 0 {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func newUUID() string {
	return uuid.NewString()
}

func int64Ptr(v int64) *int64 {
	return &v
}
