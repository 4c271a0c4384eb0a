package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

type storeTx struct {
	st     *state
	failOn map[string]error
}

var _ db.StoreTx = (*storeTx)(nil)

func (t *storeTx) fail(method string) error {
	return t.failOn[method]
}

func (t *storeTx) FindCanonicalQuoteByText(_ context.Context, personID int64, textNormalized string) (db.QuoteRecord, bool, error) {
	if err := t.fail("FindCanonicalQuoteByText"); err != nil {
		return db.QuoteRecord{}, false, err
	}

	var (
		found db.QuoteRecord
		ok    bool
	)
	for _, rec := range t.st.quotes {
		if rec.PersonID == nil || *rec.PersonID != personID || !rec.IsCanonical() || rec.TextNormalized != textNormalized {
			continue
		}
		if !ok || rec.QuoteID < found.QuoteID {
			found, ok = rec, true
		}
	}
	if !ok {
		return db.QuoteRecord{}, false, nil
	}
	return copyQuote(found), true, nil
}

func (t *storeTx) LockQuote(_ context.Context, quoteID int64) (db.QuoteRecord, error) {
	if err := t.fail("LockQuote"); err != nil {
		return db.QuoteRecord{}, err
	}
	rec, ok := t.st.quotes[quoteID]
	if !ok {
		return db.QuoteRecord{}, db.ErrNoRows
	}
	return copyQuote(rec), nil
}

func (t *storeTx) InsertQuote(_ context.Context, quote db.NewQuote) (db.QuoteRecord, error) {
	if err := t.fail("InsertQuote"); err != nil {
		return db.QuoteRecord{}, err
	}
	if quote.PersonID != nil {
		if _, ok := t.st.persons[*quote.PersonID]; !ok {
			return db.QuoteRecord{}, db.ErrNoRows
		}
	}

	quoteType := quote.QuoteType
	if quoteType == "" {
		quoteType = "direct"
	}
	firstSeen := quote.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = quote.SeenAt
	}
	t.st.nextQuoteID++
	rec := db.QuoteRecord{
		QuoteID:        t.st.nextQuoteID,
		QuoteUUID:      newUUID(),
		PersonID:       quote.PersonID,
		Text:           quote.Text,
		TextNormalized: quote.TextNormalized,
		QuoteType:      quoteType,
		Context:        quote.Context,
		SourceURLs:     slices.Clone(quote.SourceURLs),
		Language:       quote.Language,
		FirstSeenAt:    firstSeen,
		CreatedAt:      quote.SeenAt,
	}
	if rec.SourceURLs == nil {
		rec.SourceURLs = []string{}
	}
	t.st.quotes[rec.QuoteID] = rec
	return copyQuote(rec), nil
}

func (t *storeTx) SetQuoteSourceURLs(_ context.Context, quoteID int64, urls []string, _ time.Time) error {
	if err := t.fail("SetQuoteSourceURLs"); err != nil {
		return err
	}
	rec, ok := t.st.quotes[quoteID]
	if !ok {
		return db.ErrNoRows
	}
	rec.SourceURLs = slices.Clone(urls)
	t.st.quotes[quoteID] = rec
	return nil
}

func (t *storeTx) RepointCanonical(_ context.Context, fromCanonicalID, toCanonicalID int64, _ time.Time) (int64, error) {
	if err := t.fail("RepointCanonical"); err != nil {
		return 0, err
	}
	var affected int64
	for id, rec := range t.st.quotes {
		if id == toCanonicalID {
			continue
		}
		if id == fromCanonicalID || (rec.CanonicalQuoteID != nil && *rec.CanonicalQuoteID == fromCanonicalID) {
			rec.CanonicalQuoteID = int64Ptr(toCanonicalID)
			t.st.quotes[id] = rec
			affected++
		}
	}
	return affected, nil
}

func (t *storeTx) ReassignQuoteOwner(_ context.Context, quoteID, personID int64, _ time.Time) (int64, error) {
	if err := t.fail("ReassignQuoteOwner"); err != nil {
		return 0, err
	}
	if _, ok := t.st.persons[personID]; !ok {
		return 0, db.ErrNoRows
	}
	var affected int64
	for id, rec := range t.st.quotes {
		if id == quoteID || (rec.CanonicalQuoteID != nil && *rec.CanonicalQuoteID == quoteID) {
			rec.PersonID = int64Ptr(personID)
			t.st.quotes[id] = rec
			affected++
		}
	}
	return affected, nil
}

func (t *storeTx) LinkQuoteArticle(_ context.Context, quoteID, articleID int64) error {
	if err := t.fail("LinkQuoteArticle"); err != nil {
		return err
	}
	key := [2]int64{quoteID, articleID}
	if _, ok := t.st.quoteArticles[key]; !ok {
		t.st.quoteArticles[key] = time.Now().UTC()
	}
	return nil
}

func (t *storeTx) CopyQuoteLinks(_ context.Context, fromQuoteID, toQuoteID int64) error {
	if err := t.fail("CopyQuoteLinks"); err != nil {
		return err
	}
	for key, at := range t.st.quoteArticles {
		if key[0] != fromQuoteID {
			continue
		}
		target := [2]int64{toQuoteID, key[1]}
		if _, ok := t.st.quoteArticles[target]; !ok {
			t.st.quoteArticles[target] = at
		}
	}
	t.st.topics[toQuoteID] = mergeLabels(t.st.topics[toQuoteID], t.st.topics[fromQuoteID])
	t.st.keywords[toQuoteID] = mergeLabels(t.st.keywords[toQuoteID], t.st.keywords[fromQuoteID])
	return nil
}

func (t *storeTx) AddQuoteTopics(_ context.Context, quoteID int64, topics []string) error {
	if err := t.fail("AddQuoteTopics"); err != nil {
		return err
	}
	t.st.topics[quoteID] = mergeLabels(t.st.topics[quoteID], topics)
	return nil
}

func (t *storeTx) AddQuoteKeywords(_ context.Context, quoteID int64, keywords []string) error {
	if err := t.fail("AddQuoteKeywords"); err != nil {
		return err
	}
	t.st.keywords[quoteID] = mergeLabels(t.st.keywords[quoteID], keywords)
	return nil
}

func (t *storeTx) InsertQuoteRelationship(_ context.Context, record db.RelationshipRecord) error {
	if err := t.fail("InsertQuoteRelationship"); err != nil {
		return err
	}
	if _, ok := t.st.quotes[record.QuoteIDA]; !ok {
		return db.ErrNoRows
	}
	t.st.relationships = append(t.st.relationships, record)
	return nil
}

func (t *storeTx) LockPerson(_ context.Context, personID int64) (db.PersonRecord, error) {
	if err := t.fail("LockPerson"); err != nil {
		return db.PersonRecord{}, err
	}
	rec, ok := t.st.persons[personID]
	if !ok {
		return db.PersonRecord{}, db.ErrNoRows
	}
	return rec, nil
}

func (t *storeTx) InsertPerson(_ context.Context, person db.NewPerson) (db.PersonRecord, error) {
	if err := t.fail("InsertPerson"); err != nil {
		return db.PersonRecord{}, err
	}
	t.st.nextPersonID++
	rec := db.PersonRecord{
		PersonID:       t.st.nextPersonID,
		PersonUUID:     newUUID(),
		CanonicalName:  person.CanonicalName,
		Disambiguation: person.Disambiguation,
		FirstSeenAt:    person.SeenAt,
		LastSeenAt:     person.SeenAt,
	}
	t.st.persons[rec.PersonID] = rec
	return rec, nil
}

func (t *storeTx) IncrementPersonQuoteCount(_ context.Context, personID int64, seenAt time.Time) error {
	if err := t.fail("IncrementPersonQuoteCount"); err != nil {
		return err
	}
	rec, ok := t.st.persons[personID]
	if !ok {
		return db.ErrNoRows
	}
	rec.QuoteCount++
	if seenAt.After(rec.LastSeenAt) {
		rec.LastSeenAt = seenAt
	}
	t.st.persons[personID] = rec
	return nil
}

func (t *storeTx) TouchPerson(_ context.Context, personID int64, seenAt time.Time) error {
	if err := t.fail("TouchPerson"); err != nil {
		return err
	}
	rec, ok := t.st.persons[personID]
	if !ok {
		return db.ErrNoRows
	}
	if seenAt.After(rec.LastSeenAt) {
		rec.LastSeenAt = seenAt
		t.st.persons[personID] = rec
	}
	return nil
}

func (t *storeTx) RecountPersonQuotes(_ context.Context, personID int64, _ time.Time) (int, error) {
	if err := t.fail("RecountPersonQuotes"); err != nil {
		return 0, err
	}
	rec, ok := t.st.persons[personID]
	if !ok {
		return 0, db.ErrNoRows
	}
	count := 0
	for _, quote := range t.st.quotes {
		if quote.PersonID != nil && *quote.PersonID == personID && quote.IsCanonical() {
			count++
		}
	}
	rec.QuoteCount = count
	t.st.persons[personID] = rec
	return count, nil
}

func (t *storeTx) InsertAlias(_ context.Context, alias db.AliasRecord) (bool, error) {
	if err := t.fail("InsertAlias"); err != nil {
		return false, err
	}
	if _, ok := t.st.persons[alias.PersonID]; !ok {
		return false, db.ErrNoRows
	}
	for _, existing := range t.st.aliases {
		if existing.PersonID == alias.PersonID && existing.AliasNormalized == alias.AliasNormalized {
			return false, nil
		}
	}
	t.st.nextAliasID++
	alias.PersonAliasID = t.st.nextAliasID
	t.st.aliases = append(t.st.aliases, alias)
	return true, nil
}

func (t *storeTx) InsertPhonetics(_ context.Context, rows []db.PhoneticRecord) error {
	if err := t.fail("InsertPhonetics"); err != nil {
		return err
	}
	for _, row := range rows {
		duplicate := slices.ContainsFunc(t.st.phonetics, func(existing db.PhoneticRecord) bool {
			return existing.PersonID == row.PersonID &&
				existing.PhoneticCode == row.PhoneticCode &&
				existing.PartType == row.PartType
		})
		if !duplicate {
			t.st.phonetics = append(t.st.phonetics, row)
		}
	}
	return nil
}

func (t *storeTx) InsertPersonMerge(_ context.Context, record db.PersonMergeRecord) (int64, error) {
	if err := t.fail("InsertPersonMerge"); err != nil {
		return 0, err
	}
	if _, ok := t.st.persons[record.SurvivingPersonID]; !ok {
		return 0, db.ErrNoRows
	}
	t.st.nextMergeID++
	t.st.merges = append(t.st.merges, record)
	return t.st.nextMergeID, nil
}

func (t *storeTx) InsertQueueItem(_ context.Context, item db.NewQueueItem) (db.QueueItemRecord, error) {
	if err := t.fail("InsertQueueItem"); err != nil {
		return db.QueueItemRecord{}, err
	}
	t.st.nextQueueID++
	rec := db.QueueItemRecord{
		QueueItemID:       t.st.nextQueueID,
		QueueItemUUID:     newUUID(),
		NewName:           item.NewName,
		NewNameNormalized: item.NewNameNormalized,
		NewContext:        item.NewContext,
		CandidatePersonID: item.CandidatePersonID,
		SimilarityScore:   item.SimilarityScore,
		MatchSignals:      encodeSignals(item.MatchSignals),
		Status:            db.QueueStatusPending,
		CreatedAt:         item.CreatedAt,
	}
	t.st.queue[rec.QueueItemID] = rec
	return t.st.withCandidateName(rec), nil
}

func (t *storeTx) LockQueueItem(_ context.Context, queueItemID int64) (db.QueueItemRecord, error) {
	if err := t.fail("LockQueueItem"); err != nil {
		return db.QueueItemRecord{}, err
	}
	item, ok := t.st.queue[queueItemID]
	if !ok {
		return db.QueueItemRecord{}, db.ErrNoRows
	}
	return t.st.withCandidateName(item), nil
}

func (t *storeTx) ResolveQueueItem(_ context.Context, queueItemID int64, status, resolvedBy string, now time.Time) (bool, error) {
	if err := t.fail("ResolveQueueItem"); err != nil {
		return false, err
	}
	item, ok := t.st.queue[queueItemID]
	if !ok || item.Status != db.QueueStatusPending {
		return false, nil
	}
	item.Status = status
	item.ResolvedBy = &resolvedBy
	resolvedAt := now
	item.ResolvedAt = &resolvedAt
	t.st.queue[queueItemID] = item
	return true, nil
}

func (t *storeTx) RefreshQueueItem(_ context.Context, queueItemID int64, now time.Time) (bool, error) {
	if err := t.fail("RefreshQueueItem"); err != nil {
		return false, err
	}
	item, ok := t.st.queue[queueItemID]
	if !ok || item.Status != db.QueueStatusPending {
		return false, nil
	}
	item.CreatedAt = now
	t.st.queue[queueItemID] = item
	return true, nil
}

func (t *storeTx) SetQueueItemQuote(_ context.Context, queueItemID, quoteID int64) error {
	if err := t.fail("SetQueueItemQuote"); err != nil {
		return err
	}
	item, ok := t.st.queue[queueItemID]
	if !ok {
		return db.ErrNoRows
	}
	item.QuoteID = int64Ptr(quoteID)
	t.st.queue[queueItemID] = item
	return nil
}

func mergeLabels(existing, incoming []string) []string {
	out := slices.Clone(existing)
	for _, label := range cleanLabels(incoming) {
		if !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	return out
}
