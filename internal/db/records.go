package db

import (
	"encoding/json"
	"time"
)

// QuoteRecord is one row of quotelog.quotes.
type QuoteRecord struct {
	QuoteID          int64     `json:"quote_id"`
	QuoteUUID        string    `json:"quote_uuid"`
	PersonID         *int64    `json:"person_id,omitempty"`
	Text             string    `json:"text"`
	TextNormalized   string    `json:"-"`
	QuoteType        string    `json:"quote_type"`
	Context          string    `json:"context,omitempty"`
	CanonicalQuoteID *int64    `json:"canonical_quote_id,omitempty"`
	SourceURLs       []string  `json:"source_urls"`
	Language         string    `json:"language,omitempty"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsCanonical reports whether the row is not superseded by another quote.
func (q QuoteRecord) IsCanonical() bool {
	return q.CanonicalQuoteID == nil
}

// NewQuote is the insert shape for a canonical quote.
type NewQuote struct {
	PersonID       *int64
	Text           string
	TextNormalized string
	QuoteType      string
	Context        string
	SourceURLs     []string
	Language       string
	SeenAt         time.Time
	// FirstSeenAt defaults to SeenAt. A replacement canonical keeps the
	// sighting date of the row it supersedes.
	FirstSeenAt time.Time
}

// PersonRecord is one row of quotelog.persons.
type PersonRecord struct {
	PersonID       int64     `json:"person_id"`
	PersonUUID     string    `json:"person_uuid"`
	CanonicalName  string    `json:"canonical_name"`
	Disambiguation string    `json:"disambiguation,omitempty"`
	QuoteCount     int       `json:"quote_count"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// NewPerson is the insert shape for quotelog.persons.
type NewPerson struct {
	CanonicalName  string
	Disambiguation string
	SeenAt         time.Time
}

// AliasRecord is one row of quotelog.person_aliases.
type AliasRecord struct {
	PersonAliasID   int64   `json:"person_alias_id"`
	PersonID        int64   `json:"person_id"`
	Alias           string  `json:"alias"`
	AliasNormalized string  `json:"alias_normalized"`
	AliasType       string  `json:"alias_type"`
	Confidence      float64 `json:"confidence"`
	Source          string  `json:"source"`
}

// PhoneticRecord is one row of quotelog.person_phonetics.
type PhoneticRecord struct {
	PersonID     int64
	NamePart     string
	PhoneticCode string
	PartType     string
}

// ArticleRecord identifies the article a quote was extracted from.
type ArticleRecord struct {
	ArticleID   int64      `json:"article_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// RelationshipRecord is one append-only row of quotelog.quote_relationships.
type RelationshipRecord struct {
	QuoteIDA         int64
	QuoteIDB         *int64
	Relationship     string
	Confidence       float64
	CanonicalQuoteID int64
	DecisionPath     string
	IncomingText     string
	MatchSignals     map[string]any
	CreatedAt        time.Time
}

// QueueItemRecord is one row of quotelog.disambiguation_queue.
type QueueItemRecord struct {
	QueueItemID       int64           `json:"queue_item_id"`
	QueueItemUUID     string          `json:"queue_item_uuid"`
	NewName           string          `json:"new_name"`
	NewNameNormalized string          `json:"new_name_normalized"`
	NewContext        string          `json:"new_context,omitempty"`
	CandidatePersonID *int64          `json:"candidate_person_id,omitempty"`
	CandidateName     *string         `json:"candidate_name,omitempty"`
	SimilarityScore   float64         `json:"similarity_score"`
	MatchSignals      json.RawMessage `json:"match_signals,omitempty"`
	Status            string          `json:"status"`
	ResolvedBy        *string         `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	QuoteID           *int64          `json:"quote_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewQueueItem is the insert shape for quotelog.disambiguation_queue.
type NewQueueItem struct {
	NewName           string
	NewNameNormalized string
	NewContext        string
	CandidatePersonID *int64
	SimilarityScore   float64
	MatchSignals      map[string]any
	CreatedAt         time.Time
}

// PersonMergeRecord is one append-only row of quotelog.person_merges.
type PersonMergeRecord struct {
	SurvivingPersonID int64
	MergedPersonID    *int64
	MergedName        string
	QueueItemID       *int64
	MergedAt          time.Time
	MergedBy          string
	Confidence        float64
	Reason            string
}

const (
	QueueStatusPending   = "pending"
	QueueStatusMerged    = "merged"
	QueueStatusRejected  = "rejected"
	QueueStatusNewPerson = "new_person"
)
