package db

import (
	"encoding/json"
	"time"
)

// Person maps quotelog.persons.
type Person struct {
	PersonID       int64     `gorm:"column:person_id;primaryKey;autoIncrement"`
	PersonUUID     string    `gorm:"column:person_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	CanonicalName  string    `gorm:"column:canonical_name;type:text;not null"`
	Disambiguation string    `gorm:"column:disambiguation;type:text;not null;default:''"`
	QuoteCount     int       `gorm:"column:quote_count;type:integer;not null;default:0"`
	FirstSeenAt    time.Time `gorm:"column:first_seen_at;type:timestamptz;not null;default:now()"`
	LastSeenAt     time.Time `gorm:"column:last_seen_at;type:timestamptz;not null;default:now()"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Person) TableName() string { return "quotelog.persons" }

// PersonAlias maps quotelog.person_aliases.
type PersonAlias struct {
	PersonAliasID   int64     `gorm:"column:person_alias_id;primaryKey;autoIncrement"`
	PersonID        int64     `gorm:"column:person_id;type:bigint;not null"`
	Alias           string    `gorm:"column:alias;type:text;not null"`
	AliasNormalized string    `gorm:"column:alias_normalized;type:text;not null"`
	AliasType       string    `gorm:"column:alias_type;type:quotelog.alias_type;not null"`
	Confidence      float64   `gorm:"column:confidence;type:double precision;not null;default:1"`
	Source          string    `gorm:"column:source;type:text;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PersonAlias) TableName() string { return "quotelog.person_aliases" }

// PersonPhonetic maps quotelog.person_phonetics.
type PersonPhonetic struct {
	PersonPhoneticID int64  `gorm:"column:person_phonetic_id;primaryKey;autoIncrement"`
	PersonID         int64  `gorm:"column:person_id;type:bigint;not null"`
	NamePart         string `gorm:"column:name_part;type:text;not null"`
	PhoneticCode     string `gorm:"column:phonetic_code;type:text;not null"`
	PartType         string `gorm:"column:part_type;type:text;not null"`
}

func (PersonPhonetic) TableName() string { return "quotelog.person_phonetics" }

// Article maps quotelog.articles.
type Article struct {
	ArticleID   int64      `gorm:"column:article_id;primaryKey;autoIncrement"`
	ArticleUUID string     `gorm:"column:article_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	URL         string     `gorm:"column:url;type:text;not null;unique"`
	Title       string     `gorm:"column:title;type:text;not null;default:''"`
	PublishedAt *time.Time `gorm:"column:published_at;type:timestamptz"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "quotelog.articles" }

// Quote maps quotelog.quotes. source_urls is a JSON array of distinct URLs.
type Quote struct {
	QuoteID          int64           `gorm:"column:quote_id;primaryKey;autoIncrement"`
	QuoteUUID        string          `gorm:"column:quote_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	PersonID         *int64          `gorm:"column:person_id;type:bigint"`
	Text             string          `gorm:"column:text;type:text;not null"`
	TextNormalized   string          `gorm:"column:text_normalized;type:text;not null"`
	QuoteType        string          `gorm:"column:quote_type;type:text;not null;default:direct"`
	Context          string          `gorm:"column:context;type:text;not null;default:''"`
	CanonicalQuoteID *int64          `gorm:"column:canonical_quote_id;type:bigint"`
	SourceURLs       json.RawMessage `gorm:"column:source_urls;type:jsonb;not null;default:'[]'"`
	Language         string          `gorm:"column:language;type:text;not null;default:''"`
	FirstSeenAt      time.Time       `gorm:"column:first_seen_at;type:timestamptz;not null;default:now()"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Quote) TableName() string { return "quotelog.quotes" }

// QuoteArticle maps quotelog.quote_articles.
type QuoteArticle struct {
	QuoteID   int64     `gorm:"column:quote_id;type:bigint;primaryKey"`
	ArticleID int64     `gorm:"column:article_id;type:bigint;primaryKey"`
	LinkedAt  time.Time `gorm:"column:linked_at;type:timestamptz;not null;default:now()"`
}

func (QuoteArticle) TableName() string { return "quotelog.quote_articles" }

// QuoteTopic maps quotelog.quote_topics.
type QuoteTopic struct {
	QuoteID int64  `gorm:"column:quote_id;type:bigint;primaryKey"`
	Topic   string `gorm:"column:topic;type:text;primaryKey"`
}

func (QuoteTopic) TableName() string { return "quotelog.quote_topics" }

// QuoteKeyword maps quotelog.quote_keywords.
type QuoteKeyword struct {
	QuoteID int64  `gorm:"column:quote_id;type:bigint;primaryKey"`
	Keyword string `gorm:"column:keyword;type:text;primaryKey"`
}

func (QuoteKeyword) TableName() string { return "quotelog.quote_keywords" }

// QuoteRelationship maps quotelog.quote_relationships. Rows are append-only;
// quote_id_b is null when an incoming variant was folded into quote_id_a
// without a row of its own.
type QuoteRelationship struct {
	QuoteRelationshipID   int64           `gorm:"column:quote_relationship_id;primaryKey;autoIncrement"`
	QuoteRelationshipUUID string          `gorm:"column:quote_relationship_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	QuoteIDA              int64           `gorm:"column:quote_id_a;type:bigint;not null"`
	QuoteIDB              *int64          `gorm:"column:quote_id_b;type:bigint"`
	Relationship          string          `gorm:"column:relationship;type:quotelog.quote_relationship_kind;not null"`
	Confidence            float64         `gorm:"column:confidence;type:double precision;not null"`
	CanonicalQuoteID      int64           `gorm:"column:canonical_quote_id;type:bigint;not null"`
	DecisionPath          string          `gorm:"column:decision_path;type:text;not null"`
	IncomingText          string          `gorm:"column:incoming_text;type:text;not null;default:''"`
	MatchSignals          json.RawMessage `gorm:"column:match_signals;type:jsonb;not null;default:'{}'"`
	CreatedAt             time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (QuoteRelationship) TableName() string { return "quotelog.quote_relationships" }

// QuoteEmbedding maps quotelog.quote_embeddings.
type QuoteEmbedding struct {
	QuoteID    int64     `gorm:"column:quote_id;type:bigint;primaryKey"`
	ModelName  string    `gorm:"column:model_name;type:text;primaryKey"`
	PersonID   int64     `gorm:"column:person_id;type:bigint;not null"`
	Embedding  string    `gorm:"column:embedding;type:vector;not null"`
	EmbeddedAt time.Time `gorm:"column:embedded_at;type:timestamptz;not null;default:now()"`
}

func (QuoteEmbedding) TableName() string { return "quotelog.quote_embeddings" }

// DisambiguationQueueItem maps quotelog.disambiguation_queue.
type DisambiguationQueueItem struct {
	QueueItemID       int64           `gorm:"column:queue_item_id;primaryKey;autoIncrement"`
	QueueItemUUID     string          `gorm:"column:queue_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	NewName           string          `gorm:"column:new_name;type:text;not null"`
	NewNameNormalized string          `gorm:"column:new_name_normalized;type:text;not null"`
	NewContext        string          `gorm:"column:new_context;type:text;not null;default:''"`
	CandidatePersonID *int64          `gorm:"column:candidate_person_id;type:bigint"`
	SimilarityScore   float64         `gorm:"column:similarity_score;type:double precision;not null;default:0"`
	MatchSignals      json.RawMessage `gorm:"column:match_signals;type:jsonb;not null;default:'{}'"`
	Status            string          `gorm:"column:status;type:quotelog.queue_status;not null;default:pending"`
	ResolvedBy        *string         `gorm:"column:resolved_by;type:text"`
	ResolvedAt        *time.Time      `gorm:"column:resolved_at;type:timestamptz"`
	QuoteID           *int64          `gorm:"column:quote_id;type:bigint"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DisambiguationQueueItem) TableName() string { return "quotelog.disambiguation_queue" }

// PersonMerge maps quotelog.person_merges.
type PersonMerge struct {
	PersonMergeID     int64     `gorm:"column:person_merge_id;primaryKey;autoIncrement"`
	PersonMergeUUID   string    `gorm:"column:person_merge_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SurvivingPersonID int64     `gorm:"column:surviving_person_id;type:bigint;not null"`
	MergedPersonID    *int64    `gorm:"column:merged_person_id;type:bigint"`
	MergedName        string    `gorm:"column:merged_name;type:text;not null"`
	QueueItemID       *int64    `gorm:"column:queue_item_id;type:bigint"`
	MergedAt          time.Time `gorm:"column:merged_at;type:timestamptz;not null;default:now()"`
	MergedBy          string    `gorm:"column:merged_by;type:text;not null"`
	Confidence        float64   `gorm:"column:confidence;type:double precision;not null"`
	Reason            string    `gorm:"column:reason;type:text;not null;default:''"`
}

func (PersonMerge) TableName() string { return "quotelog.person_merges" }

// User maps quotelog.users.
type User struct {
	UserID             int64      `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username           string     `gorm:"column:username;type:text;not null;unique"`
	PasswordHash       string     `gorm:"column:password_hash;type:text;not null"`
	MustChangePassword bool       `gorm:"column:must_change_password;type:boolean;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at;type:timestamptz"`
}

func (User) TableName() string { return "quotelog.users" }

func autoMigrateModels() []any {
	return []any{
		&Person{},
		&PersonAlias{},
		&PersonPhonetic{},
		&Article{},
		&Quote{},
		&QuoteArticle{},
		&QuoteTopic{},
		&QuoteKeyword{},
		&QuoteRelationship{},
		&QuoteEmbedding{},
		&DisambiguationQueueItem{},
		&PersonMerge{},
		&User{},
	}
}
