package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const personColumns = `
	p.person_id,
	p.person_uuid::text,
	p.canonical_name,
	p.disambiguation,
	p.quote_count,
	p.first_seen_at,
	p.last_seen_at`

func scanPerson(row rowScanner) (PersonRecord, error) {
	var rec PersonRecord
	if err := row.Scan(
		&rec.PersonID,
		&rec.PersonUUID,
		&rec.CanonicalName,
		&rec.Disambiguation,
		&rec.QuoteCount,
		&rec.FirstSeenAt,
		&rec.LastSeenAt,
	); err != nil {
		return PersonRecord{}, err
	}
	return rec, nil
}

func scanPersons(rows *Rows) ([]PersonRecord, error) {
	defer rows.Close()

	out := make([]PersonRecord, 0, 8)
	for rows.Next() {
		rec, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

// GetPerson loads one person by id.
func (p *Pool) GetPerson(ctx context.Context, personID int64) (PersonRecord, error) {
	const q = `
SELECT` + personColumns + `
FROM quotelog.persons p
WHERE p.person_id = $1
`
	rec, err := scanPerson(p.QueryRow(ctx, q, personID))
	if err != nil {
		if IsNoRows(err) {
			return PersonRecord{}, ErrNoRows
		}
		return PersonRecord{}, fmt.Errorf("query person person_id=%d: %w", personID, err)
	}
	return rec, nil
}

// FindPersonsByAlias returns every person owning an alias with the given
// normalized form, oldest first.
func (p *Pool) FindPersonsByAlias(ctx context.Context, aliasNormalized string) ([]PersonRecord, error) {
	const q = `
SELECT` + personColumns + `
FROM quotelog.persons p
WHERE p.person_id IN (
	SELECT a.person_id
	FROM quotelog.person_aliases a
	WHERE a.alias_normalized = $1
)
ORDER BY p.person_id ASC
`
	rows, err := p.Query(ctx, q, aliasNormalized)
	if err != nil {
		return nil, fmt.Errorf("query persons by alias: %w", err)
	}
	return scanPersons(rows)
}

// FindPersonsByPhonetic returns persons holding any of codes for partType.
func (p *Pool) FindPersonsByPhonetic(ctx context.Context, partType string, codes []string) ([]PersonRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	const q = `
SELECT` + personColumns + `
FROM quotelog.persons p
WHERE p.person_id IN (
	SELECT ph.person_id
	FROM quotelog.person_phonetics ph
	WHERE ph.part_type = $1
	  AND ph.phonetic_code IN (SELECT jsonb_array_elements_text($2::jsonb))
)
ORDER BY p.person_id ASC
`
	rows, err := p.Query(ctx, q, partType, encodeJSONList(codes))
	if err != nil {
		return nil, fmt.Errorf("query persons by phonetic part_type=%s: %w", partType, err)
	}
	return scanPersons(rows)
}

// FuzzyAliasCandidates returns persons whose aliases are trigram-close to
// lastName. It is the blocking step for the fuzzy resolver stage.
func (p *Pool) FuzzyAliasCandidates(ctx context.Context, lastName string, limit int) ([]PersonRecord, error) {
	if lastName == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}

	const q = `
SELECT` + personColumns + `
FROM quotelog.persons p
JOIN (
	SELECT a.person_id, MAX(word_similarity($1, a.alias_normalized)) AS score
	FROM quotelog.person_aliases a
	WHERE word_similarity($1, a.alias_normalized) > 0.3
	GROUP BY a.person_id
) best ON best.person_id = p.person_id
ORDER BY best.score DESC, p.person_id ASC
LIMIT $2
`
	rows, err := p.Query(ctx, q, lastName, limit)
	if err != nil {
		return nil, fmt.Errorf("query fuzzy alias candidates: %w", err)
	}
	return scanPersons(rows)
}

// ListAliases returns the aliases of the given persons keyed by person id.
func (p *Pool) ListAliases(ctx context.Context, personIDs []int64) (map[int64][]AliasRecord, error) {
	out := make(map[int64][]AliasRecord, len(personIDs))
	if len(personIDs) == 0 {
		return out, nil
	}

	const q = `
SELECT
	a.person_alias_id,
	a.person_id,
	a.alias,
	a.alias_normalized,
	a.alias_type,
	a.confidence,
	a.source
FROM quotelog.person_aliases a
WHERE a.person_id IN (SELECT jsonb_array_elements_text($1::jsonb)::BIGINT)
ORDER BY a.person_id ASC, a.person_alias_id ASC
`
	rows, err := p.Query(ctx, q, encodeJSONList(personIDs))
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec AliasRecord
		if err := rows.Scan(
			&rec.PersonAliasID,
			&rec.PersonID,
			&rec.Alias,
			&rec.AliasNormalized,
			&rec.AliasType,
			&rec.Confidence,
			&rec.Source,
		); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out[rec.PersonID] = append(out[rec.PersonID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return out, nil
}

func (s *storeTx) LockPerson(ctx context.Context, personID int64) (PersonRecord, error) {
	const q = `
SELECT` + personColumns + `
FROM quotelog.persons p
WHERE p.person_id = $1
FOR UPDATE
`
	rec, err := scanPerson(s.tx.QueryRow(ctx, q, personID))
	if err != nil {
		if IsNoRows(err) {
			return PersonRecord{}, ErrNoRows
		}
		return PersonRecord{}, fmt.Errorf("lock person person_id=%d: %w", personID, err)
	}
	return rec, nil
}

func (s *storeTx) InsertPerson(ctx context.Context, person NewPerson) (PersonRecord, error) {
	const q = `
INSERT INTO quotelog.persons AS p (
	canonical_name,
	disambiguation,
	quote_count,
	first_seen_at,
	last_seen_at,
	created_at,
	updated_at
)
VALUES ($1, $2, 0, $3, $3, $3, $3)
RETURNING` + personColumns

	rec, err := scanPerson(s.tx.QueryRow(ctx, q, person.CanonicalName, person.Disambiguation, person.SeenAt))
	if err != nil {
		return PersonRecord{}, fmt.Errorf("insert person: %w", err)
	}
	return rec, nil
}

func (s *storeTx) IncrementPersonQuoteCount(ctx context.Context, personID int64, seenAt time.Time) error {
	const q = `
UPDATE quotelog.persons
SET quote_count = quote_count + 1,
	last_seen_at = GREATEST(last_seen_at, $2),
	updated_at = now()
WHERE person_id = $1
`
	tag, err := s.tx.Exec(ctx, q, personID, seenAt)
	if err != nil {
		return fmt.Errorf("increment quote_count person_id=%d: %w", personID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// TouchPerson moves last_seen_at forward without changing quote_count.
func (s *storeTx) TouchPerson(ctx context.Context, personID int64, seenAt time.Time) error {
	const q = `
UPDATE quotelog.persons
SET last_seen_at = GREATEST(last_seen_at, $2),
	updated_at = now()
WHERE person_id = $1
`
	tag, err := s.tx.Exec(ctx, q, personID, seenAt)
	if err != nil {
		return fmt.Errorf("touch person_id=%d: %w", personID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// RecountPersonQuotes recomputes quote_count from canonical quotes.
func (s *storeTx) RecountPersonQuotes(ctx context.Context, personID int64, now time.Time) (int, error) {
	const q = `
UPDATE quotelog.persons p
SET quote_count = (
		SELECT COUNT(*)
		FROM quotelog.quotes q
		WHERE q.person_id = p.person_id
		  AND q.canonical_quote_id IS NULL
	),
	updated_at = $2
WHERE p.person_id = $1
RETURNING p.quote_count
`
	var count int
	if err := s.tx.QueryRow(ctx, q, personID, now).Scan(&count); err != nil {
		if IsNoRows(err) {
			return 0, ErrNoRows
		}
		return 0, fmt.Errorf("recount quotes person_id=%d: %w", personID, err)
	}
	return count, nil
}

// InsertAlias adds an alias unless the person already owns that normalized
// form. It reports whether a row was written.
func (s *storeTx) InsertAlias(ctx context.Context, alias AliasRecord) (bool, error) {
	const q = `
INSERT INTO quotelog.person_aliases (
	person_id,
	alias,
	alias_normalized,
	alias_type,
	confidence,
	source,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (person_id, alias_normalized) DO NOTHING
`
	tag, err := s.tx.Exec(
		ctx,
		q,
		alias.PersonID,
		alias.Alias,
		alias.AliasNormalized,
		alias.AliasType,
		alias.Confidence,
		alias.Source,
	)
	if err != nil {
		return false, fmt.Errorf("insert alias person_id=%d: %w", alias.PersonID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *storeTx) InsertPhonetics(ctx context.Context, rows []PhoneticRecord) error {
	const q = `
INSERT INTO quotelog.person_phonetics (
	person_id,
	name_part,
	phonetic_code,
	part_type
)
VALUES ($1, $2, $3, $4)
ON CONFLICT (person_id, phonetic_code, part_type) DO NOTHING
`
	for _, row := range rows {
		if _, err := s.tx.Exec(ctx, q, row.PersonID, row.NamePart, row.PhoneticCode, row.PartType); err != nil {
			return fmt.Errorf("insert phonetic person_id=%d code=%s: %w", row.PersonID, row.PhoneticCode, err)
		}
	}
	return nil
}

func (s *storeTx) InsertPersonMerge(ctx context.Context, record PersonMergeRecord) (int64, error) {
	const q = `
INSERT INTO quotelog.person_merges (
	surviving_person_id,
	merged_person_id,
	merged_name,
	queue_item_id,
	merged_at,
	merged_by,
	confidence,
	reason
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING person_merge_id
`
	var id int64
	if err := s.tx.QueryRow(
		ctx,
		q,
		record.SurvivingPersonID,
		record.MergedPersonID,
		record.MergedName,
		record.QueueItemID,
		record.MergedAt,
		record.MergedBy,
		record.Confidence,
		record.Reason,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert person_merge surviving_person_id=%d: %w", record.SurvivingPersonID, err)
	}
	return id, nil
}

func marshalSignals(signals map[string]any) (string, error) {
	if len(signals) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
