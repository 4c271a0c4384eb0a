package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UpsertArticle records the source article of an extraction batch keyed by
// URL and returns its row. Title and publish time fill in when previously
// unknown.
func (p *Pool) UpsertArticle(ctx context.Context, url, title string, publishedAt *time.Time) (ArticleRecord, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return ArticleRecord{}, fmt.Errorf("article url is required")
	}

	const q = `
INSERT INTO quotelog.articles (
	url,
	title,
	published_at,
	created_at
)
VALUES ($1, $2, $3, now())
ON CONFLICT (url) DO UPDATE
SET title = CASE WHEN quotelog.articles.title = '' THEN EXCLUDED.title ELSE quotelog.articles.title END,
	published_at = COALESCE(quotelog.articles.published_at, EXCLUDED.published_at)
RETURNING
	article_id,
	url,
	title,
	published_at
`

	var rec ArticleRecord
	if err := p.QueryRow(ctx, q, url, strings.TrimSpace(title), publishedAt).Scan(
		&rec.ArticleID,
		&rec.URL,
		&rec.Title,
		&rec.PublishedAt,
	); err != nil {
		return ArticleRecord{}, fmt.Errorf("upsert article url=%s: %w", url, err)
	}
	return rec, nil
}
