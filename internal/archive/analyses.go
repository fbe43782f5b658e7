package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tagging-ai/tagboard/pkg/models"
)

const columns = `id, num, text, sentiment, priority, confidence, tags, detailed_analysis, analyzed_at`

// Upsert stores records, replacing rows with the same id.
func (db *DB) Upsert(ctx context.Context, records ...models.AnalysisResult) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO analyses (`+columns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			   text = EXCLUDED.text,
			   sentiment = EXCLUDED.sentiment,
			   priority = EXCLUDED.priority,
			   confidence = EXCLUDED.confidence,
			   tags = EXCLUDED.tags,
			   detailed_analysis = EXCLUDED.detailed_analysis,
			   archived_at = now()`,
			r.ID, r.Num, r.Text, string(r.Sentiment), string(r.Priority), r.Confidence,
			[]string(r.Tags.Clone()), r.DetailedAnalysis, nullTime(r.Timestamp),
		)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to archive records: %w", err)
		}
	}
	return nil
}

// Delete removes id. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// Get returns the archived record with id, or false.
func (db *DB) Get(ctx context.Context, id string) (models.AnalysisResult, bool, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+columns+` FROM analyses WHERE id = $1`, id)
	r, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AnalysisResult{}, false, nil
	}
	if err != nil {
		return models.AnalysisResult{}, false, err
	}
	return r, true, nil
}

// List returns archived records newest first. limit <= 0 means 100.
func (db *DB) List(ctx context.Context, limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+columns+` FROM analyses
		 ORDER BY analyzed_at DESC NULLS LAST, id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var out []models.AnalysisResult
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of archived records.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	return n, err
}

func scan(row pgx.Row) (models.AnalysisResult, error) {
	var (
		r          models.AnalysisResult
		sentiment  string
		priority   string
		tags       []string
		analyzedAt *time.Time
	)
	if err := row.Scan(&r.ID, &r.Num, &r.Text, &sentiment, &priority, &r.Confidence, &tags, &r.DetailedAnalysis, &analyzedAt); err != nil {
		return models.AnalysisResult{}, err
	}
	r.Sentiment = models.Sentiment(sentiment)
	r.Priority = models.Priority(priority)
	r.Tags = models.Tags(tags).Clone()
	if analyzedAt != nil {
		r.Timestamp = analyzedAt.UTC()
	}
	return r, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
