package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// testDB returns a migrated archive or skips if DATABASE_URL is not set.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	return openMigrated(t, dsn)
}

func openMigrated(t *testing.T, dsn string) *DB {
	t.Helper()
	require.NoError(t, Migrate(dsn))

	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func sample(text string, ts time.Time) models.AnalysisResult {
	return models.AnalysisResult{
		ID:         uuid.NewString(),
		Num:        1,
		Text:       text,
		Sentiment:  models.SentimentNegative,
		Priority:   models.PriorityHigh,
		Confidence: 0.75,
		Timestamp:  ts,
		Tags:       models.Tags{"billing", "refund"},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	db := testDB(t)
	exerciseArchive(t, db)
}

// exerciseArchive is shared with the container-backed integration test.
func exerciseArchive(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	older := sample("older", now.Add(-time.Hour))
	newer := sample("newer", now)
	require.NoError(t, db.Upsert(ctx, older, newer))

	got, ok, err := db.Get(ctx, newer.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer.Text, got.Text)
	assert.Equal(t, newer.Tags, got.Tags)
	assert.True(t, newer.Timestamp.Equal(got.Timestamp))

	edited := newer
	edited.Text = "edited"
	edited.Tags = models.Tags{}
	require.NoError(t, db.Upsert(ctx, edited))
	got, _, err = db.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.Empty(t, got.Tags)

	list, err := db.List(ctx, 1000)
	require.NoError(t, err)
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, older.ID)

	require.NoError(t, db.Delete(ctx, older.ID))
	require.NoError(t, db.Delete(ctx, older.ID), "deleting twice is fine")
	_, ok, err = db.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Upsert(ctx))
}

func TestMigrationsIdempotent(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn))
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, nullTime(ts))
	assert.True(t, nullTime(ts).Equal(ts))
}
