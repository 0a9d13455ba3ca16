// Package output_test tests the partitioned article store.
package output_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/store/output"
)

func day(t *testing.T) harvest.Day {
	t.Helper()
	d, err := harvest.ParseDay("2025-03-14")
	require.NoError(t, err)
	return d
}

func record(content string) harvest.ArticleRecord {
	return harvest.ArticleRecord{
		Source:      "dawn",
		Link:        "https://www.dawn.com/news/1",
		Title:       "Headline",
		Content:     &content,
		RetrievedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := output.New(output.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})
	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := output.New(output.Config{})
		assert.Error(t, err)
	})
	t.Run("CreatesMissingDir", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "articles")
		_, err := output.New(output.Config{BaseDir: base})
		require.NoError(t, err)
		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)

	rec := record("Body text long enough to matter.")
	require.NoError(t, store.Write(d, "aaaa111122223333", rec))
	assert.True(t, store.Exists(d, "aaaa111122223333"))

	got, err := store.Read(d, "aaaa111122223333")
	require.NoError(t, err)
	assert.Equal(t, rec.Title, got.Title)
	require.NotNil(t, got.Content)
	assert.Equal(t, *rec.Content, *got.Content)
}

func TestPathIsDeterministicAndPartitioned(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := output.New(output.Config{BaseDir: base})
	require.NoError(t, err)
	d := day(t)

	p1 := store.Path(d, "aaaa111122223333")
	p2 := store.Path(d, "aaaa111122223333")
	assert.Equal(t, p1, p2)
	assert.Equal(t,
		filepath.Join(base, "2025", "03", "14", "2025-03-14_aaaa111122223333.json"), p1)
}

func TestWriteIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)
	rec := record("Same content both times.")

	require.NoError(t, store.Write(d, "bbbb111122223333", rec))
	first, err := os.ReadFile(store.Path(d, "bbbb111122223333"))
	require.NoError(t, err)

	require.NoError(t, store.Write(d, "bbbb111122223333", rec))
	second, err := os.ReadFile(store.Path(d, "bbbb111122223333"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "same record must produce byte-identical file")

	// No duplicate files appear.
	entries, err := os.ReadDir(filepath.Dir(store.Path(d, "bbbb111122223333")))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadCorruptRecord(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)

	path := store.Path(d, "cccc111122223333")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = store.Read(d, "cccc111122223333")
	var corrupt *harvest.CorruptRecordError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
}

func TestDeleteMissingIsNoError(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, store.Delete(day(t), "does-not-exist"))
}

func TestWalkVisitsAllIncludingCorrupt(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)

	require.NoError(t, store.Write(d, "dddd111122223333", record("valid body")))
	badPath := store.Path(d, "eeee111122223333")
	require.NoError(t, os.WriteFile(badPath, []byte("garbage"), 0o600))

	seen := map[string]bool{}
	corruptKeys := map[string]bool{}
	err = store.Walk(d, func(key string, _ harvest.ArticleRecord, decodeErr error) error {
		seen[key] = true
		if decodeErr != nil {
			corruptKeys[key] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.True(t, corruptKeys["eeee111122223333"])
	assert.False(t, corruptKeys["dddd111122223333"])
}

func TestWalkMissingPartition(t *testing.T) {
	t.Parallel()

	store, err := output.New(output.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	err = store.Walk(day(t), func(string, harvest.ArticleRecord, error) error {
		t.Fatal("no records expected")
		return nil
	})
	assert.NoError(t, err)
}
