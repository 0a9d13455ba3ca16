// Package progress_test tests progress persistence.
package progress_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/store/progress"
)

func day(t *testing.T) harvest.Day {
	t.Helper()
	d, err := harvest.ParseDay("2025-03-14")
	require.NoError(t, err)
	return d
}

func TestLoadMissingYieldsEmptyState(t *testing.T) {
	t.Parallel()

	store, err := progress.New(progress.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	state, err := store.Load(day(t))
	require.NoError(t, err)
	scraped, failed := state.Counts()
	assert.Zero(t, scraped)
	assert.Zero(t, failed)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := progress.New(progress.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)

	state := harvest.NewProgressState()
	state.MarkScraped("key-a")
	state.MarkScraped("key-b")
	state.IncAttempts("key-c")
	state.IncAttempts("key-c")
	state.MarkFailed("key-d")

	require.NoError(t, store.Save(d, state))

	loaded, err := store.Load(d)
	require.NoError(t, err)
	assert.True(t, loaded.IsScraped("key-a"))
	assert.True(t, loaded.IsScraped("key-b"))
	assert.True(t, loaded.IsFailed("key-d"))
	assert.Equal(t, 2, loaded.Attempts("key-c"))
	assert.False(t, loaded.IsScraped("key-d"))
}

func TestSaveIsDeterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := progress.New(progress.Config{BaseDir: dir})
	require.NoError(t, err)
	d := day(t)

	state := harvest.NewProgressState()
	state.MarkScraped("zzz")
	state.MarkScraped("aaa")
	state.MarkFailed("mmm")

	require.NoError(t, store.Save(d, state))
	first, err := os.ReadFile(filepath.Join(dir, "2025-03-14.json"))
	require.NoError(t, err)

	require.NoError(t, store.Save(d, state))
	second, err := os.ReadFile(filepath.Join(dir, "2025-03-14.json"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := progress.New(progress.Config{BaseDir: dir})
	require.NoError(t, err)

	state := harvest.NewProgressState()
	state.MarkScraped("key")
	require.NoError(t, store.Save(day(t), state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-03-14.json", entries[0].Name())
}

func TestSaveReplacesPriorState(t *testing.T) {
	t.Parallel()

	store, err := progress.New(progress.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	d := day(t)

	first := harvest.NewProgressState()
	first.MarkFailed("key-x")
	require.NoError(t, store.Save(d, first))

	second := harvest.NewProgressState()
	second.MarkScraped("key-x")
	require.NoError(t, store.Save(d, second))

	loaded, err := store.Load(d)
	require.NoError(t, err)
	assert.True(t, loaded.IsScraped("key-x"))
	assert.False(t, loaded.IsFailed("key-x"))
}
