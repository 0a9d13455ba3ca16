package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeModel struct {
	annotation Annotation
	err        error
	calls      int
}

func (f *fakeModel) Annotate(_ context.Context, _ []byte) (Annotation, error) {
	f.calls++
	if f.err != nil {
		return Annotation{}, f.err
	}
	return f.annotation, nil
}

func (f *fakeModel) Close() error { return nil }

func longBody() string {
	return strings.Repeat("Officials announced new reservoir restrictions today. ", 4)
}

func writeTransformed(t *testing.T, root, source, rel, body string) {
	t.Helper()
	doc := map[string]any{
		"article_id":  strings.TrimSuffix(filepath.Base(rel), ".json"),
		"source_info": map[string]any{"source_name": source},
		"metadata":    map[string]any{"title": "T", "word_count": 40},
		"content":     map[string]any{"article_body": body, "summary": "", "keywords": []string{}},
		"entities":    map[string]any{"people": []string{}, "organizations": []string{}, "locations": []string{}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(root, source, "transformed_articles", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestPassEnrichesPendingArticles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTransformed(t, root, "dawn", "2024/03/05/a.json", longBody())
	writeTransformed(t, root, "dawn", "2024/03/05/b.json", longBody())

	model := &fakeModel{annotation: Annotation{
		Summary:  "Authorities restricted reservoir use.",
		Keywords: []string{"reservoir", "water"},
		Entities: []Entity{{Text: "Islamabad", Label: "LOCATION", WikidataID: "Q1166"}},
	}}
	pass := NewPass(Config{Root: root, Model: model, Delay: time.Millisecond, Logger: zap.NewNop()})

	stats, err := pass.Run(context.Background(), []string{"dawn"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Enriched)
	assert.Equal(t, 2, model.calls)

	data, err := os.ReadFile(filepath.Join(root, "dawn", "transformed_articles_ner", "2024/03/05/a.json"))
	require.NoError(t, err)
	var out document
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Authorities restricted reservoir use.", out.Content.Summary)
	assert.Equal(t, []string{"reservoir", "water"}, out.Content.Keywords)

	var entities []Entity
	require.NoError(t, json.Unmarshal(out.Entities, &entities))
	require.Len(t, entities, 1)
	assert.Equal(t, "Q1166", entities[0].WikidataID)

	// Second run is a no-op.
	stats, err = pass.Run(context.Background(), []string{"dawn"})
	require.NoError(t, err)
	assert.Zero(t, stats.Enriched)
	assert.Equal(t, 2, model.calls)
}

func TestPassSkipsShortBodies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTransformed(t, root, "dawn", "2024/03/05/short.json", "too short")

	model := &fakeModel{}
	pass := NewPass(Config{Root: root, Model: model, Delay: time.Millisecond, Logger: zap.NewNop()})

	stats, err := pass.Run(context.Background(), []string{"dawn"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, model.calls, "short bodies never reach the model")

	_, statErr := os.Stat(filepath.Join(root, "dawn", "transformed_articles_ner", "2024/03/05/short.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPassModelFailureCountsFailed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTransformed(t, root, "dawn", "2024/03/05/a.json", longBody())
	writeTransformed(t, root, "dawn", "2024/03/05/b.json", longBody())

	model := &fakeModel{err: errors.New("quota exceeded")}
	pass := NewPass(Config{Root: root, Model: model, Delay: time.Millisecond, Logger: zap.NewNop()})

	stats, err := pass.Run(context.Background(), []string{"dawn"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.Enriched)
}

func TestPassMissingSourceIsSkipped(t *testing.T) {
	t.Parallel()

	pass := NewPass(Config{Root: t.TempDir(), Model: &fakeModel{}, Logger: zap.NewNop()})
	stats, err := pass.Run(context.Background(), []string{"ghost"})
	require.NoError(t, err)
	assert.Zero(t, stats.Enriched+stats.Skipped+stats.Failed)
}
