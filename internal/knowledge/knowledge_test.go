package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDocs = []Document{
	{
		ID:      "eiwit",
		Title:   "Eiwitbehoefte",
		Tags:    []string{"voeding"},
		Content: "Krachtsporters hebben 1.6 tot 2.2 gram eiwit per kilogram lichaamsgewicht nodig. Bij afvallen is de bovenkant van dat bereik aan te raden.",
	},
	{
		ID:      "slaap",
		Title:   "Slaap en herstel",
		Content: "Zeven tot negen uur slaap ondersteunt herstel na training.",
	},
	{
		ID:      "creatine",
		Title:   "Creatine",
		Tags:    []string{"supplementen"},
		Content: "Creatine monohydraat van 3 tot 5 gram per dag heeft sterk bewijs voor krachttoename.",
	},
}

func newIndexed(t *testing.T) *IndexRetriever {
	t.Helper()
	idx, err := OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	res, err := NewIngester(idx, DefaultChunkerConfig()).Ingest(context.Background(), testDocs)
	require.NoError(t, err)
	require.Equal(t, 3, res.Documents)
	return NewIndexRetriever(idx)
}

func TestIndexRetriever_Retrieve(t *testing.T) {
	r := newIndexed(t)

	evidence := r.Retrieve(context.Background(), "eiwit", 2)
	require.NotEmpty(t, evidence)
	assert.True(t, strings.HasPrefix(evidence, "[Eiwitbehoefte] "), "evidence = %q", evidence)
	assert.NotContains(t, evidence, "Slaap")
}

func TestIndexRetriever_Budget(t *testing.T) {
	r := newIndexed(t)

	evidence := r.Retrieve(context.Background(), "gram creatine eiwit", 1)
	assert.Equal(t, 1, strings.Count(evidence, "["))

	evidence = r.Retrieve(context.Background(), "gram creatine eiwit", 5)
	assert.Equal(t, 2, len(strings.Split(evidence, "\n\n")))
}

func TestIndexRetriever_Empty(t *testing.T) {
	r := newIndexed(t)
	assert.Empty(t, r.Retrieve(context.Background(), "   ", 3))
	assert.Empty(t, r.Retrieve(context.Background(), "quantumfysica", 3))
	assert.Empty(t, NewIndexRetriever(nil).Retrieve(context.Background(), "eiwit", 3))
	assert.Empty(t, Noop{}.Retrieve(context.Background(), "eiwit", 3))
}

func TestOpenIndex_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.bleve")

	idx, err := OpenIndex(path)
	require.NoError(t, err)
	_, err = NewIngester(idx, DefaultChunkerConfig()).Ingest(context.Background(), testDocs[:1])
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := OpenIndex(path)
	require.NoError(t, err)
	defer reopened.Close()
	count, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

type countingRetriever struct {
	calls atomic.Int32
}

func (c *countingRetriever) Retrieve(_ context.Context, query string, _ int) string {
	c.calls.Add(1)
	return "[x] " + query
}

func TestCachedRetriever(t *testing.T) {
	inner := &countingRetriever{}
	c := NewCachedRetriever(inner, 10, time.Minute)
	ctx := context.Background()

	assert.Equal(t, "[x] eiwit", c.Retrieve(ctx, "eiwit", 3))
	assert.Equal(t, "[x] eiwit", c.Retrieve(ctx, "eiwit", 3))
	assert.Equal(t, int32(1), inner.calls.Load())

	c.Retrieve(ctx, "eiwit", 4)
	assert.Equal(t, int32(2), inner.calls.Load(), "budget is part of the key")
	assert.Equal(t, 2, c.Len())
}

func TestCachedRetriever_SkipsCanceled(t *testing.T) {
	inner := &countingRetriever{}
	c := NewCachedRetriever(inner, 10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Retrieve(ctx, "eiwit", 3)
	assert.Equal(t, 0, c.Len())
}

type flakySearcher struct {
	countingRetriever
	failures atomic.Int32
}

func (f *flakySearcher) Search(ctx context.Context, query string, budget int) (string, error) {
	if f.failures.Add(-1) >= 0 {
		return "", errors.New("index unavailable")
	}
	return f.Retrieve(ctx, query, budget), nil
}

func TestCachedRetriever_SkipsFailedSearch(t *testing.T) {
	inner := &flakySearcher{}
	inner.failures.Store(1)
	c := NewCachedRetriever(inner, 10, time.Minute)
	ctx := context.Background()

	assert.Empty(t, c.Retrieve(ctx, "eiwit", 3))
	assert.Equal(t, 0, c.Len())

	assert.Equal(t, "[x] eiwit", c.Retrieve(ctx, "eiwit", 3))
	assert.Equal(t, 1, c.Len())
}

func TestCachedRetriever_ClosedIndex(t *testing.T) {
	idx, err := OpenIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	r := NewIndexRetriever(idx)
	_, err = r.Search(context.Background(), "eiwit", 3)
	require.Error(t, err)

	c := NewCachedRetriever(r, 10, time.Minute)
	assert.Empty(t, c.Retrieve(context.Background(), "eiwit", 3))
	assert.Equal(t, 0, c.Len())
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`documents:
  - id: eiwit
    title: Eiwitbehoefte
    tags: [voeding]
    content: |
      Eiwit ondersteunt spierherstel.
  - id: slaap
    title: Slaap
    content: Slaap is belangrijk.
`), 0o644))

	docs, err := LoadSource(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"voeding"}, docs[0].Tags)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("documents:\n  - id: a\n    content: x\n  - id: a\n    content: y\n"), 0o644))
	_, err = LoadSource(dup)
	assert.ErrorContains(t, err, "duplicate")

	_, err = LoadSource(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestChunkText(t *testing.T) {
	assert.Nil(t, ChunkText("  ", DefaultChunkerConfig()))
	assert.Equal(t, []string{"kort"}, ChunkText("kort", DefaultChunkerConfig()))

	para := strings.Repeat("woord ", 30)
	text := strings.Join([]string{para, para, para, para}, "\n\n")
	cfg := ChunkerConfig{ChunkSize: 200, ChunkOverlap: 20}

	chunks := ChunkText(text, cfg)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.ChunkSize)
	}
}

func TestChunkText_OversizedSegment(t *testing.T) {
	text := strings.Repeat("a", 500)
	chunks := ChunkText(text, ChunkerConfig{ChunkSize: 100})
	assert.Len(t, chunks, 5)
}
