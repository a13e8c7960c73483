package dailyrag

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/dailyrag/ai/mock"
	"github.com/poiesic/dailyrag/cache"
	"github.com/poiesic/dailyrag/config"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Morning Murli 05.08.25</title><style>p { color: red; }</style></head>
<body>
<h1>Essence</h1>
<p>Sweet children, the topic today is remembrance of the Father.</p>
<p>Question: What is the method to become pure? Answer: Remembrance.</p>
<p>Blessing: May you be an embodiment of success.</p>
</body>
</html>`

var testNow = time.Date(2025, time.August, 5, 9, 0, 0, 0, time.Local)

// articleServer serves page for every request and counts hits.
type articleServer struct {
	*httptest.Server
	hits atomic.Int64

	mu    sync.Mutex
	paths []string
}

func (as *articleServer) requested() []string {
	as.mu.Lock()
	defer as.mu.Unlock()
	return append([]string(nil), as.paths...)
}

func newArticleServer(t *testing.T, status int, page string) *articleServer {
	t.Helper()
	as := &articleServer{}
	as.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		as.hits.Add(1)
		as.mu.Lock()
		as.paths = append(as.paths, r.URL.Path)
		as.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, page)
	}))
	t.Cleanup(as.Close)
	return as
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CacheRoot = filepath.Join(t.TempDir(), "db")
	cfg.SourceBaseURL = baseURL + "/"
	cfg.ChunkSize = 80
	cfg.ChunkOverlap = 10
	return cfg
}

func clockAt(now time.Time) Option {
	return WithClock(func() time.Time { return now })
}

func TestOpen_BuildsOnceAndReuses(t *testing.T) {
	ctx := context.Background()
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)
	provider := mock.NewMockProvider().(*mock.MockProvider)
	embedder := provider.GetMockEmbedder()

	first, err := Open(ctx, cfg, clockAt(testNow), WithProvider(provider))
	require.NoError(t, err)

	assert.False(t, first.Reused())
	assert.Equal(t, core.DateKey("05.08.25"), first.Key())
	assert.Equal(t, srv.URL+"/05.08.25-E.htm", first.SourceURL())
	assert.Equal(t, "Morning Murli 05.08.25", first.Title())
	assert.Equal(t, []string{"/05.08.25-E.htm"}, srv.requested())
	assert.Greater(t, first.Manifest().Chunks, 1)
	assert.Equal(t, "nomic-embed-text", first.Manifest().EmbeddingModel)
	assert.FileExists(t, filepath.Join(cfg.CacheRoot, "05.08.25", cache.MarkerName))

	buildCalls := embedder.CallCount()
	assert.Positive(t, buildCalls)
	require.NoError(t, first.Close())

	// Same day, later: no fetch and no embedding
	second, err := Open(ctx, cfg, clockAt(testNow.Add(10*time.Hour)), WithProvider(provider))
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, second.Reused())
	assert.Equal(t, int64(1), srv.hits.Load())
	assert.Equal(t, buildCalls, embedder.CallCount())
	assert.Equal(t, first.Manifest().Chunks, second.Manifest().Chunks)
	assert.Equal(t, "Morning Murli 05.08.25", second.Title())
}

func TestOpen_NextDayFetchesAgain(t *testing.T) {
	ctx := context.Background()
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)
	provider := mock.NewMockProvider()

	first, err := Open(ctx, cfg, clockAt(testNow), WithProvider(provider))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	next, err := Open(ctx, cfg, clockAt(testNow.AddDate(0, 0, 1)), WithProvider(provider))
	require.NoError(t, err)
	defer next.Close()

	assert.False(t, next.Reused())
	assert.Equal(t, core.DateKey("06.08.25"), next.Key())
	assert.Equal(t, int64(2), srv.hits.Load())
	assert.DirExists(t, filepath.Join(cfg.CacheRoot, "05.08.25"), "yesterday is within retention")
}

func TestOpen_PrunesExpiredIndexes(t *testing.T) {
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)
	require.NoError(t, os.MkdirAll(cfg.CacheRoot, 0o755))

	for _, name := range []string{"01.08.25", "02.08.25", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(cfg.CacheRoot, name), 0o755))
	}

	a, err := Open(context.Background(), cfg, clockAt(testNow), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer a.Close()

	assert.NoDirExists(t, filepath.Join(cfg.CacheRoot, "01.08.25"))
	assert.DirExists(t, filepath.Join(cfg.CacheRoot, "02.08.25"))
	assert.DirExists(t, filepath.Join(cfg.CacheRoot, "notes"))
}

func TestOpen_Ask(t *testing.T) {
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)

	a, err := Open(context.Background(), cfg, clockAt(testNow), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer a.Close()

	text, err := a.Ask(context.Background(), "What is the topic?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Question: What is the topic?\n\nContext: "))

	ans, err := a.Answer(context.Background(), "What is the topic?")
	require.NoError(t, err)
	assert.Len(t, ans.Sources, 2)

	hits, err := a.Search(context.Background(), "remembrance", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestOpen_FetchFailure(t *testing.T) {
	srv := newArticleServer(t, http.StatusNotFound, "not found")
	cfg := testConfig(t, srv.URL)
	provider := mock.NewMockProvider()

	_, err := Open(context.Background(), cfg, clockAt(testNow), WithProvider(provider))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(cfg.CacheRoot, "05.08.25", cache.MarkerName))

	// No marker means the next run rebuilds
	manager, err := cache.NewManager(cfg.CacheRoot)
	require.NoError(t, err)
	entry, err := manager.Resolve("05.08.25")
	require.NoError(t, err)
	assert.False(t, entry.Reuse)
}

func TestOpen_EmptyDocument(t *testing.T) {
	pages := map[string]string{
		"blank body":      "<html><head><title>t</title></head><body>  </body></html>",
		"empty response":  "",
		"whitespace only": "\r\n  \n",
	}
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			srv := newArticleServer(t, http.StatusOK, page)
			cfg := testConfig(t, srv.URL)

			_, err := Open(context.Background(), cfg, clockAt(testNow), WithProvider(mock.NewMockProvider()))
			assert.ErrorIs(t, err, ingestion.ErrEmptyDocument)
			assert.NoFileExists(t, filepath.Join(cfg.CacheRoot, "05.08.25", cache.MarkerName))
		})
	}
}

func TestOpen_CorruptIndex(t *testing.T) {
	ctx := context.Background()
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)
	provider := mock.NewMockProvider()

	a, err := Open(ctx, cfg, clockAt(testNow), WithProvider(provider))
	require.NoError(t, err)
	manifest := a.Manifest()
	require.NoError(t, a.Close())

	manager, err := cache.NewManager(cfg.CacheRoot)
	require.NoError(t, err)
	entry, err := manager.Resolve(manifest.DateKey)
	require.NoError(t, err)

	manifest.Chunks += 5
	require.NoError(t, manager.Commit(entry, manifest))

	_, err = Open(ctx, cfg, clockAt(testNow), WithProvider(provider))
	assert.ErrorIs(t, err, cache.ErrCorruptIndex)
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestOpen_InvalidArguments(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConfigRequired)

	cfg := config.Default()
	cfg.TopN = 0
	_, err = Open(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestAssistant_Close(t *testing.T) {
	srv := newArticleServer(t, http.StatusOK, articlePage)
	cfg := testConfig(t, srv.URL)

	provider := mock.NewMockProvider().(*mock.MockProvider)
	a, err := Open(context.Background(), cfg, clockAt(testNow), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Zero(t, provider.CloseCount(), "a provider passed in stays open")

	_, err = a.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = a.Search(context.Background(), "anything", 1)
	assert.ErrorIs(t, err, ErrClosed)
}
