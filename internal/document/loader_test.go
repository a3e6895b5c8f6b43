package document

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/cache"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.New(cache.Config{Dir: t.TempDir(), Logger: log.NewNop()})
	require.NoError(t, err)
	return s
}

func newTestLoader(t *testing.T, store *cache.Store, extract func(string) (string, error)) *Loader {
	t.Helper()
	web, err := NewWebLoader(WebLoaderConfig{
		Client: &http.Client{Timeout: 5 * time.Second},
		Retry:  testRetryPolicy(),
		Logger: log.NewNop(),
	})
	require.NoError(t, err)

	l, err := NewLoader(LoaderConfig{
		Cache:      store,
		Web:        web,
		Logger:     log.NewNop(),
		ExtractPDF: extract,
	})
	require.NoError(t, err)
	return l
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-fake"), 0o600))
}

func TestLoadPDFDir_SchoolScoping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Harker", "tuition.pdf"))
	writeFile(t, filepath.Join(dir, "overview.pdf"))
	writeFile(t, filepath.Join(dir, "notes.txt")) // ignored: not a pdf

	store := newTestCache(t)
	loader := newTestLoader(t, store, func(path string) (string, error) {
		return "text of " + filepath.Base(path), nil
	})

	docs, err := loader.LoadPDFDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byName := map[string]Document{}
	for _, d := range docs {
		byName[d.Metadata[MetaSource]] = d
	}

	scoped := byName["tuition.pdf"]
	assert.Equal(t, "harker", scoped.Metadata[MetaSchool], "subdirectory name scopes the school, lowercased")
	assert.Equal(t, TypePDF, scoped.Metadata[MetaType])

	unscoped := byName["overview.pdf"]
	_, hasSchool := unscoped.Metadata[MetaSchool]
	assert.False(t, hasSchool, "top-level pdfs are unscoped")
}

func TestLoadPDFDir_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.pdf"))
	writeFile(t, filepath.Join(dir, "bad.pdf"))

	loader := newTestLoader(t, newTestCache(t), func(path string) (string, error) {
		if filepath.Base(path) == "bad.pdf" {
			return "", errors.New("corrupt xref table")
		}
		return "ok", nil
	})

	docs, err := loader.LoadPDFDir(context.Background(), dir)
	require.NoError(t, err, "one corrupt file must not abort the batch")
	require.Len(t, docs, 1)
	assert.Equal(t, "good.pdf", docs[0].Metadata[MetaSource])
}

func TestLoadPDFDir_SecondBatchServedFromCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "harker", "handbook.pdf"))

	var extractions atomic.Int32
	store := newTestCache(t)
	loader := newTestLoader(t, store, func(path string) (string, error) {
		extractions.Add(1)
		return "handbook text", nil
	})

	first, err := loader.LoadPDFDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, int32(1), extractions.Load())

	second, err := loader.LoadPDFDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int32(1), extractions.Load(), "valid cache entry skips acquisition entirely")
	assert.Equal(t, first[0], second[0])
}

func TestLoadLinks_CachesAndScopes(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("<p>Admission Information</p>"))
	}))
	defer srv.Close()

	store := newTestCache(t)
	loader := newTestLoader(t, store, nil)

	links := []Link{{URL: srv.URL + "/admission", School: "Harker"}}

	docs, err := loader.LoadLinks(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "admission information", docs[0].Text)
	assert.Equal(t, "harker", docs[0].Metadata[MetaSchool])
	assert.Equal(t, TypeWebsite, docs[0].Metadata[MetaType])

	// Second batch hits the cache; the fetch counter must not move.
	again, err := loader.LoadLinks(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, docs[0], again[0])
}

func TestLoadLinks_DeadLinkSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := newTestLoader(t, newTestCache(t), nil)

	docs, err := loader.LoadLinks(context.Background(), []Link{{URL: srv.URL}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}
