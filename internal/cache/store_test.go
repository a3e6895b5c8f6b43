package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s, err := New(Config{
		Dir:    t.TempDir(),
		Logger: log.NewNop(),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Logger: log.NewNop()})
	assert.Error(t, err, "missing dir must be rejected")

	_, err = New(Config{Dir: t.TempDir()})
	assert.Error(t, err, "missing logger must be rejected")
}

func TestValidDocument_ExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "fresh", age: time.Hour, want: true},
		{name: "one second inside window", age: DefaultDocumentExpiry - time.Second, want: true},
		{name: "exactly at window is stale", age: DefaultDocumentExpiry, want: false},
		{name: "past window", age: DefaultDocumentExpiry + time.Hour, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := now.Add(-tt.age).Format(time.RFC3339)
			got, err := s.ValidDocument(ts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValid_MalformedTimestamp(t *testing.T) {
	s := newTestStore(t, time.Now())

	_, err := s.ValidDocument("not-a-timestamp")
	assert.Error(t, err, "malformed timestamp must fail, not count as invalid")

	_, err = s.ValidCrawl("2026-13-99")
	assert.Error(t, err)
}

func TestLoadDocuments_MissingFile(t *testing.T) {
	s := newTestStore(t, time.Now())

	cache, err := s.LoadDocuments()
	require.NoError(t, err)
	assert.NotNil(t, cache.Websites)
	assert.NotNil(t, cache.PDFs)
	assert.Empty(t, cache.Websites)
	assert.Empty(t, cache.PDFs)
}

func TestLoadCrawl_MissingFile(t *testing.T) {
	s := newTestStore(t, time.Now())

	cache, err := s.LoadCrawl()
	require.NoError(t, err)
	assert.NotNil(t, cache)
	assert.Empty(t, cache)
}

func TestDocumentCache_RoundTrip(t *testing.T) {
	s := newTestStore(t, time.Now())

	cache := &DocumentCache{
		Websites: map[string]Entry{
			"https://harker.org/admission": {
				Content:   "admission details",
				Metadata:  map[string]string{"source": "https://harker.org/admission", "type": "website", "school": "harker"},
				Timestamp: s.Stamp(),
			},
		},
		PDFs: map[string]Entry{
			"data/harker/tuition.pdf": {
				Content:   "tuition schedule",
				Metadata:  map[string]string{"source": "tuition.pdf", "type": "pdf", "school": "harker"},
				Timestamp: s.Stamp(),
			},
		},
	}
	require.NoError(t, s.SaveDocuments(cache))

	loaded, err := s.LoadDocuments()
	require.NoError(t, err)
	assert.Equal(t, cache, loaded)

	// save(load()) is a no-op: a second round trip yields the same structure.
	require.NoError(t, s.SaveDocuments(loaded))
	again, err := s.LoadDocuments()
	require.NoError(t, err)
	assert.Equal(t, loaded, again)
}

func TestCrawlCache_RoundTrip(t *testing.T) {
	s := newTestStore(t, time.Now())

	cache := CrawlCache{
		CrawlKey("harker.org", 100): {
			Links:     []string{"https://www.harker.org/", "https://www.harker.org/admission"},
			Timestamp: s.Stamp(),
		},
	}
	require.NoError(t, s.SaveCrawl(cache))

	loaded, err := s.LoadCrawl()
	require.NoError(t, err)
	assert.Equal(t, cache, loaded)
}

func TestCrawlKey(t *testing.T) {
	assert.Equal(t, "harker.org_100", CrawlKey("harker.org", 100))
	assert.Equal(t, "keys.org_5", CrawlKey("keys.org", 5))
}
