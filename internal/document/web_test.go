package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// testRetryPolicy keeps backoff waits out of unit tests.
func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newTestWebLoader(t *testing.T) *WebLoader {
	t.Helper()
	l, err := NewWebLoader(WebLoaderConfig{
		Client: &http.Client{Timeout: 5 * time.Second},
		Retry:  testRetryPolicy(),
		Logger: log.NewNop(),
	})
	require.NoError(t, err)
	return l
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "scripts and styles dropped",
			html: `<html><head><style>p{color:red}</style></head><body><script>var x=1;</script><p>Tuition: $50,000!</p></body></html>`,
			want: "tuition 50000",
		},
		{
			name: "whitespace collapsed and lowercased",
			html: "<p>About   Our\n\nSchool</p>",
			want: "about our school",
		},
		{
			name: "empty page",
			html: "<html><body></body></html>",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebLoaderLoad_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Admission, Deadlines &amp; Fees</p></body></html>"))
	}))
	defer srv.Close()

	doc, err := newTestWebLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "admission deadlines fees", doc.Text)
	assert.Equal(t, srv.URL, doc.Metadata[MetaSource])
	assert.Equal(t, TypeWebsite, doc.Metadata[MetaType])
}

func TestWebLoaderLoad_RetriesForbidden(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("<p>welcome</p>"))
	}))
	defer srv.Close()

	doc, err := newTestWebLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "welcome", doc.Text)
	assert.Equal(t, int32(3), calls.Load(), "two retries after the initial 403s")
}

func TestWebLoaderLoad_ForbiddenExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	doc, err := newTestWebLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, doc, "exhausted retries degrade to a nil document")
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebLoaderLoad_OtherStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	doc, err := newTestWebLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, int32(1), calls.Load(), "only 403 is retried")
}

func TestWebLoaderLoad_EmptyPageIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><script>nope()</script></body></html>"))
	}))
	defer srv.Close()

	doc, err := newTestWebLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, doc, "zero extractable text means no document")
}
