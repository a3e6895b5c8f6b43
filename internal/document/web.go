package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// DefaultRequestTimeout bounds a single page fetch.
const DefaultRequestTimeout = 30 * time.Second

// userAgent identifies fetches to origin servers. Some school sites
// reject requests without a browser-like agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// errForbidden marks an HTTP 403, the only status worth retrying:
// school sites rate-limit with 403 and recover within seconds.
var errForbidden = errors.New("fetch returned 403")

// RetryPolicy is the bounded retry applied to HTTP 403 responses.
// Each retry waits a uniformly jittered interval in
// [MinBackoff, MaxBackoff].
type RetryPolicy struct {
	MaxRetries uint64
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryPolicy retries twice with a 5-10s jittered wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinBackoff: 5 * time.Second,
		MaxBackoff: 10 * time.Second,
	}
}

// backOff builds the backoff schedule for one load. The interval is
// centered between MinBackoff and MaxBackoff with randomization wide
// enough to cover the whole range, and does not grow across attempts.
func (p RetryPolicy) backOff() backoff.BackOff {
	center := (p.MinBackoff + p.MaxBackoff) / 2
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = center
	bo.MaxInterval = p.MaxBackoff
	bo.Multiplier = 1.0
	if center > 0 {
		bo.RandomizationFactor = float64(p.MaxBackoff-center) / float64(center)
	}
	return backoff.WithMaxRetries(bo, p.MaxRetries)
}

// WebLoader fetches web pages and canonicalizes them into Documents.
type WebLoader struct {
	client *http.Client
	retry  RetryPolicy
	logger log.Logger
}

// WebLoaderConfig contains the parameters for a WebLoader.
type WebLoaderConfig struct {
	Client *http.Client // nil = default client with DefaultRequestTimeout
	Retry  RetryPolicy  // zero = DefaultRetryPolicy
	Logger log.Logger   // required
}

// NewWebLoader creates a WebLoader.
func NewWebLoader(cfg WebLoaderConfig) (*WebLoader, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.MinBackoff == 0 {
		retry = DefaultRetryPolicy()
	}
	return &WebLoader{client: client, retry: retry, logger: cfg.Logger}, nil
}

// Load fetches url and returns its canonicalized Document, or nil when
// the page yields nothing usable. Fetch failures are logged and produce
// a nil Document, never an error: one dead link must not abort a batch.
// Only a canceled context surfaces as an error.
func (l *WebLoader) Load(ctx context.Context, url string) (*Document, error) {
	l.logger.Info("loading web document", "url", url)

	var body string
	op := func() error {
		status, b, err := l.fetch(ctx, url)
		if err != nil {
			return backoff.Permanent(err)
		}
		if status == http.StatusForbidden {
			return errForbidden
		}
		if status != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", status))
		}
		body = b
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(l.retry.backOff(), ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.Warn("loading web document failed", "url", url, "error", err)
		return nil, nil
	}

	text, err := Canonicalize(body)
	if err != nil {
		l.logger.Warn("canonicalizing web document failed", "url", url, "error", err)
		return nil, nil
	}
	if text == "" {
		l.logger.Warn("no data found", "url", url)
		return nil, nil
	}

	return &Document{
		Text: text,
		Metadata: map[string]string{
			MetaSource: url,
			MetaType:   TypeWebsite,
		},
	}, nil
}

func (l *WebLoader) fetch(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("reading %s: %w", url, err)
	}
	return resp.StatusCode, string(body), nil
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
)

// Canonicalize reduces HTML to a plain-text representation suited to
// embedding: script and style subtrees are dropped, whitespace is
// collapsed, punctuation is stripped, and the result is lowercased.
func Canonicalize(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style").Remove()

	text := doc.Text()
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = punctuationRe.ReplaceAllString(text, "")
	return strings.ToLower(strings.TrimSpace(text)), nil
}
