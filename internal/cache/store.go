// Package cache persists the document and crawl caches as single JSON
// files under a configured directory.
//
// Both caches follow the same discipline: load the whole file once per
// batch, mutate in memory, save the whole file once at the end. There is
// no incremental API, so concurrent writers would race (last save wins);
// callers are single-process batch jobs.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Cache file names inside the store directory.
const (
	documentFile = "data_cache.json"
	crawlFile    = "scraper_cache.json"
)

// Default expiry windows. An entry older than its window is reloaded.
const (
	DefaultDocumentExpiry = 30 * 24 * time.Hour
	DefaultCrawlExpiry    = 14 * 24 * time.Hour
)

// Entry is one cached document: its canonicalized text, the source
// metadata it was tagged with, and the RFC 3339 time it was stored.
// Entries never mutate in place; reloading replaces the whole entry.
type Entry struct {
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp string            `json:"timestamp"`
}

// DocumentCache holds cached web pages keyed by URL and cached PDFs
// keyed by file path.
type DocumentCache struct {
	Websites map[string]Entry `json:"websites"`
	PDFs     map[string]Entry `json:"pdfs"`
}

// CrawlEntry is a memoized crawl result: the discovered URL list (never
// longer than the page budget it was crawled with) and its timestamp.
type CrawlEntry struct {
	Links     []string `json:"links"`
	Timestamp string   `json:"timestamp"`
}

// CrawlCache maps "<domain>_<maxPages>" keys to memoized crawl results.
type CrawlCache map[string]CrawlEntry

// CrawlKey builds the memoization key for a crawl of domain bounded by
// maxPages.
func CrawlKey(domain string, maxPages int) string {
	return fmt.Sprintf("%s_%d", domain, maxPages)
}

// Config contains the parameters for a Store.
type Config struct {
	Dir            string        // cache directory (required)
	DocumentExpiry time.Duration // zero = DefaultDocumentExpiry
	CrawlExpiry    time.Duration // zero = DefaultCrawlExpiry
	Logger         log.Logger    // required
	Now            func() time.Time // nil = time.Now; injectable for tests
}

// Store reads and writes the two caches. It is the single writer for
// cache files; see the package comment for the batch discipline.
type Store struct {
	dir         string
	docExpiry   time.Duration
	crawlExpiry time.Duration
	now         func() time.Time
	logger      log.Logger
}

// New creates a Store, creating the cache directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	docExpiry := cfg.DocumentExpiry
	if docExpiry == 0 {
		docExpiry = DefaultDocumentExpiry
	}
	crawlExpiry := cfg.CrawlExpiry
	if crawlExpiry == 0 {
		crawlExpiry = DefaultCrawlExpiry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &Store{
		dir:         cfg.Dir,
		docExpiry:   docExpiry,
		crawlExpiry: crawlExpiry,
		now:         now,
		logger:      cfg.Logger,
	}, nil
}

// LoadDocuments reads the document cache. A missing file yields an
// empty, well-formed cache rather than an error.
func (s *Store) LoadDocuments() (*DocumentCache, error) {
	cache := &DocumentCache{
		Websites: map[string]Entry{},
		PDFs:     map[string]Entry{},
	}
	if err := s.loadFile(documentFile, cache); err != nil {
		return nil, err
	}
	// Guard against a hand-edited file missing one of the maps.
	if cache.Websites == nil {
		cache.Websites = map[string]Entry{}
	}
	if cache.PDFs == nil {
		cache.PDFs = map[string]Entry{}
	}
	return cache, nil
}

// SaveDocuments overwrites the document cache file.
func (s *Store) SaveDocuments(cache *DocumentCache) error {
	return s.saveFile(documentFile, cache)
}

// LoadCrawl reads the crawl cache. A missing file yields an empty cache.
func (s *Store) LoadCrawl() (CrawlCache, error) {
	cache := CrawlCache{}
	if err := s.loadFile(crawlFile, &cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// SaveCrawl overwrites the crawl cache file.
func (s *Store) SaveCrawl(cache CrawlCache) error {
	return s.saveFile(crawlFile, cache)
}

// ValidDocument reports whether a document cache timestamp is still
// inside the document expiry window. A malformed timestamp is a parse
// error, not a silently-invalid entry.
func (s *Store) ValidDocument(timestamp string) (bool, error) {
	return s.valid(timestamp, s.docExpiry)
}

// ValidCrawl reports whether a crawl cache timestamp is still inside
// the crawl expiry window.
func (s *Store) ValidCrawl(timestamp string) (bool, error) {
	return s.valid(timestamp, s.crawlExpiry)
}

// Stamp returns the current time formatted for cache timestamps.
func (s *Store) Stamp() string {
	return s.now().Format(time.RFC3339)
}

func (s *Store) valid(timestamp string, expiry time.Duration) (bool, error) {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false, fmt.Errorf("parsing cache timestamp %q: %w", timestamp, err)
	}
	// Strict <: an entry aged exactly the expiry window is stale.
	return s.now().Sub(t) < expiry, nil
}

func (s *Store) loadFile(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path) // #nosec G304 -- path is config-owned
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("cache file missing, starting empty", "file", name)
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (s *Store) saveFile(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
