// Package crawler discovers admissions-relevant pages on a school's own
// site by breadth-first link traversal, bounded by a page budget and a
// relevance filter, with whole-crawl memoization in the crawl cache.
//
// Fetches are intentionally sequential: the budget is small and one
// slow serial client is kinder to a school's web server than a pool.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mvidal-dev/schoolscout/internal/cache"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

// DefaultMaxPages is the page budget when the caller passes none.
const DefaultMaxPages = 100

// defaultTimeout bounds a single page fetch during a crawl.
const defaultTimeout = 10 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// blockedExtensions are file types never worth crawling into.
var blockedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".mp4", ".avi", ".mov",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// relevantPathParts admit a page when its path mentions one of these
// admissions-adjacent topics.
var relevantPathParts = []string{
	"/about", "/admission", "/academics", "/programs",
	"/faculty", "/staff", "/students", "/parents",
	"/calendar", "/events", "/news", "/contact",
	"/apply", "/tuition", "/financial-aid", "/scholarships",
	"/curriculum", "/extracurricular", "/athletics",
	"/facilities", "/campus", "/transportation", "/lower",
}

// Crawler walks a school site breadth-first and returns discovered URLs.
type Crawler struct {
	client *http.Client
	cache  *cache.Store
	logger log.Logger
}

// Config contains the parameters for a Crawler.
type Config struct {
	Client *http.Client // nil = default client with a 10s timeout
	Cache  *cache.Store // required
	Logger log.Logger   // required
}

// New creates a Crawler.
func New(cfg Config) (*Crawler, error) {
	if cfg.Cache == nil {
		return nil, errors.New("cache store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Crawler{client: client, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// Links crawls outward from rootURL and returns at most maxPages URLs
// on the root's domain that pass the relevance filter. Fetch failures
// consume budget but never abort the crawl. The result is memoized per
// (domain, maxPages) in the crawl cache; a valid cached result
// short-circuits the crawl entirely.
func (c *Crawler) Links(ctx context.Context, rootURL string, maxPages int) ([]string, error) {
	if maxPages < 0 {
		maxPages = 0
	}

	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("parsing root url %q: %w", rootURL, err)
	}
	domain := root.Hostname()

	crawlCache, err := c.cache.LoadCrawl()
	if err != nil {
		return nil, fmt.Errorf("loading crawl cache: %w", err)
	}

	key := cache.CrawlKey(domain, maxPages)
	if entry, ok := crawlCache[key]; ok {
		valid, err := c.cache.ValidCrawl(entry.Timestamp)
		if err != nil {
			c.logger.Error("corrupt crawl cache timestamp, recrawling", "key", key, "error", err)
		} else if valid {
			c.logger.Info("using cached crawl", "root", rootURL, "links", len(entry.Links))
			return entry.Links, nil
		}
	}

	links := c.crawl(ctx, rootURL, domain, maxPages)

	crawlCache[key] = cache.CrawlEntry{Links: links, Timestamp: c.cache.Stamp()}
	if err := c.cache.SaveCrawl(crawlCache); err != nil {
		return links, fmt.Errorf("saving crawl cache: %w", err)
	}
	return links, nil
}

func (c *Crawler) crawl(ctx context.Context, rootURL, domain string, maxPages int) []string {
	frontier := []string{rootURL}
	visited := map[string]bool{}
	links := make([]string, 0, maxPages)

	for len(frontier) > 0 && len(links) < maxPages {
		if ctx.Err() != nil {
			break
		}

		current := frontier[0]
		frontier = frontier[1:]
		if visited[current] {
			continue
		}
		// A dequeued page counts toward the budget whether or not its
		// fetch succeeds, and is marked visited either way so a bad
		// page is never fetched twice via a duplicate frontier entry.
		links = append(links, current)
		visited[current] = true

		c.logger.Info("scraping", "url", current)
		children, err := c.fetchLinks(ctx, current)
		if err != nil {
			c.logger.Warn("skipping page", "url", current, "error", err)
			continue
		}

		for _, child := range children {
			if isRelevant(child, domain) && !visited[child] {
				frontier = append(frontier, child)
			}
		}
	}

	return links
}

// fetchLinks fetches one page and returns the absolute URLs of its
// anchors. Non-200 statuses are errors here; the caller treats them as
// non-fatal.
func (c *Crawler) fetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var children []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		children = append(children, base.ResolveReference(ref).String())
	})
	return children, nil
}

// isRelevant reports whether rawURL is worth crawling for rootDomain:
// same domain, not a binary/media file, and either the site root or a
// path mentioning an admissions-adjacent topic.
func isRelevant(rawURL, rootDomain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	if !strings.HasSuffix(parsed.Hostname(), rootDomain) {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range blockedExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	// The homepage is always relevant.
	if path == "" || path == "/" {
		return true
	}

	for _, part := range relevantPathParts {
		if strings.Contains(path, part) {
			return true
		}
	}
	return false
}
