package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvidal-dev/schoolscout/internal/cache"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Loader runs cache-checked batch acquisition of PDFs and web pages.
//
// Each batch loads the document cache once, serves valid entries from
// it, acquires and re-caches the rest, and saves the cache once at the
// end. The save is the durability point: losing it loses every
// acquisition in the batch, never a partial one.
type Loader struct {
	cache      *cache.Store
	web        *WebLoader
	extractPDF func(path string) (string, error)
	logger     log.Logger
}

// LoaderConfig contains the parameters for a Loader.
type LoaderConfig struct {
	Cache  *cache.Store // required
	Web    *WebLoader   // required
	Logger log.Logger   // required

	// ExtractPDF overrides the PDF text extractor. nil = ExtractPDF.
	ExtractPDF func(path string) (string, error)
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Cache == nil {
		return nil, errors.New("cache store is required")
	}
	if cfg.Web == nil {
		return nil, errors.New("web loader is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	extract := cfg.ExtractPDF
	if extract == nil {
		extract = ExtractPDF
	}
	return &Loader{
		cache:      cfg.Cache,
		web:        cfg.Web,
		extractPDF: extract,
		logger:     cfg.Logger,
	}, nil
}

// LoadPDFDir loads every PDF under dir. A subdirectory scopes its PDFs
// to the school named by the directory; PDFs at the top level are
// unscoped. Unreadable files are skipped with a warning.
func (l *Loader) LoadPDFDir(ctx context.Context, dir string) ([]Document, error) {
	dc, err := l.cache.LoadDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading document cache: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading pdf directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			school := entry.Name()
			subdir := filepath.Join(dir, school)
			subs, err := os.ReadDir(subdir)
			if err != nil {
				l.logger.Warn("skipping unreadable school directory", "dir", subdir, "error", err)
				continue
			}
			for _, sub := range subs {
				if doc := l.loadPDF(dc, filepath.Join(subdir, sub.Name()), sub.Name(), school); doc != nil {
					docs = append(docs, *doc)
				}
			}
			continue
		}
		if doc := l.loadPDF(dc, filepath.Join(dir, entry.Name()), entry.Name(), ""); doc != nil {
			docs = append(docs, *doc)
		}
	}

	if err := l.cache.SaveDocuments(dc); err != nil {
		return docs, fmt.Errorf("saving document cache: %w", err)
	}
	return docs, nil
}

// LoadLinks loads every link through the document cache, fetching and
// canonicalizing the ones without a valid cached entry. Dead links
// yield no document and do not abort the batch.
func (l *Loader) LoadLinks(ctx context.Context, links []Link) ([]Document, error) {
	dc, err := l.cache.LoadDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading document cache: %w", err)
	}

	var docs []Document
	for _, link := range links {
		doc, err := l.loadLink(ctx, dc, link)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	if err := l.cache.SaveDocuments(dc); err != nil {
		return docs, fmt.Errorf("saving document cache: %w", err)
	}
	return docs, nil
}

func (l *Loader) loadPDF(dc *cache.DocumentCache, path, name, school string) *Document {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil
	}

	if doc := l.cached(dc.PDFs, path); doc != nil {
		l.logger.Info("using cached pdf", "path", path)
		return doc
	}

	l.logger.Info("loading new pdf", "path", path)
	text, err := l.extractPDF(path)
	if err != nil {
		l.logger.Warn("skipping unreadable pdf", "path", path, "error", err)
		return nil
	}

	md := map[string]string{MetaSource: name, MetaType: TypePDF}
	if school != "" {
		md[MetaSchool] = strings.ToLower(school)
	}
	dc.PDFs[path] = cache.Entry{Content: text, Metadata: md, Timestamp: l.cache.Stamp()}
	return &Document{Text: text, Metadata: md}
}

func (l *Loader) loadLink(ctx context.Context, dc *cache.DocumentCache, link Link) (*Document, error) {
	if doc := l.cached(dc.Websites, link.URL); doc != nil {
		l.logger.Info("using cached website", "url", link.URL)
		return doc, nil
	}

	doc, err := l.web.Load(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if link.School != "" {
		doc.Metadata[MetaSchool] = strings.ToLower(link.School)
	}
	dc.Websites[link.URL] = cache.Entry{
		Content:   doc.Text,
		Metadata:  doc.Metadata,
		Timestamp: l.cache.Stamp(),
	}
	return doc, nil
}

// cached returns the Document for key when the entry exists and is
// still valid. A malformed timestamp is logged and treated as a miss so
// the corrupt entry gets replaced by a fresh acquisition.
func (l *Loader) cached(entries map[string]cache.Entry, key string) *Document {
	entry, ok := entries[key]
	if !ok {
		return nil
	}
	valid, err := l.cache.ValidDocument(entry.Timestamp)
	if err != nil {
		l.logger.Error("corrupt cache timestamp, reloading entry", "key", key, "error", err)
		return nil
	}
	if !valid {
		return nil
	}
	return &Document{Text: entry.Content, Metadata: entry.Metadata}
}
