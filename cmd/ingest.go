package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvidal-dev/schoolscout/internal/document"
)

var ingestCrawl bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load school documents and push them to the vector index",
	Long: `Ingest gathers school documents from three sources: PDFs under the
configured pdf_dir (subdirectories scope their PDFs to a school),
each school's configured pages, and a bounded crawl of each school's
site. Documents are cached locally and pushed to the index service.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestCrawl, "crawl", true, "crawl school sites for additional pages")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var docs []document.Document

	if _, err := os.Stat(app.cfg.PDFDir); err == nil {
		pdfs, err := app.loader.LoadPDFDir(ctx, app.cfg.PDFDir)
		if err != nil {
			return fmt.Errorf("loading pdfs: %w", err)
		}
		docs = append(docs, pdfs...)
	} else {
		app.logger.Info("pdf directory not found, skipping", "dir", app.cfg.PDFDir)
	}

	links := collectLinks(app)
	if ingestCrawl {
		for _, school := range app.cfg.Schools {
			crawled, err := app.crawler.Links(ctx, school.Homepage, app.cfg.CrawlMaxPages)
			if err != nil {
				app.logger.Warn("crawl failed", "school", school.Name, "error", err)
				continue
			}
			for _, u := range crawled {
				links = append(links, document.Link{URL: u, School: school.Name})
			}
		}
	}
	links = dedupeLinks(links)

	webDocs, err := app.loader.LoadLinks(ctx, links)
	if err != nil {
		return fmt.Errorf("loading school pages: %w", err)
	}
	docs = append(docs, webDocs...)

	if len(docs) == 0 {
		app.logger.Info("nothing to ingest")
		return nil
	}

	indexed, err := app.index.Add(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}
	app.logger.Info("ingest complete", "documents", len(docs), "indexed", indexed)
	return nil
}

// collectLinks gathers each school's configured pages.
func collectLinks(app *app) []document.Link {
	var links []document.Link
	for _, school := range app.cfg.Schools {
		links = append(links, document.Link{URL: school.Homepage, School: school.Name})
		for _, u := range school.AdditionalLinks {
			links = append(links, document.Link{URL: u, School: school.Name})
		}
	}
	return links
}

// dedupeLinks drops repeated URLs, keeping first occurrence order.
func dedupeLinks(links []document.Link) []document.Link {
	seen := make(map[string]bool, len(links))
	out := links[:0]
	for _, l := range links {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}
