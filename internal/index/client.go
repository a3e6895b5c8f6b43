// Package index is the HTTP adapter for the external vector-index
// service. The index owns embeddings and nearest-neighbor search; this
// client only ships documents in and queries out.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mvidal-dev/schoolscout/internal/document"
	"github.com/mvidal-dev/schoolscout/internal/log"
	"github.com/mvidal-dev/schoolscout/internal/retrieval"
)

const defaultTimeout = 60 * time.Second

// Client talks to the index service. It implements retrieval.Searcher.
type Client struct {
	baseURL string
	client  *http.Client
	logger  log.Logger
}

// Config contains the parameters for a Client.
type Config struct {
	BaseURL string       // required, e.g. "http://localhost:8091"
	Client  *http.Client // nil = default client with a 60s timeout
	Logger  log.Logger   // required
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("index base url is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: cfg.BaseURL, client: client, logger: cfg.Logger}, nil
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResult struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// Search asks the index for the topK nearest fragments to query.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]retrieval.Fragment, error) {
	var resp searchResponse
	if err := c.post(ctx, "/search", searchRequest{Query: query, TopK: topK}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("index search: %s", resp.Error)
	}

	fragments := make([]retrieval.Fragment, len(resp.Results))
	for i, r := range resp.Results {
		fragments[i] = retrieval.Fragment{
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Score,
		}
	}
	return fragments, nil
}

type ingestDocument struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

type ingestRequest struct {
	Documents []ingestDocument `json:"documents"`
}

type ingestResponse struct {
	Indexed int    `json:"indexed"`
	Error   string `json:"error,omitempty"`
}

// Add ships acquired documents to the index for embedding.
func (c *Client) Add(ctx context.Context, docs []document.Document) (int, error) {
	req := ingestRequest{Documents: make([]ingestDocument, len(docs))}
	for i, d := range docs {
		req.Documents[i] = ingestDocument{Text: d.Text, Metadata: d.Metadata}
	}

	var resp ingestResponse
	if err := c.post(ctx, "/documents", req, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("index ingest: %s", resp.Error)
	}
	c.logger.Info("indexed documents", "count", resp.Indexed)
	return resp.Indexed, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling index service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading index response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("index service status %d: %s", resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding index response: %w", err)
	}
	return nil
}
