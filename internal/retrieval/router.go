// Package retrieval routes free-text queries to ranked source fragments
// from the external vector index, optionally scoped to one school by
// fuzzy name matching so context from one school never bleeds into a
// question about another.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/mvidal-dev/schoolscout/internal/document"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Retrieval thresholds.
const (
	// DefaultTopK is how many candidates the index is asked for.
	DefaultTopK = 10

	// SchoolMatchThreshold is the minimum fuzzy partial-match score
	// (0-100) for a fragment's school to count as the requested scope.
	SchoolMatchThreshold = 70

	// SourceScoreThreshold keeps only strongly relevant fragments.
	SourceScoreThreshold = 0.8

	// MaxSources caps how many fragments are surfaced per query.
	MaxSources = 3
)

// Fragment is a scored snippet returned by the index. Score is the
// index's relevance in [0, 1]. Fragments are transient per-query
// values, never persisted.
type Fragment struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Searcher is the nearest-neighbor search capability of the external
// vector index.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Fragment, error)
}

// Router answers retrieval queries against a Searcher.
type Router struct {
	index  Searcher
	topK   int
	logger log.Logger
}

// Config contains the parameters for a Router.
type Config struct {
	Index  Searcher   // required
	TopK   int        // zero = DefaultTopK
	Logger log.Logger // required
}

// New creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Index == nil {
		return nil, errors.New("index searcher is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Router{index: cfg.Index, topK: topK, logger: cfg.Logger}, nil
}

// Query searches the index for text. When school is non-empty, only
// fragments whose school metadata fuzzy-matches it are returned; if no
// fragment matches at or above SchoolMatchThreshold the result is
// empty, not an error.
func (r *Router) Query(ctx context.Context, text, school string) ([]Fragment, error) {
	candidates, err := r.index.Search(ctx, text, r.topK)
	if err != nil {
		return nil, err
	}
	if school == "" {
		return candidates, nil
	}

	scoped := filterBySchool(candidates, school)
	r.logger.Debug("scoped retrieval",
		"school", school,
		"candidates", len(candidates),
		"kept", len(scoped))
	return scoped, nil
}

// filterBySchool keeps the fragments whose school metadata is the best
// fuzzy match for scope, provided the best match clears
// SchoolMatchThreshold. Ties at the maximum are all kept.
func filterBySchool(fragments []Fragment, scope string) []Fragment {
	scope = strings.ToLower(scope)

	best := 0
	scores := make([]int, len(fragments))
	for i, f := range fragments {
		name := f.Metadata[document.MetaSchool]
		if name == "" {
			continue
		}
		score := fuzzy.PartialRatio(scope, strings.ToLower(name))
		scores[i] = score
		if score > best {
			best = score
		}
	}

	if best < SchoolMatchThreshold {
		return nil
	}

	var kept []Fragment
	for i, f := range fragments {
		if scores[i] == best {
			kept = append(kept, f)
		}
	}
	return kept
}

// TopSources ranks fragments for prompt context: sorted by descending
// score, keeping up to MaxSources of those at or above
// SourceScoreThreshold. When fewer than two qualify, the single
// top-scoring fragment is returned regardless of threshold, so any
// non-empty candidate set always surfaces at least one source.
func TopSources(fragments []Fragment) []Fragment {
	if len(fragments) == 0 {
		return nil
	}

	ranked := make([]Fragment, len(fragments))
	copy(ranked, fragments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	qualified := 0
	for _, f := range ranked {
		if f.Score >= SourceScoreThreshold {
			qualified++
		}
	}

	if qualified > 1 {
		if qualified > MaxSources {
			qualified = MaxSources
		}
		return ranked[:qualified]
	}
	return ranked[:1]
}
