package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// SearchIndex provides full-text search over the chunk corpus.
// Implementations support prefix and fuzzy matching, per-field
// relevance boosting and document-type filtering.
//
// An index is built once, queried concurrently and replaced wholesale
// on re-ingestion; it is never mutated after IndexAll returns.
type SearchIndex interface {
	// IndexAll adds the full chunk set to the index.
	IndexAll(ctx context.Context, chunks []domain.Chunk) error

	// Search returns ranked hits for the query, OR-combining query
	// terms.
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchHit, error)

	// Close releases index resources.
	Close() error
}

// SearchOptions configures a single index lookup.
type SearchOptions struct {
	// Limit is the maximum number of hits.
	Limit int

	// DocType restricts hits to one document type when non-empty.
	DocType domain.DocType
}

// IndexFactory builds an empty search index for a new corpus
// snapshot. Keeps the ingest service decoupled from the index engine.
type IndexFactory func() (SearchIndex, error)
