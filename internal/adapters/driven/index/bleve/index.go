// Package bleve provides the lexical search index adapter backed by
// an in-memory bleve index.
package bleve

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Index implements the port.
var _ driven.SearchIndex = (*Index)(nil)

// titleBoost weights title matches over body matches.
const titleBoost = 2.0

// batchSize bounds the number of chunks per indexing batch.
const batchSize = 100

// chunkDoc is the indexed document shape. Field names are the query
// field names.
type chunkDoc struct {
	Title   string `json:"title"`
	File    string `json:"file"`
	Text    string `json:"text"`
	DocType string `json:"docType"`
}

// Index is an in-memory full-text index over the chunk corpus.
type Index struct {
	idx bleve.Index
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Factory adapts New to the driven.IndexFactory signature.
func Factory() (driven.SearchIndex, error) {
	return New()
}

// buildMapping indexes title and text as analyzed text and docType as
// an exact keyword for term filtering.
func buildMapping() mapping.IndexMapping {
	chunk := bleve.NewDocumentMapping()
	chunk.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	chunk.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())
	chunk.AddFieldMappingsAt("docType", bleve.NewKeywordFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = chunk
	return m
}

// IndexAll adds the full chunk set in batches.
func (i *Index) IndexAll(ctx context.Context, chunks []domain.Chunk) error {
	batch := i.idx.NewBatch()
	for n, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := chunkDoc{
			Title:   c.Title,
			File:    c.SourceFile,
			Text:    c.Text,
			DocType: string(c.DocType),
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("batch chunk %s: %w", c.ID, err)
		}
		if n > 0 && n%batchSize == 0 {
			if err := i.idx.Batch(batch); err != nil {
				return fmt.Errorf("index batch: %w", err)
			}
			batch = i.idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("index final batch: %w", err)
		}
	}
	return nil
}

// Search runs an OR-combined match over title and text with fuzzy
// matching, a prefix clause for the trailing term, and an optional
// docType term filter.
func (i *Index) Search(ctx context.Context, q string, opts driven.SearchOptions) ([]domain.SearchHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(i.buildQuery(q, opts.DocType), limit, 0, false)
	req.Fields = []string{"title", "file", "text", "docType"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := domain.SearchHit{ID: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		if file, ok := h.Fields["file"].(string); ok {
			hit.File = file
		}
		if text, ok := h.Fields["text"].(string); ok {
			hit.Text = text
		}
		if docType, ok := h.Fields["docType"].(string); ok {
			hit.DocType = domain.DocType(docType)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildQuery assembles the relevance query and wraps it in a docType
// conjunction when a filter is requested.
func (i *Index) buildQuery(q string, docType domain.DocType) query.Query {
	text := bleve.NewMatchQuery(q)
	text.SetField("text")
	text.SetFuzziness(1)

	title := bleve.NewMatchQuery(q)
	title.SetField("title")
	title.SetFuzziness(1)
	title.SetBoost(titleBoost)

	clauses := []query.Query{text, title}

	// Prefix clause for the trailing term so partially typed words
	// still match.
	terms := strings.Fields(strings.ToLower(q))
	if last := terms[len(terms)-1]; len(last) >= 3 {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField("text")
		clauses = append(clauses, prefix)
	}

	relevance := bleve.NewDisjunctionQuery(clauses...)
	if docType == "" {
		return relevance
	}

	filter := bleve.NewTermQuery(string(docType))
	filter.SetField("docType")
	return bleve.NewConjunctionQuery(filter, relevance)
}

// Close releases index resources.
func (i *Index) Close() error {
	return i.idx.Close()
}
