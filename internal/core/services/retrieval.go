package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// ptToEnTerms maps Portuguese query vocabulary to the English terms
// the cloud/sovereignty documents are written in. Expansion appends
// the translation so literal-language matches stay possible.
var ptToEnTerms = map[string]string{
	"soberania":        "sovereignty",
	"nuvem":            "cloud",
	"segurança":        "security",
	"seguranca":        "security",
	"dados":            "data",
	"residência":       "residency",
	"residencia":       "residency",
	"criptografia":     "encryption",
	"chaves":           "keys",
	"conformidade":     "compliance",
	"governança":       "governance",
	"governanca":       "governance",
	"risco":            "risk",
	"riscos":           "risks",
	"resiliência":      "resilience",
	"resiliencia":      "resilience",
	"continuidade":     "continuity",
	"fornecedor":       "vendor",
	"fornecedores":     "vendors",
	"região":           "region",
	"regiao":           "region",
	"responsabilidade": "responsibility",
	"compartilhada":    "shared",
	"arquitetura":      "architecture",
	"disponibilidade":  "availability",
	"recuperação":      "recovery",
	"recuperacao":      "recovery",
}

// domainSeedQuery is the broad fallback query built from core domain
// vocabulary. It guarantees lexical coverage of the cloud corpus even
// when the user's own terms match nothing.
const domainSeedQuery = "sovereignty cloud security compliance shared responsibility data residency well-architected"

// ExpandQuery appends English translations of known Portuguese terms
// to the query.
func ExpandQuery(query string) string {
	lower := strings.ToLower(query)
	var extra []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,;:!?\"'()")
		en, ok := ptToEnTerms[word]
		if !ok || seen[en] || strings.Contains(lower, en) {
			continue
		}
		seen[en] = true
		extra = append(extra, en)
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

// Retriever runs domain-constrained multi-tier retrieval over a
// corpus snapshot. Tiers are tried in order, deduplicating by chunk
// ID, until the limit is met or all tiers are exhausted.
type Retriever struct{}

// NewRetriever creates a retriever.
func NewRetriever() *Retriever {
	return &Retriever{}
}

// Retrieve returns up to limit ranked hits for the query. When
// domainScoped is set the result never contains a chunk outside the
// cloud/sovereignty type, and is non-empty whenever that type exists
// in the corpus at all.
func (r *Retriever) Retrieve(
	ctx context.Context, snap *Snapshot, query string, domainScoped bool, limit int,
) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)

	if !domainScoped {
		hits, err := snap.Index().Search(ctx, query, driven.SearchOptions{Limit: limit})
		if err != nil {
			return nil, err
		}
		return r.hydrate(snap, hits), nil
	}

	acc := newHitAccumulator(limit)

	// Tier 1: domain-typed search with the translated query.
	expanded := ExpandQuery(query)
	logger.Debug("tier 1: domain search %q", expanded)
	if err := r.searchInto(ctx, snap, acc, expanded, domain.DocTypeAWS, limit); err != nil {
		return nil, err
	}

	// Tier 2: domain-typed search with the seed vocabulary when the
	// user's terms matched nothing.
	if acc.empty() {
		logger.Debug("tier 2: seed search")
		if err := r.searchInto(ctx, snap, acc, domainSeedQuery, domain.DocTypeAWS, limit); err != nil {
			return nil, err
		}
	}

	// Tier 3: unconstrained search, filtered down to domain hits.
	if !acc.full() {
		logger.Debug("tier 3: unconstrained search, domain filter")
		combined := expanded + " " + domainSeedQuery
		hits, err := snap.Index().Search(ctx, combined, driven.SearchOptions{Limit: limit * 3})
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if h.DocType == domain.DocTypeAWS {
				acc.add(h)
			}
		}
	}

	// Last resort: take domain chunks in storage order with a neutral
	// score, so a domain query never falls through to other material.
	if acc.empty() {
		logger.Debug("last resort: domain chunks in storage order")
		for _, c := range snap.ChunksByType(domain.DocTypeAWS, limit) {
			acc.add(domain.SearchHit{
				ID:      c.ID,
				Title:   c.Title,
				File:    c.SourceFile,
				Text:    c.Text,
				DocType: c.DocType,
				Score:   0,
			})
		}
	}

	return r.hydrate(snap, acc.hits), nil
}

// searchInto runs one typed search and accumulates the hits.
func (r *Retriever) searchInto(
	ctx context.Context, snap *Snapshot, acc *hitAccumulator,
	query string, docType domain.DocType, limit int,
) error {
	hits, err := snap.Index().Search(ctx, query, driven.SearchOptions{Limit: limit, DocType: docType})
	if err != nil {
		return err
	}
	for _, h := range hits {
		acc.add(h)
	}
	return nil
}

// hydrate joins hits back to the canonical chunk store by ID so the
// caller sees stored text even if the index returned a partial view.
func (r *Retriever) hydrate(snap *Snapshot, hits []domain.SearchHit) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if c, ok := snap.ChunkByID(h.ID); ok {
			h.Title = c.Title
			h.File = c.SourceFile
			h.Text = c.Text
			h.DocType = c.DocType
		}
		out = append(out, h)
	}
	return out
}

// hitAccumulator collects hits across tiers, deduplicating by chunk
// ID and stopping at the limit.
type hitAccumulator struct {
	hits  []domain.SearchHit
	seen  map[string]bool
	limit int
}

func newHitAccumulator(limit int) *hitAccumulator {
	return &hitAccumulator{seen: make(map[string]bool), limit: limit}
}

func (a *hitAccumulator) add(h domain.SearchHit) {
	if a.full() || a.seen[h.ID] {
		return
	}
	a.seen[h.ID] = true
	a.hits = append(a.hits, h)
}

func (a *hitAccumulator) empty() bool { return len(a.hits) == 0 }

func (a *hitAccumulator) full() bool { return a.limit > 0 && len(a.hits) >= a.limit }
