package services

import (
	"sync/atomic"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Snapshot is an immutable-after-construction view of the indexed
// corpus: the chunk set and its search index, built and published as a
// pair. Readers never observe a half-built snapshot.
type Snapshot struct {
	chunks []domain.Chunk
	byID   map[string]domain.Chunk
	index  driven.SearchIndex
	built  time.Time
}

// NewSnapshot pairs a chunk set with the index built over it.
func NewSnapshot(chunks []domain.Chunk, index driven.SearchIndex) *Snapshot {
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	return &Snapshot{
		chunks: chunks,
		byID:   byID,
		index:  index,
		built:  time.Now(),
	}
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int {
	return len(s.chunks)
}

// ChunkByID returns the canonical chunk for an index hit.
func (s *Snapshot) ChunkByID(id string) (domain.Chunk, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Index exposes the lexical index built over this snapshot.
func (s *Snapshot) Index() driven.SearchIndex {
	return s.index
}

// ChunksByType returns up to limit chunks of the given type in
// ingestion order. Used by the last-resort retrieval tier.
func (s *Snapshot) ChunksByType(t domain.DocType, limit int) []domain.Chunk {
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.DocType != t {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Corpus owns the published snapshot. The snapshot pointer is swapped
// atomically on (re-)ingestion so concurrent readers see either the
// old corpus or the new one, never a mix.
type Corpus struct {
	current atomic.Pointer[Snapshot]
}

// NewCorpus returns an empty, not-yet-ready corpus.
func NewCorpus() *Corpus {
	return &Corpus{}
}

// Snapshot returns the published snapshot, or nil before the first
// ingestion completes.
func (c *Corpus) Snapshot() *Snapshot {
	return c.current.Load()
}

// closeGrace is how long a replaced index stays open so in-flight
// searches started against the old snapshot can finish.
const closeGrace = 30 * time.Second

// Publish swaps in a new snapshot. The replaced index is closed in
// the background after a grace period.
func (c *Corpus) Publish(s *Snapshot) {
	old := c.current.Swap(s)
	if old == nil || old.index == nil {
		return
	}
	go func(idx driven.SearchIndex) {
		time.Sleep(closeGrace)
		if err := idx.Close(); err != nil {
			logger.Warn("closing replaced index: %v", err)
		}
	}(old.index)
}
