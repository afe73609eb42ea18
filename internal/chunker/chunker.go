// Package chunker splits extracted document text into overlapping,
// bounded-size passages that break on word boundaries.
package chunker

import "strings"

// DefaultChunkSize is the target number of characters per chunk.
const DefaultChunkSize = 800

// DefaultOverlap is the number of characters consecutive chunks share.
const DefaultOverlap = 150

// minTextLength is the threshold below which text is emitted as a
// single chunk with no chunking overhead.
const minTextLength = 20

// minChunkLength is the floor below which a candidate chunk is
// discarded as noise.
const minChunkLength = 15

// Chunker produces ordered passages from normalized text.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// The window must advance on every iteration.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split chunks the text into passages.
//
// Whitespace runs are collapsed to single spaces before chunking.
// Text shorter than the minimum threshold is returned as a single
// trimmed chunk, or nothing when empty. Otherwise a window of the
// target size slides forward, backing off to the nearest preceding
// space so chunks never break mid-word, and advancing by
// chunkSize-overlap so consecutive chunks share a boundary span.
func (c *Chunker) Split(text string) []string {
	t := Normalize(text)
	if len(t) < minTextLength {
		if len(t) > 0 {
			return []string{t}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(t) {
		end := start + c.chunkSize
		if end < len(t) {
			// Back off to the last space at or before the cut. The
			// boundary must sit past the overlap region or the window
			// would stop advancing; a window-spanning word is cut at
			// target size instead.
			if sp := strings.LastIndexByte(t[:end+1], ' '); sp > start+c.overlap {
				end = sp
			}
		}

		cut := end
		if cut > len(t) {
			cut = len(t)
		}
		chunk := strings.TrimSpace(t[start:cut])
		if len(chunk) > minChunkLength {
			chunks = append(chunks, chunk)
		}

		start = end - c.overlap
		if start >= len(t) {
			break
		}
	}

	return chunks
}

// Normalize collapses all whitespace runs to single spaces and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
