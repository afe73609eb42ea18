package driven

import "context"

// TextExtractor converts a document file into plain text.
// An empty result is legitimate: scanned/image-only PDFs carry no
// extractable text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}
