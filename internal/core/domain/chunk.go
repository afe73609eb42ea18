package domain

import "strings"

// DocType classifies a source document into one of the two corpus
// subsets a query may draw from.
type DocType string

const (
	// DocTypeAWS marks cloud/sovereignty documents (AWS whitepapers,
	// Well-Architected material, sovereignty guidance).
	DocTypeAWS DocType = "aws"

	// DocTypeLei marks general Brazilian law documents (LGPD, Marco
	// Civil, BCB regulation and similar).
	DocTypeLei DocType = "lei"
)

// awsFilePatterns are matched case-insensitively against source file
// names to tag a document as cloud/sovereignty material.
var awsFilePatterns = []string{
	"aws",
	"amazon",
	"wellarchitected",
	"well-architected",
	"whitepaper",
	"sovereign",
	"soberania",
	"cloud",
	"nuvem",
}

// DocTypeForFile derives the document type from a source file name.
// Tagging happens once per file at ingestion; unmatched files default
// to the general-law type.
func DocTypeForFile(name string) DocType {
	lower := strings.ToLower(name)
	for _, pat := range awsFilePatterns {
		if strings.Contains(lower, pat) {
			return DocTypeAWS
		}
	}
	return DocTypeLei
}

// Chunk is the unit of indexing and retrieval: a bounded passage of
// text extracted from one source document.
type Chunk struct {
	// ID is unique per chunk: "<title>__<chunkIndex>", or the bare
	// title for a metadata-only stand-in when no text was extracted.
	ID string

	// Title is the source file name without its extension.
	Title string

	// SourceFile is the file name the chunk was extracted from.
	SourceFile string

	// Text is the passage content.
	Text string

	// ChunkIndex is the zero-based ordinal of the chunk within its
	// source document. Used for identity only.
	ChunkIndex int

	// DocType is assigned once at ingestion and never changes.
	DocType DocType
}

// SearchHit is a read view over a chunk returned by the lexical
// index. Callers join back to the canonical chunk by ID when present.
type SearchHit struct {
	ID      string
	Title   string
	File    string
	Text    string
	DocType DocType
	Score   float64
}

// Source identifies a document cited in an answer.
type Source struct {
	Title string `json:"title"`
	File  string `json:"file"`
}
