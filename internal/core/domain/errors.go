package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidQuery indicates missing or too-short query text.
	// Rejected before any retrieval or backend work begins.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrIndexNotReady indicates a request arrived before ingestion
	// published a corpus snapshot.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrBackendUnavailable indicates both LLM backends failed.
	// Callers degrade to a context-only answer rather than surfacing
	// this to the end user.
	ErrBackendUnavailable = errors.New("llm backends unavailable")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
