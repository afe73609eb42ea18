// Package driving provides interfaces implemented by core services
// and consumed by delivery adapters (primary/inbound ports).
package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// AnswerService is the retrieval-and-answer operation consumed by the
// HTTP layer.
type AnswerService interface {
	// Ask returns a complete grounded answer for the query.
	Ask(ctx context.Context, qc domain.QueryContext) (domain.Answer, error)

	// AskStream answers the query as an ordered frame sequence.
	// The channel is closed after exactly one frame with Done set.
	AskStream(ctx context.Context, qc domain.QueryContext) (<-chan domain.StreamFrame, error)

	// Explain streams an explanation of an assessment question
	// itself, with no user question attached.
	Explain(ctx context.Context, assessmentText string) (<-chan domain.StreamFrame, error)

	// Status reports readiness and the indexed chunk count.
	Status() Status
}

// Status describes service readiness.
type Status struct {
	Ready   bool
	Indexed int
}
