package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Retrieval limits: full answers get one more passage than streamed
// ones, where latency matters more.
const (
	askLimit    = 4
	streamLimit = 3
)

// streamPassageLimit caps per-passage context length on the streaming
// path.
const streamPassageLimit = 600

// minQueryLength is the shortest accepted trimmed query.
const minQueryLength = 3

// Generation parameters shared by both backends.
const (
	genMaxTokens     = 450
	genTemperature   = 0.4
	genContextWindow = 4096
)

// disclaimerNote closes every answer.
const disclaimerNote = "\n\n*Nota: Esta é uma busca por relevância. Para interpretação jurídica, consulte um profissional.*"

// AnswerService orchestrates routing, retrieval, prompt construction
// and generation into grounded answers.
type AnswerService struct {
	corpus     *Corpus
	classifier IntentClassifier
	retriever  *Retriever
	prompts    *PromptBuilder
	generator  driven.Generator
}

// Ensure AnswerService implements the driving port.
var _ driving.AnswerService = (*AnswerService)(nil)

// NewAnswerService creates the answer service.
func NewAnswerService(
	corpus *Corpus,
	classifier IntentClassifier,
	retriever *Retriever,
	prompts *PromptBuilder,
	generator driven.Generator,
) *AnswerService {
	return &AnswerService{
		corpus:     corpus,
		classifier: classifier,
		retriever:  retriever,
		prompts:    prompts,
		generator:  generator,
	}
}

// Status reports readiness and the indexed chunk count.
func (s *AnswerService) Status() driving.Status {
	snap := s.corpus.Snapshot()
	if snap == nil {
		return driving.Status{}
	}
	return driving.Status{Ready: snap.Len() > 0, Indexed: snap.Len()}
}

// Ask returns a complete answer. Backend failures degrade to a
// context-only answer instead of an error; only validation and
// readiness problems are returned as errors.
func (s *AnswerService) Ask(ctx context.Context, qc domain.QueryContext) (domain.Answer, error) {
	query, snap, err := s.prepare(qc.Query)
	if err != nil {
		return domain.Answer{}, err
	}

	hits, sources, err := s.retrieve(ctx, snap, qc, query, askLimit)
	if err != nil {
		return domain.Answer{}, err
	}

	ctxText := s.prompts.BuildContext(hits, 0)
	prompt := s.prompts.Build(s.mode(qc), query, qc.AssessmentText, ctxText)

	text, err := s.generator.Generate(ctx, prompt, s.genOptions())
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("generation failed, degrading: %v", err)
		return domain.Answer{Text: s.degradedAnswer(ctxText, sources), Sources: sources}, nil
	}

	answer := strings.TrimSpace(text)
	if len(sources) > 0 {
		answer += fmt.Sprintf("\n\n*Fontes consultadas: %s*", sourceTitles(sources))
	}
	answer += disclaimerNote

	return domain.Answer{Text: answer, Sources: sources}, nil
}

// AskStream answers as an ordered frame sequence terminated by
// exactly one done frame.
func (s *AnswerService) AskStream(ctx context.Context, qc domain.QueryContext) (<-chan domain.StreamFrame, error) {
	query, snap, err := s.prepare(qc.Query)
	if err != nil {
		return nil, err
	}

	hits, sources, err := s.retrieve(ctx, snap, qc, query, streamLimit)
	if err != nil {
		return nil, err
	}

	ctxText := s.prompts.BuildContext(hits, streamPassageLimit)
	prompt := s.prompts.Build(s.mode(qc), query, qc.AssessmentText, ctxText)

	return s.stream(ctx, prompt, sources), nil
}

// Explain streams an explanation of the assessment question itself.
func (s *AnswerService) Explain(ctx context.Context, assessmentText string) (<-chan domain.StreamFrame, error) {
	anchor, snap, err := s.prepare(assessmentText)
	if err != nil {
		return nil, err
	}

	qc := domain.QueryContext{AssessmentText: anchor}
	hits, sources, err := s.retrieve(ctx, snap, qc, anchor, streamLimit)
	if err != nil {
		return nil, err
	}

	ctxText := s.prompts.BuildContext(hits, streamPassageLimit)
	prompt := s.prompts.Build(ModeExplain, "", anchor, ctxText)

	return s.stream(ctx, prompt, sources), nil
}

// prepare validates the input text and fetches the published
// snapshot.
func (s *AnswerService) prepare(text string) (string, *Snapshot, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minQueryLength {
		return "", nil, fmt.Errorf("%w: need at least %d characters", domain.ErrInvalidQuery, minQueryLength)
	}

	snap := s.corpus.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return "", nil, domain.ErrIndexNotReady
	}
	return trimmed, snap, nil
}

// retrieve runs routed retrieval and derives the source list.
func (s *AnswerService) retrieve(
	ctx context.Context, snap *Snapshot, qc domain.QueryContext, query string, limit int,
) ([]domain.SearchHit, []domain.Source, error) {
	domainScoped := s.classifier.PreferDomainScoped(qc)
	logger.Debug("query %q domainScoped=%t", query, domainScoped)

	hits, err := s.retriever.Retrieve(ctx, snap, query, domainScoped, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve: %w", err)
	}

	var sources []domain.Source
	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.File] {
			continue
		}
		seen[h.File] = true
		sources = append(sources, domain.Source{Title: h.Title, File: h.File})
	}
	return hits, sources, nil
}

// stream runs generation in the background and emits frames. The
// channel is closed after the single done frame. Every send checks
// the request context so a disconnected client never strands the
// goroutine or the backend stream on a full buffer.
func (s *AnswerService) stream(ctx context.Context, prompt string, sources []domain.Source) <-chan domain.StreamFrame {
	frames := make(chan domain.StreamFrame, 8)

	go func() {
		defer close(frames)

		ts, err := s.generator.Stream(ctx, prompt, s.genOptions())
		if err != nil {
			logger.Warn("streaming unavailable: %v", err)
			send(ctx, frames, domain.StreamFrame{Done: true, Sources: sources, Err: "modelos de linguagem indisponíveis"})
			return
		}
		defer ts.Close()

		for {
			token, err := ts.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warn("stream aborted: %v", err)
					send(ctx, frames, domain.StreamFrame{Done: true, Sources: sources, Err: err.Error()})
					return
				}
				break
			}
			if token == "" {
				continue
			}
			if !send(ctx, frames, domain.StreamFrame{Token: token}) {
				return
			}
		}

		if len(sources) > 0 {
			if !send(ctx, frames, domain.StreamFrame{Token: fmt.Sprintf("\n\n*Fontes: %s*", sourceTitles(sources))}) {
				return
			}
		}
		send(ctx, frames, domain.StreamFrame{Token: disclaimerNote, Done: true, Sources: sources})
	}()

	return frames
}

// send delivers one frame unless the request is gone. Reports whether
// the frame was delivered.
func send(ctx context.Context, frames chan<- domain.StreamFrame, f domain.StreamFrame) bool {
	select {
	case frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// mode selects the prompt framing for a query context.
func (s *AnswerService) mode(qc domain.QueryContext) PromptMode {
	if len(strings.TrimSpace(qc.AssessmentText)) > minAnchorLength {
		return ModeAnchored
	}
	return ModeDirect
}

// degradedAnswer is what the user sees when both backends fail: the
// retrieved context itself, a pointer to the matched documents, or a
// reformulation hint, always with an inline unavailability note.
func (s *AnswerService) degradedAnswer(ctxText string, sources []domain.Source) string {
	switch {
	case len(strings.TrimSpace(ctxText)) > 50:
		return fmt.Sprintf("Com base nos documentos:\n\n%s\n\n*Nota: Os modelos de linguagem não estão disponíveis no momento; acima estão os trechos mais relevantes encontrados.*", ctxText)
	case len(sources) > 0:
		return fmt.Sprintf("Encontrei referência a: %s.\n\nOs modelos de linguagem não estão respondendo no momento. Tente novamente em instantes.", sourceTitles(sources))
	default:
		return "Não encontrei trechos relevantes. Tente reformular a pergunta ou usar termos das leis (ex: LGPD, Marco Civil, dados pessoais)."
	}
}

func (s *AnswerService) genOptions() driven.GenerateOptions {
	return driven.GenerateOptions{
		MaxTokens:     genMaxTokens,
		Temperature:   genTemperature,
		ContextWindow: genContextWindow,
	}
}

// sourceTitles joins source titles for the attribution suffix.
func sourceTitles(sources []domain.Source) string {
	titles := make([]string, 0, len(sources))
	for _, s := range sources {
		titles = append(titles, s.Title)
	}
	return strings.Join(titles, ", ")
}
