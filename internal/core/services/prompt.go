package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// PromptMode selects the prompt framing.
type PromptMode int

const (
	// ModeDirect frames a free-standing question.
	ModeDirect PromptMode = iota

	// ModeAnchored frames a question tied to a specific assessment
	// item: explain how the law/domain applies to that item.
	ModeAnchored

	// ModeExplain has no user question at all: explain the
	// assessment item itself in a fixed structure.
	ModeExplain
)

// minContextLength is the combined context length below which the
// context block is omitted and the backend is told to answer from
// general knowledge.
const minContextLength = 30

// minAnchorLength is the anchor length above which the anchored
// framing is used instead of the direct one.
const minAnchorLength = 10

// passageSeparator joins source-annotated passages in the context
// block.
const passageSeparator = "\n\n---\n\n"

// systemInstruction encodes the fixed response policy: answer in
// Portuguese regardless of the source document language, never name
// specific organizations, ignore retrieved passages whose surrounding
// context does not address the asked topic, keep cloud/sovereignty
// answers grounded in cloud/sovereignty passages only, and prefix
// answers with a general-knowledge disclaimer instead of fabricating
// citations when nothing retrieved is relevant.
const systemInstruction = `Você é um assistente especializado em leis brasileiras (LGPD, Marco Civil, ECA Digital, normas BCB) e em soberania e segurança na nuvem (AWS Well-Architected, responsabilidade compartilhada). Responda sempre em português, de forma clara e objetiva, traduzindo conceitos de documentos em inglês em vez de citá-los literalmente. Não cite nomes de organizações ou empresas específicas. Use um trecho fornecido apenas se o contexto dele tratar de fato do tema perguntado; não o cite só porque compartilha uma palavra-chave com a pergunta. Perguntas sobre nuvem/soberania devem usar somente trechos de documentos de nuvem; perguntas sobre leis devem usar somente trechos que tratem do tema perguntado. Se nenhum trecho for relevante, comece a resposta com "Com base em conhecimento geral:" e não invente leis, artigos ou citações.`

// noContextInstruction replaces the context block when retrieval
// produced too little text to ground an answer.
const noContextInstruction = `Não há trechos específicos dos documentos disponíveis. Ainda assim, responda de forma útil sobre o tema, explicando conceitos gerais quando possível:`

// PromptBuilder deterministically assembles the backend prompt from
// the query, the retrieved context and the assessment anchor.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildContext produces the source-annotated context block from the
// retrieved hits. Passages are truncated to maxPassage characters
// when maxPassage is positive. Empty passages are dropped.
func (b *PromptBuilder) BuildContext(hits []domain.SearchHit, maxPassage int) string {
	var blocks []string
	for _, h := range hits {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		if maxPassage > 0 {
			text = truncateToRune(text, maxPassage)
		}
		title := h.Title
		if title == "" {
			title = "Documento"
		}
		blocks = append(blocks, fmt.Sprintf("[Fonte: %s]\n\n%s", title, text))
	}
	return strings.Join(blocks, passageSeparator)
}

// truncateToRune caps s at n bytes without splitting a multi-byte
// rune, backing the cut off to the preceding rune boundary.
func truncateToRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Build assembles the final prompt.
func (b *PromptBuilder) Build(mode PromptMode, query, anchor, context string) string {
	anchor = strings.TrimSpace(anchor)

	var userPart string
	switch {
	case mode == ModeExplain:
		userPart = fmt.Sprintf("Explique esta pergunta de assessment para quem vai respondê-la:\n\n%q\n\n"+
			"Estruture a resposta em: o que a pergunta avalia, termos técnicos explicados de forma simples, e por que isso importa:", anchor)
	case mode == ModeAnchored && len(anchor) > minAnchorLength:
		userPart = fmt.Sprintf("O usuário está respondendo a esta pergunta do assessment:\n\n%q\n\n"+
			"Dúvida dele: %s\n\nResponda explicando como as leis e práticas se aplicam a essa pergunta:", anchor, query)
	default:
		userPart = fmt.Sprintf("Pergunta do usuário: %s", query)
	}

	if len(strings.TrimSpace(context)) > minContextLength {
		return fmt.Sprintf("%s\n\nTrechos dos documentos (use como base para sua resposta):\n\n%s\n\n%s",
			systemInstruction, context, userPart)
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", systemInstruction, userPart, noContextInstruction)
}
