package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestPromptBuilder_BuildContext_AnnotatesSources(t *testing.T) {
	b := NewPromptBuilder()
	hits := []domain.SearchHit{
		{Title: "lgpd", Text: "o tratamento exige base legal"},
		{Title: "aws-security", Text: "shared responsibility model"},
	}

	ctx := b.BuildContext(hits, 0)

	assert.Contains(t, ctx, "[Fonte: lgpd]")
	assert.Contains(t, ctx, "[Fonte: aws-security]")
	assert.Contains(t, ctx, "o tratamento exige base legal")
	assert.Contains(t, ctx, passageSeparator)
}

func TestPromptBuilder_BuildContext_SkipsEmptyPassages(t *testing.T) {
	b := NewPromptBuilder()
	hits := []domain.SearchHit{
		{Title: "vazio", Text: "   "},
		{Title: "lgpd", Text: "dados pessoais"},
	}

	ctx := b.BuildContext(hits, 0)

	assert.NotContains(t, ctx, "[Fonte: vazio]")
	assert.Contains(t, ctx, "[Fonte: lgpd]")
	assert.NotContains(t, ctx, passageSeparator)
}

func TestPromptBuilder_BuildContext_TruncatesLongPassages(t *testing.T) {
	b := NewPromptBuilder()
	hits := []domain.SearchHit{{Title: "lgpd", Text: strings.Repeat("x", 1000)}}

	ctx := b.BuildContext(hits, 600)

	assert.Contains(t, ctx, strings.Repeat("x", 600))
	assert.NotContains(t, ctx, strings.Repeat("x", 601))
}

func TestPromptBuilder_BuildContext_TruncationKeepsRunesWhole(t *testing.T) {
	b := NewPromptBuilder()
	// "informação" is 12 bytes, so a 608-byte cap lands on the
	// continuation byte of a "ç".
	hits := []domain.SearchHit{{Title: "lgpd", Text: strings.Repeat("informação", 100)}}

	ctx := b.BuildContext(hits, 608)

	assert.True(t, utf8.ValidString(ctx))
	assert.NotContains(t, ctx, string(utf8.RuneError))
}

func TestTruncateToRune(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"ação", 10, "ação"},
		{"ação", 6, "ação"},
		{"ação", 2, "a"},
		{"ação", 3, "aç"},
		{"abc", 2, "ab"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateToRune(tt.s, tt.n), "truncateToRune(%q, %d)", tt.s, tt.n)
	}
}

func TestPromptBuilder_BuildContext_UntitledHitGetsPlaceholder(t *testing.T) {
	b := NewPromptBuilder()

	ctx := b.BuildContext([]domain.SearchHit{{Text: "algum texto"}}, 0)

	assert.Contains(t, ctx, "[Fonte: Documento]")
}

func TestPromptBuilder_Build_WithContext(t *testing.T) {
	b := NewPromptBuilder()
	ctx := "[Fonte: lgpd]\n\no tratamento de dados pessoais exige base legal"

	prompt := b.Build(ModeDirect, "o que é base legal?", "", ctx)

	assert.Contains(t, prompt, "Trechos dos documentos")
	assert.Contains(t, prompt, ctx)
	assert.Contains(t, prompt, "Pergunta do usuário: o que é base legal?")
	assert.NotContains(t, prompt, noContextInstruction)
}

func TestPromptBuilder_Build_ShortContextTreatedAsNone(t *testing.T) {
	b := NewPromptBuilder()

	// At or below the threshold the context block is dropped.
	prompt := b.Build(ModeDirect, "o que é base legal?", "", "curto demais")

	assert.NotContains(t, prompt, "Trechos dos documentos")
	assert.NotContains(t, prompt, "curto demais")
	assert.Contains(t, prompt, noContextInstruction)
}

func TestPromptBuilder_Build_AlwaysCarriesPolicy(t *testing.T) {
	b := NewPromptBuilder()

	withCtx := b.Build(ModeDirect, "pergunta", "", strings.Repeat("contexto ", 10))
	withoutCtx := b.Build(ModeDirect, "pergunta", "", "")

	for _, prompt := range []string{withCtx, withoutCtx} {
		assert.Contains(t, prompt, "Responda sempre em português")
		assert.Contains(t, prompt, "Com base em conhecimento geral:")
	}
}

func TestPromptBuilder_Build_AnchoredMode(t *testing.T) {
	b := NewPromptBuilder()
	anchor := "A empresa mantém inventário de dados pessoais?"

	prompt := b.Build(ModeAnchored, "o que é inventário?", anchor, "")

	assert.Contains(t, prompt, "respondendo a esta pergunta do assessment")
	assert.Contains(t, prompt, anchor)
	assert.Contains(t, prompt, "Dúvida dele: o que é inventário?")
}

func TestPromptBuilder_Build_AnchoredMode_ShortAnchorFallsBackToDirect(t *testing.T) {
	b := NewPromptBuilder()

	prompt := b.Build(ModeAnchored, "o que é inventário?", "curto", "")

	assert.NotContains(t, prompt, "assessment")
	assert.Contains(t, prompt, "Pergunta do usuário: o que é inventário?")
}

func TestPromptBuilder_Build_ExplainMode(t *testing.T) {
	b := NewPromptBuilder()
	anchor := "A organização realiza auditorias periódicas de segurança?"

	prompt := b.Build(ModeExplain, "", anchor, "")

	require.Contains(t, prompt, "Explique esta pergunta de assessment")
	assert.Contains(t, prompt, anchor)
	assert.Contains(t, prompt, "o que a pergunta avalia")
}
