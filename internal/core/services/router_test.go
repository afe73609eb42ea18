package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestRouter_IsDomainQuery(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"explicit aws", "o que é shared responsibility na aws?", true},
		{"portuguese sovereignty", "como funciona a soberania de dados?", true},
		{"cloud term", "quais os riscos de migrar para a nuvem?", true},
		{"service name", "o s3 criptografa os dados em repouso?", true},
		{"region id", "posso usar sa-east-1 para dados bancários?", true},
		{"uppercase", "O que o AWS Well-Architected recomenda?", true},
		{"plain law question", "o que diz a lgpd sobre dados pessoais?", false},
		{"marco civil", "o marco civil exige guarda de logs?", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsDomainQuery(tt.query))
		})
	}
}

func TestRouter_IsAssessmentContext(t *testing.T) {
	r := NewRouter()

	// Anchor carries a governance term and is long enough.
	anchor := "A organização possui processo de avaliação de fornecedores críticos?"
	assert.True(t, r.IsAssessmentContext("como responder isso?", anchor))

	// Short anchors are ignored regardless of content.
	assert.False(t, r.IsAssessmentContext("como responder?", "fornecedores"))

	// Long anchor without business/governance vocabulary.
	assert.False(t, r.IsAssessmentContext("como responder isso?",
		"Qual é o prazo de resposta a titulares previsto no texto legal?"))

	// The query side of the combined text also counts.
	assert.True(t, r.IsAssessmentContext("isso envolve auditoria externa?",
		"Descreva o processo interno de avaliação anual da empresa."))
}

func TestRouter_PreferDomainScoped(t *testing.T) {
	r := NewRouter()

	assert.True(t, r.PreferDomainScoped(domain.QueryContext{
		Query: "o que é shared responsibility na aws?",
	}))

	assert.True(t, r.PreferDomainScoped(domain.QueryContext{
		Query:          "como devo responder?",
		AssessmentText: "A empresa mantém plano de continuidade de negócios testado?",
	}))

	assert.False(t, r.PreferDomainScoped(domain.QueryContext{
		Query: "o que diz a lgpd sobre consentimento?",
	}))
}
