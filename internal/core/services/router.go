package services

import (
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// IntentClassifier decides whether retrieval must be constrained to
// the cloud/sovereignty corpus. Isolated behind an interface so a
// smarter classifier can replace the keyword tables without touching
// the retriever.
type IntentClassifier interface {
	PreferDomainScoped(qc domain.QueryContext) bool
}

// minAssessmentLength is the anchor length below which assessment
// context is ignored for routing.
const minAssessmentLength = 20

// domainTriggers mark a query as cloud/sovereignty territory. Matched
// by plain substring containment on the lowercased query; no stemming
// or tokenization.
var domainTriggers = []string{
	"aws",
	"amazon",
	"cloud",
	"nuvem",
	"soberania",
	"sovereignty",
	"well-architected",
	"well architected",
	"wellarchitected",
	"shared responsibility",
	"responsabilidade compartilhada",
	"landing zone",
	"região",
	"regiao",
	"region",
	"sa-east-1",
	"us-east-1",
	"ec2",
	"s3",
	"iam",
	"kms",
	"vpc",
	"resiliência",
	"resiliencia",
	"data residency",
	"residência de dados",
}

// assessmentTerms mark an assessment-anchored question as being about
// the cloud/sovereignty corpus. Assessment questions on governance,
// vendors and continuity target that material by product policy even
// when the query itself carries no domain trigger.
var assessmentTerms = []string{
	"fornecedor",
	"fornecedores",
	"governança",
	"governanca",
	"governance",
	"compliance",
	"conformidade",
	"continuidade",
	"continuity",
	"terceiros",
	"risco",
	"auditoria",
	"contingência",
	"contingencia",
}

// Router classifies queries with static keyword tables.
type Router struct{}

// Ensure Router implements the classifier interface.
var _ IntentClassifier = (*Router)(nil)

// NewRouter creates the keyword-table classifier.
func NewRouter() *Router {
	return &Router{}
}

// IsDomainQuery reports whether the query itself contains a domain
// trigger term.
func (r *Router) IsDomainQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, term := range domainTriggers {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// IsAssessmentContext reports whether a non-trivial assessment anchor
// combined with the query mentions business/governance terms.
func (r *Router) IsAssessmentContext(query, assessmentText string) bool {
	anchor := strings.TrimSpace(assessmentText)
	if len(anchor) <= minAssessmentLength {
		return false
	}
	combined := strings.ToLower(query + " " + anchor)
	for _, term := range assessmentTerms {
		if strings.Contains(combined, term) {
			return true
		}
	}
	return false
}

// PreferDomainScoped is the routing decision: binary, never a third
// category.
func (r *Router) PreferDomainScoped(qc domain.QueryContext) bool {
	return r.IsDomainQuery(qc.Query) || r.IsAssessmentContext(qc.Query, qc.AssessmentText)
}
