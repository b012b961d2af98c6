// Package mock provides a Matcher that returns canned outputs without any network access.
package mock

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/ai/response"
)

const DefaultCoverLetter = `Madame, Monsieur,

Je me permets de vous adresser ma candidature pour le poste proposé au sein de votre entreprise.

Fort de mon expérience et de mes compétences, je suis convaincu de pouvoir apporter une contribution significative à votre équipe. Mon parcours m'a permis de développer une expertise solide dans les domaines requis.

Je serais ravi de pouvoir échanger avec vous lors d'un entretien afin de vous présenter plus en détail mon profil et ma motivation.

Dans l'attente de votre retour, je vous prie d'agréer, Madame, Monsieur, l'expression de mes salutations distinguées.`

const DefaultAnalysis = `{"score":75,"justification":"Bon profil avec compétences correspondantes aux exigences du poste."}`

// ErrInvalidAnalysis is returned when the canned analysis is not a valid match result.
var ErrInvalidAnalysis = errors.New("mock analysis is not a valid match result")

// Matcher ignores its inputs and always answers with the same outputs.
type Matcher struct {
	coverLetter string
	analysis    ai.MatchResult
}

var _ ai.Matcher = (*Matcher)(nil)

// NewMatcher validates the canned outputs once. Blank arguments select the defaults.
func NewMatcher(coverLetter, analysisJSON string) (*Matcher, error) {
	if strings.TrimSpace(coverLetter) == "" {
		coverLetter = DefaultCoverLetter
	}
	if strings.TrimSpace(analysisJSON) == "" {
		analysisJSON = DefaultAnalysis
	}

	analysis, ok := response.ParseMatch(analysisJSON)
	if !ok {
		return nil, ErrInvalidAnalysis
	}

	return &Matcher{coverLetter: coverLetter, analysis: analysis}, nil
}

func (m *Matcher) GenerateCoverLetter(context.Context, *ai.CandidateSnapshot, *ai.JobSnapshot) (string, error) {
	return m.coverLetter, nil
}

// AnalyzeMatch returns a fresh copy so callers cannot alter later results.
func (m *Matcher) AnalyzeMatch(context.Context, *ai.CandidateSnapshot, *ai.JobSnapshot) (*ai.MatchResult, error) {
	result := m.analysis
	return &result, nil
}

// IsAvailable always reports true.
func (m *Matcher) IsAvailable(context.Context) bool { return true }
