package ai

import (
	"context"
)

// Message roles understood by the text-generation services.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Tasks handled by a Matcher. Used for logging and prompt selection.
const (
	TaskCoverLetter = "cover_letter"
	TaskAnalysis    = "match_analysis"
)

// CandidateSnapshot is the read-only view of a candidate profile supplied by the profile service.
type CandidateSnapshot struct {
	FirstName string `json:"firstName,omitempty" mapstructure:"firstName"`
	LastName  string `json:"lastName,omitempty" mapstructure:"lastName"`
	Bio       string `json:"bio,omitempty" mapstructure:"bio"`
	CVText    string `json:"cvText,omitempty" mapstructure:"cvText"`
}

// JobSnapshot is the read-only view of a job offer with its skills already resolved.
type JobSnapshot struct {
	Title        string  `json:"title" mapstructure:"title"`
	Description  string  `json:"description,omitempty" mapstructure:"description"`
	Company      Company `json:"company" mapstructure:"company"`
	Skills       []Skill `json:"skills,omitempty" mapstructure:"skills"`
	ContractType string  `json:"contractType,omitempty" mapstructure:"contractType"`
}

type Company struct {
	Name string `json:"name,omitempty" mapstructure:"name"`
}

type Skill struct {
	Name string `json:"name" mapstructure:"name"`
}

// SkillNames returns the non-empty skill names in their input order.
func (j *JobSnapshot) SkillNames() []string {
	if j == nil {
		return nil
	}
	names := make([]string, 0, len(j.Skills))
	for _, skill := range j.Skills {
		if skill.Name == "" {
			continue
		}
		names = append(names, skill.Name)
	}
	return names
}

// Message is a single chat turn sent to a Gateway.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MatchResult is a validated match analysis: Score is within [0, 100] and Justification is not empty.
type MatchResult struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Matcher produces AI content for a candidate and a job offer.
type Matcher interface {
	GenerateCoverLetter(ctx context.Context, candidate *CandidateSnapshot, job *JobSnapshot) (string, error)
	AnalyzeMatch(ctx context.Context, candidate *CandidateSnapshot, job *JobSnapshot) (*MatchResult, error)
}

// Gateway is the transport to an external text-generation service.
type Gateway interface {
	// IsAvailable reports whether the service answers a lightweight probe. It never fails.
	IsAvailable(ctx context.Context) bool
	// Chat sends the messages in order and returns the text of the first response choice.
	Chat(ctx context.Context, messages []Message) (string, error)
}
