// Package prompt builds the system/user prompt pairs sent to the text-generation service.
//
// Building is pure: the same task and inputs always produce byte-identical prompts.
package prompt

import (
	"embed"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/utils"
)

const (
	LocaleFrench  = "fr"
	LocaleEnglish = "en"
	DefaultLocale = LocaleFrench

	DefaultCoverLetterMaxWords = 250

	coverLetterCVLimit          = 500
	coverLetterDescriptionLimit = 300
	analysisCVLimit             = 1500
	analysisDescriptionLimit    = 500

	excerptMarker = "..."
)

//go:embed templates
var templateFS embed.FS

// Pair is an immutable system/user prompt pair.
type Pair struct {
	System string
	User   string
}

// Messages returns the pair as an ordered chat message list.
func (p Pair) Messages() []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: p.System},
		{Role: ai.RoleUser, Content: p.User},
	}
}

type templates struct {
	coverLetterSystem string
	coverLetterUser   string
	analysisSystem    string
	analysisUser      string
	analysisStrict    string
}

type fallbacks struct {
	coverLetterCandidate string
	analysisCandidate    string
	bio                  string
	skills               string
	coverLetterCV        string
	analysisCV           string
	company              string
	coverLetterJob       string
	analysisJob          string
	contractType         string
}

var localeFallbacks = map[string]fallbacks{
	LocaleFrench: {
		coverLetterCandidate: "Le candidat",
		analysisCandidate:    "Candidat",
		bio:                  "Non renseignée",
		skills:               "Non spécifiées",
		coverLetterCV:        "Non disponible",
		analysisCV:           "CV non disponible",
		company:              "l'entreprise",
		coverLetterJob:       "Non spécifié",
		analysisJob:          "Non spécifiée",
		contractType:         "Non spécifié",
	},
	LocaleEnglish: {
		coverLetterCandidate: "The candidate",
		analysisCandidate:    "Candidate",
		bio:                  "Not provided",
		skills:               "Not specified",
		coverLetterCV:        "Not available",
		analysisCV:           "CV not available",
		company:              "the company",
		coverLetterJob:       "Not specified",
		analysisJob:          "Not specified",
		contractType:         "Not specified",
	},
}

// Builder renders prompts for one locale and cover-letter word limit.
type Builder struct {
	locale    string
	maxWords  int
	tpl       templates
	fallbacks fallbacks
}

// NewBuilder loads the embedded templates for locale. An empty locale selects DefaultLocale and a
// non-positive maxWords selects DefaultCoverLetterMaxWords.
func NewBuilder(locale string, maxWords int) (*Builder, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}

	fb, ok := localeFallbacks[locale]
	if !ok {
		return nil, fmt.Errorf("unsupported prompt locale: %q", locale)
	}

	if maxWords <= 0 {
		maxWords = DefaultCoverLetterMaxWords
	}

	tpl, err := loadTemplates(locale)
	if err != nil {
		return nil, err
	}

	return &Builder{
		locale:    locale,
		maxWords:  maxWords,
		tpl:       tpl,
		fallbacks: fb,
	}, nil
}

func loadTemplates(locale string) (templates, error) {
	read := func(name string) (string, error) {
		data, err := templateFS.ReadFile(path.Join("templates", locale, name+".tmpl"))
		if err != nil {
			return "", fmt.Errorf("load %s prompt template %q: %w", locale, name, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var (
		tpl templates
		err error
	)
	targets := []struct {
		name string
		dst  *string
	}{
		{"cover_letter_system", &tpl.coverLetterSystem},
		{"cover_letter_user", &tpl.coverLetterUser},
		{"analysis_system", &tpl.analysisSystem},
		{"analysis_user", &tpl.analysisUser},
		{"analysis_strict", &tpl.analysisStrict},
	}
	for _, target := range targets {
		if *target.dst, err = read(target.name); err != nil {
			return templates{}, err
		}
	}

	return tpl, nil
}

func (b *Builder) Locale() string { return b.locale }

func (b *Builder) MaxWords() int { return b.maxWords }

// CoverLetter builds the cover-letter prompt.
func (b *Builder) CoverLetter(candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) Pair {
	c, j := snapshots(candidate, job)

	cvExcerpt := b.fallbacks.coverLetterCV
	if strings.TrimSpace(c.CVText) != "" {
		cvExcerpt = utils.TruncateRunes(c.CVText, coverLetterCVLimit) + excerptMarker
	}

	system := render(b.tpl.coverLetterSystem, "MAX_WORDS", strconv.Itoa(b.maxWords))
	user := render(b.tpl.coverLetterUser,
		"JOB_TITLE", j.Title,
		"COMPANY", orDefault(j.Company.Name, b.fallbacks.company),
		"CANDIDATE_NAME", orDefault(fullName(c), b.fallbacks.coverLetterCandidate),
		"BIO", orDefault(c.Bio, b.fallbacks.bio),
		"SKILLS", orDefault(strings.Join(j.SkillNames(), ", "), b.fallbacks.skills),
		"CV_EXCERPT", cvExcerpt,
		"JOB_DESCRIPTION", orDefault(utils.TruncateRunes(j.Description, coverLetterDescriptionLimit), b.fallbacks.coverLetterJob),
	)

	return Pair{System: system, User: user}
}

// Analysis builds the match-analysis prompt.
func (b *Builder) Analysis(candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) Pair {
	c, j := snapshots(candidate, job)

	user := render(b.tpl.analysisUser,
		"CANDIDATE_NAME", orDefault(fullName(c), b.fallbacks.analysisCandidate),
		"BIO", orDefault(c.Bio, b.fallbacks.bio),
		"CV_EXCERPT", orDefault(utils.TruncateRunes(c.CVText, analysisCVLimit), b.fallbacks.analysisCV),
		"JOB_TITLE", j.Title,
		"JOB_DESCRIPTION", orDefault(utils.TruncateRunes(j.Description, analysisDescriptionLimit), b.fallbacks.analysisJob),
		"SKILLS", orDefault(strings.Join(j.SkillNames(), ", "), b.fallbacks.skills),
		"CONTRACT_TYPE", orDefault(j.ContractType, b.fallbacks.contractType),
	)

	return Pair{System: b.tpl.analysisSystem, User: user}
}

// StrictAnalysis builds the retry variant of Analysis: the same system prompt and a user prompt
// prefixed with an explicit format directive and example.
func (b *Builder) StrictAnalysis(candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) Pair {
	base := b.Analysis(candidate, job)
	return Pair{
		System: base.System,
		User:   render(b.tpl.analysisStrict, "USER_PROMPT", base.User),
	}
}

func snapshots(candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) (ai.CandidateSnapshot, ai.JobSnapshot) {
	var (
		c ai.CandidateSnapshot
		j ai.JobSnapshot
	)
	if candidate != nil {
		c = *candidate
	}
	if job != nil {
		j = *job
	}
	return c, j
}

func fullName(c ai.CandidateSnapshot) string {
	parts := make([]string, 0, 2)
	for _, part := range []string{c.FirstName, c.LastName} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// render substitutes {{KEY}} placeholders in a single pass, so values are never re-expanded.
func render(template string, pairs ...string) string {
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{{"+pairs[i]+"}}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}
