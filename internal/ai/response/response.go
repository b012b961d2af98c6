// Package response turns free-form model output into validated structured results.
package response

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/spigell/careerpath-ai/internal/ai"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	jsonFence = regexp.MustCompile("(?i)```json\\s*")
	bareFence = regexp.MustCompile("```\\s*")
)

// StripFences removes markdown code-fence markers anywhere in raw and trims the result.
func StripFences(raw string) string {
	cleaned := jsonFence.ReplaceAllString(raw, "")
	cleaned = bareFence.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ExtractJSON returns the span from the first '{' to the last '}' when there is one,
// otherwise the input unchanged.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

type matchPayload struct {
	Score         any `json:"score"`
	Justification any `json:"justification"`
}

// ParseMatch extracts a MatchResult from raw model output. The boolean is false when the output
// cannot be parsed, the score is not a number within [MinScore, MaxScore], or the justification is
// not a non-empty string. The score is rounded half away from zero.
//
// The brace span of the untouched output is tried first so fence markers quoted inside the
// justification survive; fences are stripped only when that span is not valid JSON. This order
// differs from a plain strip-then-extract: `{"score":80,"justification":"uses ```json blocks"}`
// keeps "uses ```json blocks" instead of "uses blocks".
func ParseMatch(raw string) (ai.MatchResult, bool) {
	payload, err := decode(ExtractJSON(strings.TrimSpace(raw)))
	if err != nil {
		payload, err = decode(ExtractJSON(StripFences(raw)))
		if err != nil {
			return ai.MatchResult{}, false
		}
	}
	return validate(payload)
}

func decode(candidate string) (matchPayload, error) {
	var payload matchPayload
	err := json.Unmarshal([]byte(candidate), &payload)
	return payload, err
}

func validate(payload matchPayload) (ai.MatchResult, bool) {
	score, ok := payload.Score.(float64)
	if !ok || math.IsNaN(score) || score < MinScore || score > MaxScore {
		return ai.MatchResult{}, false
	}

	justification, ok := payload.Justification.(string)
	if !ok || justification == "" {
		return ai.MatchResult{}, false
	}

	return ai.MatchResult{
		Score:         int(math.Round(score)),
		Justification: justification,
	}, true
}
