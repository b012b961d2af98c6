package response

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/spigell/careerpath-ai/internal/ai"
)

func TestParseMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		want   ai.MatchResult
		wantOK bool
	}{
		{
			name:   "plain json",
			raw:    `{"score": 75, "justification": "Good fit"}`,
			want:   ai.MatchResult{Score: 75, Justification: "Good fit"},
			wantOK: true,
		},
		{
			name:   "prose and json fence with float score",
			raw:    "Sure! ```json\n{\"score\": 82.6, \"justification\": \"Strong match\"}\n```",
			want:   ai.MatchResult{Score: 83, Justification: "Strong match"},
			wantOK: true,
		},
		{
			name:   "upper case fence",
			raw:    "```JSON\n{\"score\": 10, \"justification\": \"Weak\"}\n```",
			want:   ai.MatchResult{Score: 10, Justification: "Weak"},
			wantOK: true,
		},
		{
			name:   "bare fence and trailing prose",
			raw:    "```\n{\"score\": 0, \"justification\": \"No overlap\"}\n```\nHope this helps.",
			want:   ai.MatchResult{Score: 0, Justification: "No overlap"},
			wantOK: true,
		},
		{
			name:   "half rounds away from zero",
			raw:    `{"score": 49.5, "justification": "Borderline"}`,
			want:   ai.MatchResult{Score: 50, Justification: "Borderline"},
			wantOK: true,
		},
		{
			name:   "upper bound",
			raw:    `{"score": 100, "justification": "Perfect"}`,
			want:   ai.MatchResult{Score: 100, Justification: "Perfect"},
			wantOK: true,
		},
		{
			name:   "fence inside justification is preserved",
			raw:    "{\"score\": 60, \"justification\": \"Knows ```go``` well\"}",
			want:   ai.MatchResult{Score: 60, Justification: "Knows ```go``` well"},
			wantOK: true,
		},
		{
			name:   "json fence marker inside justification is preserved",
			raw:    "{\"score\":80,\"justification\":\"uses ```json blocks\"}",
			want:   ai.MatchResult{Score: 80, Justification: "uses ```json blocks"},
			wantOK: true,
		},
		{name: "score above range", raw: `{"score": 101, "justification": "Too good"}`},
		{name: "score below range", raw: `{"score": -1, "justification": "Negative"}`},
		{name: "score just above range", raw: `{"score": 100.2, "justification": "Rounded would be 100"}`},
		{name: "score as string", raw: `{"score": "80", "justification": "Stringly"}`},
		{name: "missing score", raw: `{"justification": "No score"}`},
		{name: "missing justification", raw: `{"score": 50}`},
		{name: "empty justification", raw: `{"score": 50, "justification": ""}`},
		{name: "justification not a string", raw: `{"score": 50, "justification": 42}`},
		{name: "not json", raw: "I think the candidate is a good fit."},
		{name: "empty", raw: ""},
		{name: "broken json", raw: `{"score": 50, "justification": "unterminated}`},
		{
			name:   "object inside array",
			raw:    `[{"score": 50, "justification": "array"}]`,
			want:   ai.MatchResult{Score: 50, Justification: "array"},
			wantOK: true,
		},
		{name: "json null", raw: "null"},
		{name: "two objects", raw: `{"score": 50, "justification": "a"} {"score": 60, "justification": "b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseMatch(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (result %+v)", tt.wantOK, ok, got)
			}
			if !ok {
				if got != (ai.MatchResult{}) {
					t.Fatalf("expected zero result on failure, got %+v", got)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseMatchRoundTripProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 500; i++ {
		score := rng.Float64() * 100
		if i%3 == 0 {
			score = float64(rng.IntN(101))
		}
		justification := randomText(rng)

		raw, err := json.Marshal(map[string]any{"score": score, "justification": justification})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		got, ok := ParseMatch(string(raw))
		if !ok {
			t.Fatalf("expected %s to parse", raw)
		}
		want := ai.MatchResult{Score: int(math.Round(score)), Justification: justification}
		if got != want {
			t.Fatalf("expected %+v, got %+v", want, got)
		}
	}
}

func TestParseMatchOutOfRangeProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 11))
	for i := 0; i < 300; i++ {
		score := 101 + rng.IntN(10_000)
		if i%2 == 0 {
			score = -1 - rng.IntN(10_000)
		}
		raw := fmt.Sprintf(`{"score": %d, "justification": "Valid text"}`, score)
		if _, ok := ParseMatch(raw); ok {
			t.Fatalf("expected score %d to be rejected", score)
		}
	}
}

func TestParseMatchFencedWithProseProperty(t *testing.T) {
	t.Parallel()

	prefixes := []string{"", "Sure! ", "Here is the analysis:\n", "Voici le résultat : "}
	suffixes := []string{"", "\nLet me know if you need more.", " Cordialement."}

	rng := rand.New(rand.NewPCG(5, 9))
	for i := 0; i < 200; i++ {
		score := rng.IntN(101)
		justification := randomText(rng)
		payload, _ := json.Marshal(map[string]any{"score": score, "justification": justification})

		raw := prefixes[i%len(prefixes)] + "```json\n" + string(payload) + "\n```" + suffixes[i%len(suffixes)]

		got, ok := ParseMatch(raw)
		if !ok {
			t.Fatalf("expected fenced payload to parse: %q", raw)
		}
		if got.Score != score || got.Justification != justification {
			t.Fatalf("expected {%d %q}, got %+v", score, justification, got)
		}
	}
}

func TestParseMatchEmptyJustificationProperty(t *testing.T) {
	t.Parallel()

	for score := 0; score <= 100; score++ {
		raw := fmt.Sprintf(`{"score": %d, "justification": ""}`, score)
		if _, ok := ParseMatch(raw); ok {
			t.Fatalf("expected empty justification to be rejected for score %d", score)
		}
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	got := StripFences("  ```Json\n{\"a\":1}\n```  ")
	if got != `{"a":1}` {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{input: `prefix {"a": {"b": 1}} suffix`, expect: `{"a": {"b": 1}}`},
		{input: "no braces", expect: "no braces"},
		{input: "} reversed {", expect: "} reversed {"},
	}

	for _, tt := range tests {
		if got := ExtractJSON(tt.input); got != tt.expect {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

var alphabet = []rune("abcdefghijklmnopqrstuvwxyz ABCXYZ éèàçô0123456789,.;:!?'\"{}[]\\/-")

func randomText(rng *rand.Rand) string {
	n := 1 + rng.IntN(60)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(alphabet[rng.IntN(len(alphabet))])
	}
	return b.String()
}
