package matching

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/ai/prompt"
	"github.com/spigell/careerpath-ai/internal/logger"
)

type reply struct {
	text  string
	err   error
	delay time.Duration
}

type stubGateway struct {
	mu        sync.Mutex
	available bool
	replies   []reply
	calls     [][]ai.Message
	probes    int
}

func (g *stubGateway) IsAvailable(context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probes++
	return g.available
}

func (g *stubGateway) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, messages)
	if len(g.replies) == 0 {
		g.mu.Unlock()
		return "", errors.New("unexpected chat call")
	}
	next := g.replies[0]
	g.replies = g.replies[1:]
	g.mu.Unlock()

	if next.delay > 0 {
		select {
		case <-time.After(next.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return next.text, next.err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newService(t *testing.T, gateway ai.Gateway, cfg Config) *Service {
	t.Helper()
	builder, err := prompt.NewBuilder(prompt.LocaleFrench, 5)
	require.NoError(t, err)
	return NewService(gateway, builder, cfg, zap.NewNop())
}

func scenario() (*ai.CandidateSnapshot, *ai.JobSnapshot) {
	return &ai.CandidateSnapshot{FirstName: "Amine", LastName: "Ben Ali"},
		&ai.JobSnapshot{
			Title:       "Backend Developer",
			Description: "Build APIs",
			Company:     ai.Company{Name: "Acme"},
			Skills:      []ai.Skill{{Name: "Node.js"}},
		}
}

func TestGenerateCoverLetter(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{{text: "Madame, Monsieur, je postule."}}}
	service := newService(t, gateway, DefaultConfig())
	candidate, job := scenario()

	letter, err := service.GenerateCoverLetter(context.Background(), candidate, job)
	require.NoError(t, err)
	assert.Equal(t, "Madame, Monsieur, je postule.", letter)

	require.Len(t, gateway.calls, 1)
	messages := gateway.calls[0]
	require.Len(t, messages, 2)
	assert.Equal(t, ai.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "5 mots maximum")
	assert.Equal(t, ai.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "Backend Developer")
	assert.Contains(t, messages[1].Content, "Amine Ben Ali")
}

func TestGenerateCoverLetterTruncatesLongLetters(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{{text: "one two\nthree   four five six seven"}}}
	service := newService(t, gateway, DefaultConfig())

	letter, err := service.GenerateCoverLetter(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "one two three four five...", letter)
}

func TestGenerateCoverLetterEmptyContent(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{{text: ""}}}
	service := newService(t, gateway, DefaultConfig())

	letter, err := service.GenerateCoverLetter(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, letter)
}

func TestUnavailableSkipsChat(t *testing.T) {
	gateway := &stubGateway{available: false}
	service := newService(t, gateway, DefaultConfig())
	candidate, job := scenario()

	_, err := service.GenerateCoverLetter(context.Background(), candidate, job)
	require.ErrorIs(t, err, ai.ErrUnavailable)
	assert.Equal(t, "AI_UNAVAILABLE", ai.Code(err))

	result, err := service.AnalyzeMatch(context.Background(), candidate, job)
	require.ErrorIs(t, err, ai.ErrUnavailable)
	assert.Nil(t, result)

	assert.Equal(t, 2, gateway.probes)
	assert.Zero(t, gateway.callCount())
}

func TestTimeout(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{
		{text: "late", delay: time.Second},
		{text: `{"score": 50, "justification": "late"}`, delay: time.Second},
	}}
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	service := newService(t, gateway, cfg)

	start := time.Now()
	_, err := service.GenerateCoverLetter(context.Background(), nil, nil)
	require.ErrorIs(t, err, ai.ErrTimeout)
	assert.Equal(t, 504, ai.HTTPStatus(err))

	_, err = service.AnalyzeMatch(context.Background(), nil, nil)
	require.ErrorIs(t, err, ai.ErrTimeout)

	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestCallerCancellationIsReturnedUnchanged(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{{text: "late", delay: time.Second}}}
	service := newService(t, gateway, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := service.GenerateCoverLetter(ctx, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ai.Code(err))
}

func TestAnalyzeMatch(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{
		{text: "Voici :\n```json\n{\"score\": 81.5, \"justification\": \"Bonne correspondance\"}\n```"},
	}}
	service := newService(t, gateway, DefaultConfig())
	candidate, job := scenario()

	result, err := service.AnalyzeMatch(context.Background(), candidate, job)
	require.NoError(t, err)
	assert.Equal(t, &ai.MatchResult{Score: 82, Justification: "Bonne correspondance"}, result)
	assert.Equal(t, 1, gateway.callCount())
}

func TestAnalyzeMatchRetrySucceeds(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{
		{text: "Le candidat semble correspondre."},
		{text: `{"score": 64, "justification": "Compétences partielles"}`},
	}}
	service := newService(t, gateway, DefaultConfig())
	candidate, job := scenario()

	result, err := service.AnalyzeMatch(context.Background(), candidate, job)
	require.NoError(t, err)
	assert.Equal(t, 64, result.Score)
	assert.Equal(t, "Compétences partielles", result.Justification)

	require.Len(t, gateway.calls, 2)
	first, retry := gateway.calls[0], gateway.calls[1]
	assert.Equal(t, first[0], retry[0], "retry keeps the system prompt")
	assert.True(t, strings.HasPrefix(retry[1].Content, "IMPORTANT"))
	assert.True(t, strings.HasSuffix(retry[1].Content, first[1].Content), "retry embeds the first user prompt")
}

func TestAnalyzeMatchRetryFails(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{
		{text: "not json"},
		{text: `{"score": 150, "justification": "out of range"}`},
	}}
	service := newService(t, gateway, DefaultConfig())

	result, err := service.AnalyzeMatch(context.Background(), nil, nil)
	require.ErrorIs(t, err, ai.ErrParse)
	assert.Nil(t, result)
	assert.Equal(t, "Failed to parse AI response after retry", err.Error())
	assert.Equal(t, 2, gateway.callCount())
}

func TestStrictRetryTimeoutBound(t *testing.T) {
	slowRetry := func() *stubGateway {
		return &stubGateway{available: true, replies: []reply{
			{text: "not json"},
			{text: `{"score": 70, "justification": "slow but valid"}`, delay: 80 * time.Millisecond},
		}}
	}

	t.Run("bounded", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Timeout = 20 * time.Millisecond
		service := newService(t, slowRetry(), cfg)

		_, err := service.AnalyzeMatch(context.Background(), nil, nil)
		require.ErrorIs(t, err, ai.ErrTimeout)
	})

	t.Run("unbounded", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Timeout = 20 * time.Millisecond
		cfg.BoundStrictRetry = false
		service := newService(t, slowRetry(), cfg)

		result, err := service.AnalyzeMatch(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 70, result.Score)
	})
}

func TestTransportErrorClassification(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	dns := &net.DNSError{Err: "no such host", Name: "ollama", IsNotFound: true}

	tests := []struct {
		name    string
		err     error
		want    error
		message string
	}{
		{name: "connection refused", err: fmt.Errorf("post: %w", refused), want: ai.ErrUnavailable},
		{name: "dns failure", err: dns, want: ai.ErrUnavailable},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: ai.ErrTimeout},
		{
			name:    "other error",
			err:     errors.New("bad status: 500 Internal Server Error"),
			want:    ai.ErrParse,
			message: "Failed to generate cover letter: bad status: 500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &stubGateway{available: true, replies: []reply{{err: tt.err}}}
			service := newService(t, gateway, DefaultConfig())

			_, err := service.GenerateCoverLetter(context.Background(), nil, nil)
			require.ErrorIs(t, err, tt.want)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestAnalyzeMatchTransportErrorMessage(t *testing.T) {
	gateway := &stubGateway{available: true, replies: []reply{{err: errors.New("unexpected chat response shape")}}}
	service := newService(t, gateway, DefaultConfig())

	_, err := service.AnalyzeMatch(context.Background(), nil, nil)
	require.ErrorIs(t, err, ai.ErrParse)
	assert.Equal(t, "Failed to analyze match: unexpected chat response shape", err.Error())
}

func TestRequestsAreLoggedWithRequestID(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	gateway := &stubGateway{available: true, replies: []reply{
		{text: `{"score": 10, "justification": "a"}`},
		{text: `{"score": 20, "justification": "b"}`},
	}}
	builder, err := prompt.NewBuilder(prompt.LocaleEnglish, 0)
	require.NoError(t, err)
	service := NewService(gateway, builder, DefaultConfig(), zap.New(core))

	for i := 0; i < 2; i++ {
		_, err := service.AnalyzeMatch(context.Background(), nil, nil)
		require.NoError(t, err)
	}

	entries := observed.FilterMessage("match analysed").All()
	require.Len(t, entries, 2)

	ids := map[any]struct{}{}
	for _, entry := range entries {
		fields := entry.ContextMap()
		assert.Equal(t, ai.TaskAnalysis, fields[logger.FieldTask])
		require.NotEmpty(t, fields[logger.FieldRequestID])
		ids[fields[logger.FieldRequestID]] = struct{}{}
	}
	assert.Len(t, ids, 2, "every request gets its own id")
}

func TestConcurrentRequests(t *testing.T) {
	const n = 16
	replies := make([]reply, n)
	for i := range replies {
		replies[i] = reply{text: `{"score": 55, "justification": "ok"}`, delay: time.Millisecond}
	}
	gateway := &stubGateway{available: true, replies: replies}
	service := newService(t, gateway, DefaultConfig())

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AnalyzeMatch(context.Background(), nil, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, n, gateway.callCount())
}

func TestEnforceWordLimit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "within limit", text: "  Hello   world  ", limit: 5, want: "  Hello   world  "},
		{name: "exact", text: "a b c", limit: 3, want: "a b c"},
		{name: "over", text: "a\tb\nc d", limit: 2, want: "a b..."},
		{name: "empty", text: "", limit: 3, want: ""},
		{name: "no limit", text: "a b c", limit: 0, want: "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnforceWordLimit(tt.text, tt.limit))
		})
	}
}

func TestEnforceWordLimitProperty(t *testing.T) {
	separators := []string{" ", "  ", "\n", "\t", " \n "}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 300; i++ {
		limit := 1 + rng.IntN(30)
		count := rng.IntN(60)

		words := make([]string, count)
		var b strings.Builder
		for j := range words {
			words[j] = fmt.Sprintf("w%d", rng.IntN(1000))
			if j > 0 {
				b.WriteString(separators[rng.IntN(len(separators))])
			}
			b.WriteString(words[j])
		}
		text := b.String()

		got := EnforceWordLimit(text, limit)
		if count <= limit {
			require.Equal(t, text, got)
			continue
		}

		require.True(t, strings.HasSuffix(got, ellipsis))
		kept := strings.Fields(strings.TrimSuffix(got, ellipsis))
		require.Len(t, kept, limit)
		require.Equal(t, words[:limit], kept)
		require.Equal(t, strings.Join(words[:limit], " ")+ellipsis, got)
	}
}
