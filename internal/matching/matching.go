// Package matching orchestrates cover-letter generation and match analysis on top of a Gateway.
package matching

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/ai/prompt"
	"github.com/spigell/careerpath-ai/internal/ai/response"
	"github.com/spigell/careerpath-ai/internal/logger"
	"github.com/spigell/careerpath-ai/internal/utils"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxLogLength = 200

	ellipsis = "..."

	coverLetterFailure = "Failed to generate cover letter"
	analysisFailure    = "Failed to analyze match"
	retryFailure       = "Failed to parse AI response after retry"
)

// Config holds the per-process policy of a Service.
type Config struct {
	// Timeout bounds every gateway call raced against a timer.
	Timeout time.Duration
	// BoundStrictRetry applies Timeout to the stricter analysis retry as well. When false the
	// retry only honours the caller's context.
	BoundStrictRetry bool
	// MaxLogLength caps prompt and response previews in debug logs.
	MaxLogLength int
}

func DefaultConfig() Config {
	return Config{
		Timeout:          DefaultTimeout,
		BoundStrictRetry: true,
		MaxLogLength:     DefaultMaxLogLength,
	}
}

// Service is the live Matcher. It keeps no per-request state and is safe for concurrent use.
type Service struct {
	gateway ai.Gateway
	prompts *prompt.Builder
	cfg     Config
	logger  *zap.Logger
}

var _ ai.Matcher = (*Service)(nil)

func NewService(gateway ai.Gateway, prompts *prompt.Builder, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = DefaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		gateway: gateway,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
	}
}

// GenerateCoverLetter writes a cover letter and enforces the configured word limit on it.
func (s *Service) GenerateCoverLetter(ctx context.Context, candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) (string, error) {
	log := s.requestLogger(ai.TaskCoverLetter)

	if err := s.checkAvailability(ctx, log); err != nil {
		return "", err
	}

	pair := s.prompts.CoverLetter(candidate, job)
	raw, err := s.send(ctx, log, pair, true)
	if err != nil {
		return "", s.classify(ctx, log, err, coverLetterFailure)
	}

	letter := EnforceWordLimit(raw, s.prompts.MaxWords())
	if letter != raw {
		log.Info("cover letter truncated", zap.Int("max_words", s.prompts.MaxWords()))
	}

	log.Info("cover letter generated", zap.Int("length", utf8.RuneCountInString(letter)))
	return letter, nil
}

// AnalyzeMatch scores how well the candidate fits the job. An unparsable answer is retried once
// with a stricter prompt.
func (s *Service) AnalyzeMatch(ctx context.Context, candidate *ai.CandidateSnapshot, job *ai.JobSnapshot) (*ai.MatchResult, error) {
	log := s.requestLogger(ai.TaskAnalysis)

	if err := s.checkAvailability(ctx, log); err != nil {
		return nil, err
	}

	raw, err := s.send(ctx, log, s.prompts.Analysis(candidate, job), true)
	if err != nil {
		return nil, s.classify(ctx, log, err, analysisFailure)
	}

	result, ok := response.ParseMatch(raw)
	if !ok {
		log.Warn("unparsable analysis, retrying with stricter prompt",
			zap.String("response_preview", utils.TruncateForLog(raw, s.cfg.MaxLogLength)),
		)

		raw, err = s.send(ctx, log, s.prompts.StrictAnalysis(candidate, job), s.cfg.BoundStrictRetry)
		if err != nil {
			return nil, s.classify(ctx, log, err, analysisFailure)
		}

		result, ok = response.ParseMatch(raw)
		if !ok {
			log.Error("unparsable analysis after retry",
				zap.String("response_preview", utils.TruncateForLog(raw, s.cfg.MaxLogLength)),
			)
			return nil, ai.ParseError(retryFailure, nil)
		}
	}

	log.Info("match analysed", zap.Int("score", result.Score))
	return &result, nil
}

func (s *Service) requestLogger(task string) *zap.Logger {
	return logger.WithFields(s.logger, logger.RequestFields(task, uuid.NewString())...)
}

func (s *Service) checkAvailability(ctx context.Context, log *zap.Logger) error {
	if !s.gateway.IsAvailable(ctx) {
		log.Warn("ai service unavailable")
		return ai.Unavailable(nil)
	}
	return nil
}

type chatResult struct {
	text string
	err  error
}

// send calls the gateway. When bounded, the call races a timer and loses to it after
// cfg.Timeout; the abandoned call's context is cancelled so its connection returns to the pool.
func (s *Service) send(ctx context.Context, log *zap.Logger, pair prompt.Pair, bounded bool) (string, error) {
	log.Debug("send prompt",
		zap.Bool("bounded", bounded),
		zap.Int("prompt_length", utf8.RuneCountInString(pair.User)),
		zap.String("prompt_preview", utils.TruncateForLog(pair.User, s.cfg.MaxLogLength)),
	)

	text, err := s.chat(ctx, pair.Messages(), bounded)
	if err != nil {
		return "", err
	}

	log.Debug("receive response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, s.cfg.MaxLogLength)),
	)
	return text, nil
}

func (s *Service) chat(ctx context.Context, messages []ai.Message, bounded bool) (string, error) {
	if !bounded {
		return s.gateway.Chat(ctx, messages)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan chatResult, 1)
	go func() {
		text, err := s.gateway.Chat(callCtx, messages)
		results <- chatResult{text: text, err: err}
	}()

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.text, res.err
	case <-timer.C:
		return "", ai.Timeout()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Service) classify(ctx context.Context, log *zap.Logger, err error, failure string) error {
	classified := classify(ctx, err, failure)
	log.Error("ai request failed", zap.String("code", ai.Code(classified)), zap.Error(err))
	return classified
}

// EnforceWordLimit keeps the first limit whitespace-separated words of text, joined by single spaces
// and followed by "...". Text within the limit is returned unchanged.
func EnforceWordLimit(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}

	return strings.Join(words[:limit], " ") + ellipsis
}
