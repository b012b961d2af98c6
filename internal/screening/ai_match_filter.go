package screening

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/careerpath-ai/internal/ai"
	"github.com/spigell/careerpath-ai/internal/applications"
)

const defaultConcurrency = 4

type aiMatchFilter struct {
	disabled    bool
	reason      string
	minScore    int
	concurrency int
}

// NewAIMatch creates the AI-based screening step. Each application is analysed concurrently and
// the result is written to the store. Applications whose analysis failed are kept with the error
// recorded; scored applications below the minimum score are dropped.
func NewAIMatch() Filter {
	return &aiMatchFilter{}
}

func (f *aiMatchFilter) Name() string { return "ai_match" }

func (f *aiMatchFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aiMatchFilter) IsEnabled() bool { return !f.disabled }

func (f *aiMatchFilter) Validate(cfg *Config) error {
	f.minScore = 0
	f.concurrency = defaultConcurrency
	if cfg == nil {
		return nil
	}
	if cfg.MinimumScore < 0 || cfg.MinimumScore > 100 {
		return fmt.Errorf("minimum score must be between 0 and 100, got %d", cfg.MinimumScore)
	}
	f.minScore = cfg.MinimumScore
	if cfg.Concurrency > 0 {
		f.concurrency = cfg.Concurrency
	}
	return nil
}

type outcome struct {
	result *ai.MatchResult
	err    error
}

func (f *aiMatchFilter) Apply(ctx context.Context, deps Deps, items []*applications.Application) ([]*applications.Application, Step, error) {
	initial := len(items)
	if deps.Matcher == nil {
		deps.Logger.Info("ai matcher is not configured; skipping ai_match filter")
		return items, Step{Initial: initial, Left: initial}, nil
	}
	if deps.Store == nil {
		return nil, Step{}, errors.New("applications store is required for AI screening")
	}

	limit := f.concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	outcomes := make([]outcome, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, item := range items {
		group.Go(func() error {
			result, err := deps.Matcher.AnalyzeMatch(groupCtx, &item.Candidate, &item.Job)
			var aiErr *ai.Error
			if err != nil && !errors.As(err, &aiErr) {
				return fmt.Errorf("analyze application %s: %w", item.ID, err)
			}
			outcomes[i] = outcome{result: result, err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, Step{}, err
	}

	kept := make([]*applications.Application, 0, initial)
	for i, item := range items {
		res := outcomes[i]

		if res.err != nil {
			deps.Logger.Warn("AI analysis failed",
				zap.String("application_id", item.ID),
				zap.String("code", ai.Code(res.err)),
				zap.Error(res.err),
			)
			if err := deps.Store.RecordMatchError(item.ID, res.err); err != nil {
				return nil, Step{}, err
			}
			updated, err := deps.Store.Get(item.ID)
			if err != nil {
				return nil, Step{}, err
			}
			kept = append(kept, updated)
			continue
		}

		if err := deps.Store.UpdateMatchScore(item.ID, res.result.Score, res.result.Justification); err != nil {
			return nil, Step{}, err
		}
		updated, err := deps.Store.Get(item.ID)
		if err != nil {
			return nil, Step{}, err
		}

		if res.result.Score < f.minScore {
			deps.Logger.Info("application below minimum score",
				zap.String("application_id", item.ID),
				zap.Int("score", res.result.Score),
				zap.Int("threshold", f.minScore),
			)
			continue
		}

		deps.Logger.Info("application scored",
			zap.String("application_id", item.ID),
			zap.Int("score", res.result.Score),
		)
		kept = append(kept, updated)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *aiMatchFilter) Status() Status {
	details := map[string]string{
		"minimum_score": strconv.Itoa(f.minScore),
		"concurrency":   strconv.Itoa(f.concurrency),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
