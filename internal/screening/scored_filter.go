package screening

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/applications"
)

const forceFlagSetMsg = "force flag is set"

type alreadyScoredFilter struct {
	disabled bool
	reason   string
}

// NewAlreadyScored creates a filter that removes applications which already have a match score.
func NewAlreadyScored() Filter {
	return &alreadyScoredFilter{}
}

// DisableForced disables the already_scored filter when force is set.
func DisableForced(steps []Filter, force bool) {
	if force {
		DisableByName(steps, "already_scored", forceFlagSetMsg)
	}
}

func (f *alreadyScoredFilter) Name() string { return "already_scored" }

func (f *alreadyScoredFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *alreadyScoredFilter) IsEnabled() bool { return !f.disabled }

func (f *alreadyScoredFilter) Validate(*Config) error { return nil }

func (f *alreadyScoredFilter) Apply(_ context.Context, deps Deps, items []*applications.Application) ([]*applications.Application, Step, error) {
	initial := len(items)

	kept := make([]*applications.Application, 0, initial)
	var excluded []*applications.Application
	for _, item := range items {
		if item.Scored() {
			excluded = append(excluded, item)
			continue
		}
		kept = append(kept, item)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding already scored applications",
			zap.Strings("excluded_applications", ids(excluded)),
			zap.Int("applications_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *alreadyScoredFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
