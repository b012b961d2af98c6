package screening

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/applications"
)

var knownStatuses = []string{
	applications.StatusPending,
	applications.StatusAccepted,
	applications.StatusRejected,
	applications.StatusInterview,
}

type statusFilter struct {
	disabled bool
	reason   string
	statuses []string
}

// NewStatus creates a filter that keeps applications whose status is eligible for screening.
func NewStatus() Filter {
	return &statusFilter{}
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *statusFilter) IsEnabled() bool { return !f.disabled }

func (f *statusFilter) Validate(cfg *Config) error {
	f.statuses = nil
	if cfg != nil {
		for _, status := range cfg.Statuses {
			status = strings.ToLower(strings.TrimSpace(status))
			if !slices.Contains(knownStatuses, status) {
				return fmt.Errorf("unknown application status %q", status)
			}
			f.statuses = append(f.statuses, status)
		}
	}
	return nil
}

func (f *statusFilter) Apply(_ context.Context, deps Deps, items []*applications.Application) ([]*applications.Application, Step, error) {
	initial := len(items)
	if len(f.statuses) == 0 {
		return items, Step{Initial: initial, Left: initial}, nil
	}

	kept := make([]*applications.Application, 0, initial)
	var excluded []*applications.Application
	for _, item := range items {
		if slices.Contains(f.statuses, item.Status) {
			kept = append(kept, item)
			continue
		}
		excluded = append(excluded, item)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding applications by status",
			zap.Strings("eligible_statuses", f.statuses),
			zap.Strings("excluded_applications", ids(excluded)),
			zap.Int("applications_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *statusFilter) Status() Status {
	details := map[string]string{}
	if len(f.statuses) > 0 {
		details["statuses"] = strings.Join(f.statuses, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
