package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/job-alerter/internal/posting"
)

const SentHistoryName = "sent_history"

type sentHistoryFilter struct {
	enabled bool
	reason  string
}

// NewSentHistory creates a filter that removes jobs already sent to the user.
func NewSentHistory() Filter {
	return &sentHistoryFilter{enabled: true}
}

func (f *sentHistoryFilter) Name() string { return SentHistoryName }

func (f *sentHistoryFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *sentHistoryFilter) IsEnabled() bool { return f.enabled }

func (f *sentHistoryFilter) Validate(deps Deps) error {
	if deps.Tracker == nil {
		return fmt.Errorf("dedup tracker is required")
	}
	return nil
}

func (f *sentHistoryFilter) Apply(ctx context.Context, deps Deps, profile *posting.Profile, jobs []posting.Scored) ([]posting.Scored, Step, error) {
	initial := len(jobs)

	candidates, err := deps.Tracker.Candidates(ctx, profile.UserID, posting.Jobs(jobs))
	if err != nil {
		return nil, Step{}, err
	}

	left := make([]posting.Scored, 0, len(candidates))
	for _, job := range candidates {
		left = append(left, posting.Scored{Job: job})
	}

	return left, Step{Initial: initial, Dropped: initial - len(left), Left: len(left)}, nil
}

func (f *sentHistoryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
