package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/job-alerter/internal/posting"
)

const RelevanceName = "relevance"

type relevanceFilter struct {
	enabled bool
	reason  string
}

// NewRelevance creates a step that scores and sorts jobs for the user.
// Jobs that could not be scored are dropped.
func NewRelevance() Filter {
	return &relevanceFilter{enabled: true}
}

func (f *relevanceFilter) Name() string { return RelevanceName }

func (f *relevanceFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *relevanceFilter) IsEnabled() bool { return f.enabled }

func (f *relevanceFilter) Validate(deps Deps) error {
	if deps.Matcher == nil {
		return fmt.Errorf("matcher is required")
	}
	return nil
}

func (f *relevanceFilter) Apply(ctx context.Context, deps Deps, profile *posting.Profile, jobs []posting.Scored) ([]posting.Scored, Step, error) {
	initial := len(jobs)
	ranked := deps.Matcher.Rank(ctx, profile, posting.Jobs(jobs))
	if err := ctx.Err(); err != nil {
		return nil, Step{}, err
	}

	return ranked, Step{Initial: initial, Dropped: initial - len(ranked), Left: len(ranked)}, nil
}

func (f *relevanceFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
