package filtering

import (
	"context"
	"strconv"

	"github.com/spigell/job-alerter/internal/matching"
	"github.com/spigell/job-alerter/internal/posting"
)

const TopMatchesName = "top_matches"

type topMatchesFilter struct {
	enabled  bool
	reason   string
	topK     int
	minScore float64
}

// NewTopMatches creates a step that keeps at most topK ranked jobs scoring at
// least minScore.
func NewTopMatches(topK int, minScore float64) Filter {
	return &topMatchesFilter{enabled: true, topK: topK, minScore: minScore}
}

func (f *topMatchesFilter) Name() string { return TopMatchesName }

func (f *topMatchesFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *topMatchesFilter) IsEnabled() bool { return f.enabled }

func (f *topMatchesFilter) Validate(Deps) error { return nil }

func (f *topMatchesFilter) Apply(_ context.Context, _ Deps, _ *posting.Profile, jobs []posting.Scored) ([]posting.Scored, Step, error) {
	initial := len(jobs)
	top := matching.SelectTop(jobs, f.topK, f.minScore)
	return top, Step{Initial: initial, Dropped: initial - len(top), Left: len(top)}, nil
}

func (f *topMatchesFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{
			"top_k":     strconv.Itoa(f.topK),
			"min_score": strconv.FormatFloat(f.minScore, 'f', -1, 64),
		},
	}
}
