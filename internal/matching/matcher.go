// Package matching scores job postings against user profiles.
package matching

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/posting"
)

const (
	// DirectMatchScore is assigned when the job field equals the profession.
	DirectMatchScore = 0.95

	DefaultJobPostThreshold = 0.6
	DefaultTopK             = 5
	DefaultMinScore         = 0.5
)

type Config struct {
	JobPostThreshold float64
}

type Matcher struct {
	classifier ai.Classifier
	cfg        Config
	logger     *zap.Logger
}

func New(classifier ai.Classifier, cfg Config, logger *zap.Logger) (*Matcher, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required for matching")
	}
	if cfg.JobPostThreshold <= 0 {
		cfg.JobPostThreshold = DefaultJobPostThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{classifier: classifier, cfg: cfg, logger: logger}, nil
}

// Score returns the relevance of job for profile in [0,1]. Rules are applied
// in order and the first applicable one decides:
// non-job posts score 0, a direct field match scores DirectMatchScore, and
// otherwise the domain classification of the job text is used.
func (m *Matcher) Score(ctx context.Context, profile *posting.Profile, job *posting.Job) (float64, error) {
	if profile == nil || job == nil {
		return 0, errors.New("profile and job are required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	text := job.Text()
	if !m.isJobPost(ctx, text) {
		return 0, nil
	}

	field := Normalize(job.Field)
	profession := Normalize(profile.Profession)
	if field != "" && profession != "" && strings.EqualFold(field, profession) {
		return DirectMatchScore, nil
	}

	res := m.classifier.Classify(ctx, text, ai.FieldLabels, true)
	if res.Failed() {
		m.logger.Debug("domain classification failed", zap.String("url", job.URL), zap.Error(res.Err))
		return 0, nil
	}

	if profession != "" {
		if s, ok := res.Lookup(profession); ok {
			return s, nil
		}
	}
	if raw := strings.TrimSpace(job.Field); raw != "" {
		if s, ok := res.Lookup(raw); ok {
			return s, nil
		}
	}
	s, _ := res.Lookup(ai.LabelOther)
	return s, nil
}

// isJobPost fails open: when the classifier gives no answer the text is
// treated as a job post.
func (m *Matcher) isJobPost(ctx context.Context, text string) bool {
	res := m.classifier.Classify(ctx, text, ai.JobPostLabels, false)
	if res.Empty() {
		if res.Failed() {
			m.logger.Debug("job post prefilter failed open", zap.Error(res.Err))
		}
		return true
	}

	s, _ := res.Lookup(ai.LabelJobPost)
	return s >= m.cfg.JobPostThreshold
}

// Rank scores every job independently and sorts by descending score. A job
// that fails to score is left out.
func (m *Matcher) Rank(ctx context.Context, profile *posting.Profile, jobs []*posting.Job) []posting.Scored {
	scored := make([]posting.Scored, 0, len(jobs))
	for _, job := range jobs {
		s, err := m.Score(ctx, profile, job)
		if err != nil {
			m.logger.Warn("scoring job failed",
				zap.Int64("user_id", userID(profile)),
				zap.String("url", jobURL(job)),
				zap.Error(err),
			)
			continue
		}
		scored = append(scored, posting.Scored{Job: job, Score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// SelectTop returns the leading entries of an already ranked list that reach
// minScore, at most topK of them.
func SelectTop(ranked []posting.Scored, topK int, minScore float64) []posting.Scored {
	out := make([]posting.Scored, 0, max(topK, 0))
	for _, s := range ranked {
		if len(out) >= topK {
			break
		}
		if s.Score < minScore {
			break
		}
		out = append(out, s)
	}
	return out
}

func userID(p *posting.Profile) int64 {
	if p == nil {
		return 0
	}
	return p.UserID
}

func jobURL(j *posting.Job) string {
	if j == nil {
		return ""
	}
	return j.URL
}
