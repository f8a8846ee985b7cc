package matching

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/posting"
)

type stubClassifier struct {
	prefilter ai.Classification
	domain    ai.Classification
	calls     []string
}

func (s *stubClassifier) Classify(_ context.Context, _ string, labels []string, _ bool) ai.Classification {
	s.calls = append(s.calls, labels[0])
	if labels[0] == ai.LabelJobPost {
		return s.prefilter
	}
	return s.domain
}

func (s *stubClassifier) Model() string { return "stub" }

func jobPost(score float64) ai.Classification {
	return ai.Classification{Scores: []ai.Score{
		{Label: ai.LabelJobPost, Score: score},
		{Label: ai.LabelNotJobPost, Score: 1 - score},
	}}
}

func newMatcher(t *testing.T, c ai.Classifier) *Matcher {
	t.Helper()

	m, err := New(c, Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestNewRequiresClassifier(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, Config{}, nil); err == nil {
		t.Fatal("expected error for missing classifier")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Software Engineering": "Engineering",
		" Backend Development": "Web Development",
		"HR":                   "Human Resources",
		"Engineering":          "Engineering",
		"Astronaut":            "Astronaut",
		"":                     "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScoreDirectMatchAfterAliases(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{
		prefilter: jobPost(0.9),
		domain:    ai.Classification{Scores: []ai.Score{{Label: "Engineering", Score: 0.1}}},
	}
	m := newMatcher(t, classifier)

	got, err := m.Score(context.Background(),
		&posting.Profile{UserID: 1, Profession: "Software Engineering"},
		&posting.Job{Title: "Dev", Field: "Engineering"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != DirectMatchScore {
		t.Fatalf("expected %v, got %v", DirectMatchScore, got)
	}
	if len(classifier.calls) != 1 {
		t.Fatalf("expected only the prefilter call, got %v", classifier.calls)
	}
}

func TestScoreDirectMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, &stubClassifier{prefilter: jobPost(0.8)})

	got, _ := m.Score(context.Background(),
		&posting.Profile{Profession: "data science"},
		&posting.Job{Field: "Data Science"},
	)
	if got != DirectMatchScore {
		t.Fatalf("expected direct match, got %v", got)
	}
}

func TestScoreNonJobPostIsZero(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{prefilter: jobPost(0.3)}
	m := newMatcher(t, classifier)

	got, err := m.Score(context.Background(),
		&posting.Profile{Profession: "Engineering"},
		&posting.Job{Field: "Engineering"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 for a non-job post, got %v", got)
	}
}

func TestScorePrefilterFailsOpen(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	classifier := &stubClassifier{
		prefilter: ai.Classification{Err: errors.New("bad status: 429 Too Many Requests")},
		domain: ai.Classification{Scores: []ai.Score{
			{Label: "Marketing", Score: 0.7},
			{Label: ai.LabelOther, Score: 0.1},
		}},
	}
	m, err := New(classifier, Config{}, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Score(context.Background(),
		&posting.Profile{Profession: "Marketing"},
		&posting.Job{Title: "Growth lead"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.7 {
		t.Fatalf("expected fallback score 0.7, got %v", got)
	}
	if logs.FilterMessage("job post prefilter failed open").Len() != 1 {
		t.Fatal("expected fail-open to be logged")
	}
}

func TestScoreFallbackOrder(t *testing.T) {
	t.Parallel()

	domain := ai.Classification{Scores: []ai.Score{
		{Label: "Finance", Score: 0.6},
		{Label: ai.LabelOther, Score: 0.2},
	}}

	cases := []struct {
		name       string
		profession string
		field      string
		domain     ai.Classification
		want       float64
	}{
		{name: "profession label", profession: "Finance", field: "Sales", domain: domain, want: 0.6},
		{name: "raw field label", profession: "Astronaut", field: "Finance", domain: domain, want: 0.6},
		{name: "other label", profession: "Astronaut", field: "Cooking", domain: domain, want: 0.2},
		{name: "no other label", profession: "Astronaut", domain: ai.Classification{Scores: []ai.Score{{Label: "Sales", Score: 0.9}}}, want: 0},
		{name: "classification failed", profession: "Finance", domain: ai.Classification{Err: errors.New("boom")}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newMatcher(t, &stubClassifier{prefilter: jobPost(0.9), domain: tc.domain})
			got, err := m.Score(context.Background(),
				&posting.Profile{Profession: tc.profession},
				&posting.Job{Field: tc.field},
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestScoreRejectsMissingInput(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, &stubClassifier{})
	if _, err := m.Score(context.Background(), nil, &posting.Job{}); err == nil {
		t.Fatal("expected error for nil profile")
	}
}

func TestRankSortsAndSkipsFailures(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, &stubClassifier{
		prefilter: jobPost(0.9),
		domain:    ai.Classification{Scores: []ai.Score{{Label: "Sales", Score: 0.4}}},
	})

	a := &posting.Job{URL: "a", Field: "Sales"}
	b := &posting.Job{URL: "b", Field: "Engineering"}
	c := &posting.Job{URL: "c", Field: "Sales"}

	ranked := m.Rank(context.Background(), &posting.Profile{Profession: "Engineering"}, []*posting.Job{a, nil, b, c})

	if len(ranked) != 3 {
		t.Fatalf("expected nil job to be skipped, got %d results", len(ranked))
	}
	if ranked[0].Job != b || ranked[0].Score != DirectMatchScore {
		t.Fatalf("expected direct match first, got %+v", ranked[0])
	}
	if ranked[1].Job != a || ranked[2].Job != c {
		t.Fatal("expected ties to keep input order")
	}
}

func TestSelectTop(t *testing.T) {
	t.Parallel()

	ranked := []posting.Scored{
		{Job: &posting.Job{URL: "1"}, Score: 0.95},
		{Job: &posting.Job{URL: "2"}, Score: 0.8},
		{Job: &posting.Job{URL: "3"}, Score: 0.6},
		{Job: &posting.Job{URL: "4"}, Score: 0.4},
		{Job: &posting.Job{URL: "5"}, Score: 0.3},
	}

	for _, topK := range []int{-1, 0, 1, 2, 5, 10} {
		for _, minScore := range []float64{0, 0.5, 0.9, 1} {
			got := SelectTop(ranked, topK, minScore)
			if len(got) > max(topK, 0) {
				t.Fatalf("topK=%d: got %d items", topK, len(got))
			}
			for i, s := range got {
				if s.Score < minScore {
					t.Fatalf("topK=%d min=%v: item %d below threshold", topK, minScore, i)
				}
				if s.Job != ranked[i].Job {
					t.Fatalf("topK=%d min=%v: order not preserved at %d", topK, minScore, i)
				}
			}
		}
	}

	if got := SelectTop(ranked, 5, 0.5); len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
}
