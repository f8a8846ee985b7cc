package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/cache"
)

type stubGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestClassifierClassify(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"labels\": [\"Other\", \"Engineering\", \"Unknown\"], \"scores\": [\"0.1\", 1.4, 0.5]}\n```"}
	c := NewClassifier(stub, cache.NewMemory[[]ai.Score](4), nil, 0, zap.NewNop())

	res := c.Classify(context.Background(), "Go developer", []string{"Engineering", "Other"}, true)
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if len(res.Scores) != 2 {
		t.Fatalf("expected unknown labels to be dropped, got %+v", res.Scores)
	}
	if res.Scores[0].Label != "Engineering" || res.Scores[0].Score != 1 {
		t.Fatalf("expected clamped top score, got %+v", res.Scores[0])
	}

	for _, want := range []string{"- Engineering", "- Other", "Multi-label mode is true", "This text is about {}.", "Go developer"} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q:\n%s", want, stub.lastPrompt)
		}
	}

	again := c.Classify(context.Background(), "Go developer", []string{"Engineering", "Other"}, true)
	if !again.Cached || stub.calls != 1 {
		t.Fatalf("expected cached result without a new call, got %+v after %d calls", again, stub.calls)
	}
}

func TestClassifierSoftFailures(t *testing.T) {
	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{name: "generator error", stub: &stubGenerator{err: errors.New("quota")}},
		{name: "invalid json", stub: &stubGenerator{response: "not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.stub, nil, nil, 0, nil)
			res := c.Classify(context.Background(), "text", []string{"a"}, false)
			if !res.Failed() || !res.Empty() {
				t.Fatalf("expected failed empty result, got %+v", res)
			}
		})
	}
}

func TestClassifierEmptyInput(t *testing.T) {
	stub := &stubGenerator{}
	c := NewClassifier(stub, nil, nil, 0, nil)

	if res := c.Classify(context.Background(), "", []string{"a"}, false); !res.Empty() {
		t.Fatalf("expected empty result")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no calls, got %d", stub.calls)
	}
}

func TestExtractorExtract(t *testing.T) {
	stub := &stubGenerator{response: `{"company": " Acme ", "location": "Remote"}`}
	e := NewExtractor(stub, cache.NewMemory[ai.Entities](4), nil, zap.NewNop())

	got := e.Extract(context.Background(), "Acme hires remote engineers")
	if got.Company != "Acme" || got.Location != "Remote" {
		t.Fatalf("unexpected entities: %+v", got)
	}

	if again := e.Extract(context.Background(), "Acme hires remote engineers"); !again.Cached {
		t.Fatalf("expected cached entities")
	}

	empty := &stubGenerator{response: `{"company": "", "location": null}`}
	e = NewExtractor(empty, cache.NewMemory[ai.Entities](4), nil, nil)
	if got := e.Extract(context.Background(), "nothing here"); !got.Empty() || got.Failed() {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
