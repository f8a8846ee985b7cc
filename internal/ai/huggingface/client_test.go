package huggingface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/cache"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "hf_test", APIURL: srv.URL}, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{APIKey: "  "}, nil, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestClassifySendsPayloadAndCaches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.URL.Path != "/facebook/bart-large-mnli" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("unexpected auth header: %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				CandidateLabels    []string `json:"candidate_labels"`
				HypothesisTemplate string   `json:"hypothesis_template"`
				MultiLabel         bool     `json:"multi_label"`
			} `json:"parameters"`
			Options struct {
				WaitForModel bool `json:"wait_for_model"`
			} `json:"options"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload.Parameters.HypothesisTemplate != "This text is about {}." {
			t.Errorf("unexpected template: %q", payload.Parameters.HypothesisTemplate)
		}
		if !payload.Parameters.MultiLabel || !payload.Options.WaitForModel {
			t.Errorf("unexpected flags: %+v", payload)
		}

		_, _ = w.Write([]byte(`{"sequence":"x","labels":["Engineering","Other"],"scores":[0.8,0.1]}`))
	})

	z := NewZeroShot(c, "", cache.NewMemory[[]ai.Score](8))

	first := z.Classify(context.Background(), "Go developer wanted", []string{"Other", "Engineering"}, true)
	if first.Failed() || first.Cached {
		t.Fatalf("unexpected first result: %+v", first)
	}
	top, _ := first.Top()
	if top.Label != "Engineering" || top.Score != 0.8 {
		t.Fatalf("unexpected top label: %+v", top)
	}

	second := z.Classify(context.Background(), "Go developer wanted", []string{"Other", "Engineering"}, true)
	if !second.Cached || len(second.Scores) != 2 {
		t.Fatalf("expected cached result, got %+v", second)
	}

	// a different multi-label flag is a different key
	z.Classify(context.Background(), "Go developer wanted", []string{"Other", "Engineering"}, false)

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 api calls, got %d", got)
	}
}

func TestClassifyEmptyInputMakesNoCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})
	z := NewZeroShot(c, "", nil)

	if res := z.Classify(context.Background(), "", []string{"a"}, false); !res.Empty() || res.Failed() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res := z.Classify(context.Background(), "text", nil, false); !res.Empty() || res.Failed() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no calls")
	}
}

func TestClassifyRateLimitedIsSoftFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	z := NewZeroShot(c, "", cache.NewMemory[[]ai.Score](8))

	res := z.Classify(context.Background(), "text", []string{"a", "b"}, false)
	if !res.Failed() || !res.Empty() {
		t.Fatalf("expected failed empty result, got %+v", res)
	}

	z.Classify(context.Background(), "text", []string{"a", "b"}, false)
	if calls.Load() != 2 {
		t.Fatalf("failures must not be cached, got %d calls", calls.Load())
	}
}

func TestDecodeZeroShotFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		top   string
	}{
		{name: "object", input: `{"labels":["a","b"],"scores":[0.9,0.1]}`, top: "a"},
		{name: "wrapped object", input: `[{"labels":["b","a"],"scores":[0.7,0.3]}]`, top: "b"},
		{name: "pairs", input: `[{"label":"a","score":0.2},{"label":"b","score":0.6}]`, top: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scores, err := decodeZeroShot([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(scores) != 2 || scores[0].Label != tt.top {
				t.Fatalf("unexpected scores: %+v", scores)
			}
		})
	}

	if _, err := decodeZeroShot([]byte(`"oops"`)); err == nil {
		t.Fatal("expected error for unexpected format")
	}
}

func TestExtractPicksFirstEntities(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/dslim/bert-base-NER" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"entity_group":"PER","word":"John"},
			{"entity_group":"ORG","word":""},
			{"entity_group":"ORG","word":" Acme "},
			{"entity_group":"LOC","word":"Berlin"},
			{"entity_group":"ORG","word":"Globex"}
		]`))
	})

	n := NewNER(c, "", cache.NewMemory[ai.Entities](8))

	got := n.Extract(context.Background(), "John from Acme in Berlin")
	if got.Company != "Acme" || got.Location != "Berlin" {
		t.Fatalf("unexpected entities: %+v", got)
	}

	cached := n.Extract(context.Background(), "John from Acme in Berlin")
	if !cached.Cached || cached.Company != "Acme" {
		t.Fatalf("expected cached entities, got %+v", cached)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestExtractNestedAndEmpty(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[[{"entity":"GPE","word":"Paris"}]]`))
	})
	n := NewNER(c, "", cache.NewMemory[ai.Entities](8))

	got := n.Extract(context.Background(), "Paris")
	if got.Location != "Paris" || got.Company != "" {
		t.Fatalf("unexpected entities: %+v", got)
	}

	if res := n.Extract(context.Background(), ""); !res.Empty() || res.Failed() {
		t.Fatalf("expected empty result for empty text, got %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestExtractServerErrorIsSoftFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	n := NewNER(c, "", nil)

	got := n.Extract(context.Background(), "Acme")
	if !got.Failed() || !got.Empty() {
		t.Fatalf("expected failed empty result, got %+v", got)
	}
}
