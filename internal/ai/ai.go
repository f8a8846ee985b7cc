package ai

import (
	"context"
	"sort"
)

// HypothesisTemplate is the natural-language template used for zero-shot labelling.
const HypothesisTemplate = "This text is about {}."

// Score is one ranked label returned by a classifier.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classification is the outcome of a single classify call. A failed call is
// never an error for the caller: Scores is empty and Err tells why.
type Classification struct {
	Scores []Score
	Cached bool
	Err    error
}

// Failed reports whether the external call did not succeed.
func (c Classification) Failed() bool { return c.Err != nil }

// Empty reports whether there are no scores, either because of a failure or
// because nothing had to be classified.
func (c Classification) Empty() bool { return len(c.Scores) == 0 }

// Top returns the highest ranked label.
func (c Classification) Top() (Score, bool) {
	if len(c.Scores) == 0 {
		return Score{}, false
	}
	return c.Scores[0], true
}

// Lookup returns the score for the given label.
func (c Classification) Lookup(label string) (float64, bool) {
	for _, s := range c.Scores {
		if s.Label == label {
			return s.Score, true
		}
	}
	return 0, false
}

// Entities is the outcome of an entity extraction call.
type Entities struct {
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	Cached   bool   `json:"-"`
	Err      error  `json:"-"`
}

func (e Entities) Failed() bool { return e.Err != nil }

func (e Entities) Empty() bool { return e.Company == "" && e.Location == "" }

// Classifier labels text against arbitrary candidate labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string, multiLabel bool) Classification
	Model() string
}

// Extractor finds company and location mentions in text.
type Extractor interface {
	Extract(ctx context.Context, text string) Entities
	Model() string
}

// Rank sorts scores by descending value keeping the provider order for ties.
func Rank(scores []Score) []Score {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}
