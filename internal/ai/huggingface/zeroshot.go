package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/cache"
	"github.com/spigell/job-alerter/internal/logger"
	"github.com/spigell/job-alerter/internal/metrics"
)

// ZeroShot classifies text with a zero-shot NLI model.
type ZeroShot struct {
	client *Client
	model  string
	cache  cache.Cache[[]ai.Score]
	logger *zap.Logger
}

type zeroShotParameters struct {
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template"`
	MultiLabel         bool     `json:"multi_label"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

func NewZeroShot(client *Client, model string, c cache.Cache[[]ai.Score]) *ZeroShot {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultZeroShotModel
	}
	if c == nil {
		c = cache.Nop[[]ai.Score]{}
	}

	return &ZeroShot{
		client: client,
		model:  model,
		cache:  c,
		logger: logger.WithCommonFields(client.logger, Provider, model, logger.TaskClassify),
	}
}

func (z *ZeroShot) Model() string { return z.model }

// Classify ranks labels for text. Empty input makes no request.
func (z *ZeroShot) Classify(ctx context.Context, text string, labels []string, multiLabel bool) ai.Classification {
	if text == "" || len(labels) == 0 {
		return ai.Classification{}
	}

	key := cache.Key(text, strings.Join(labels, "\x1e"), z.model, strconv.FormatBool(multiLabel))
	if scores, ok := z.cache.Get(ctx, key); ok {
		z.client.metrics.AIRequest(logger.TaskClassify, metrics.ResultCached)
		return ai.Classification{Scores: scores, Cached: true}
	}

	data, err := z.client.infer(ctx, z.model, text, zeroShotParameters{
		CandidateLabels:    labels,
		HypothesisTemplate: ai.HypothesisTemplate,
		MultiLabel:         multiLabel,
	})
	if err == nil {
		var scores []ai.Score
		scores, err = decodeZeroShot(data)
		if err == nil {
			if len(scores) == 0 {
				z.client.metrics.AIRequest(logger.TaskClassify, metrics.ResultEmpty)
				return ai.Classification{}
			}
			z.client.metrics.AIRequest(logger.TaskClassify, metrics.ResultOK)
			z.cache.Set(ctx, key, scores)
			return ai.Classification{Scores: scores}
		}
	}

	z.client.metrics.AIRequest(logger.TaskClassify, metrics.ResultFailed)
	z.logger.Debug("zero-shot classification failed", zap.Strings("labels", labels), zap.Error(err))
	return ai.Classification{Err: err}
}

// decodeZeroShot accepts the pipeline object, a single element list of it,
// or a list of label/score pairs.
func decodeZeroShot(data []byte) ([]ai.Score, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty response")
	}

	var resp zeroShotResponse
	switch data[0] {
	case '{':
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(items[0], &resp); err != nil || len(resp.Labels) == 0 {
			var pairs []ai.Score
			if err := json.Unmarshal(data, &pairs); err != nil {
				return nil, err
			}
			return ai.Rank(pairs), nil
		}
	default:
		return nil, errors.New("unexpected response format")
	}

	n := min(len(resp.Labels), len(resp.Scores))
	scores := make([]ai.Score, 0, n)
	for i := 0; i < n; i++ {
		scores = append(scores, ai.Score{Label: resp.Labels[i], Score: resp.Scores[i]})
	}

	return ai.Rank(scores), nil
}
