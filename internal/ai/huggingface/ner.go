package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/cache"
	"github.com/spigell/job-alerter/internal/logger"
	"github.com/spigell/job-alerter/internal/metrics"
)

// NER extracts company and location mentions with a token classification model.
type NER struct {
	client *Client
	model  string
	cache  cache.Cache[ai.Entities]
	logger *zap.Logger
}

type nerParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type entity struct {
	EntityGroup string `json:"entity_group"`
	Entity      string `json:"entity"`
	Word        string `json:"word"`
}

func NewNER(client *Client, model string, c cache.Cache[ai.Entities]) *NER {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultNERModel
	}
	if c == nil {
		c = cache.Nop[ai.Entities]{}
	}

	return &NER{
		client: client,
		model:  model,
		cache:  c,
		logger: logger.WithCommonFields(client.logger, Provider, model, logger.TaskExtract),
	}
}

func (n *NER) Model() string { return n.model }

func (n *NER) Extract(ctx context.Context, text string) ai.Entities {
	if text == "" {
		return ai.Entities{}
	}

	key := cache.Key(text, n.model)
	if found, ok := n.cache.Get(ctx, key); ok {
		n.client.metrics.AIRequest(logger.TaskExtract, metrics.ResultCached)
		found.Cached = true
		return found
	}

	data, err := n.client.infer(ctx, n.model, text, nerParameters{AggregationStrategy: "simple"})
	if err != nil {
		n.client.metrics.AIRequest(logger.TaskExtract, metrics.ResultFailed)
		n.logger.Debug("entity extraction failed", zap.Error(err))
		return ai.Entities{Err: err}
	}

	entities, err := decodeEntities(data)
	if err != nil {
		n.client.metrics.AIRequest(logger.TaskExtract, metrics.ResultFailed)
		n.logger.Debug("entity extraction response is not parseable", zap.Error(err))
		return ai.Entities{Err: err}
	}

	found := pickEntities(entities)
	if found.Empty() {
		n.client.metrics.AIRequest(logger.TaskExtract, metrics.ResultEmpty)
		return found
	}

	n.client.metrics.AIRequest(logger.TaskExtract, metrics.ResultOK)
	n.cache.Set(ctx, key, found)
	return found
}

func decodeEntities(data []byte) ([]entity, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	if len(items) == 1 && bytes.HasPrefix(bytes.TrimSpace(items[0]), []byte("[")) {
		var nested []entity
		if err := json.Unmarshal(items[0], &nested); err != nil {
			return nil, err
		}
		return nested, nil
	}

	entities := make([]entity, 0, len(items))
	for _, item := range items {
		var e entity
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// pickEntities takes the first organisation-like and the first location-like
// entity and stops once both are known.
func pickEntities(entities []entity) ai.Entities {
	var out ai.Entities
	for _, e := range entities {
		label := e.EntityGroup
		if label == "" {
			label = e.Entity
		}
		value := e.Word
		if value == "" {
			value = e.Entity
		}
		if label == "" || value == "" {
			continue
		}

		switch label {
		case "ORG", "MISC":
			if out.Company == "" {
				out.Company = strings.TrimSpace(value)
			}
		case "LOC", "GPE":
			if out.Location == "" {
				out.Location = strings.TrimSpace(value)
			}
		}

		if out.Company != "" && out.Location != "" {
			break
		}
	}
	return out
}
