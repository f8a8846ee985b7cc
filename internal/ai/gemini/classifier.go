package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/cache"
	"github.com/spigell/job-alerter/internal/logger"
	"github.com/spigell/job-alerter/internal/metrics"
	"github.com/spigell/job-alerter/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed classify.md
var classifyTemplate string

//go:embed extract.md
var extractTemplate string

const defaultMaxLogLength = 200

// Classifier performs zero-shot labelling by prompting Gemini.
type Classifier struct {
	generator contentGenerator
	cache     cache.Cache[[]ai.Score]
	metrics   *metrics.Metrics
	logger    *zap.Logger
	maxLogLen int
}

func NewClassifier(generator contentGenerator, c cache.Cache[[]ai.Score], m *metrics.Metrics, maxLogLength int, l *zap.Logger) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if c == nil {
		c = cache.Nop[[]ai.Score]{}
	}

	return &Classifier{
		generator: generator,
		cache:     c,
		metrics:   m,
		logger:    logger.WithCommonFields(l, Provider, generator.Model(), logger.TaskClassify),
		maxLogLen: maxLogLength,
	}
}

func (c *Classifier) Model() string { return c.generator.Model() }

func (c *Classifier) Classify(ctx context.Context, text string, labels []string, multiLabel bool) ai.Classification {
	if text == "" || len(labels) == 0 {
		return ai.Classification{}
	}

	key := cache.Key(text, strings.Join(labels, "\x1e"), c.Model(), strconv.FormatBool(multiLabel))
	if scores, ok := c.cache.Get(ctx, key); ok {
		c.metrics.AIRequest(logger.TaskClassify, metrics.ResultCached)
		return ai.Classification{Scores: scores, Cached: true}
	}

	prompt := buildClassifyPrompt(text, labels, multiLabel)
	c.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		c.metrics.AIRequest(logger.TaskClassify, metrics.ResultFailed)
		c.logger.Debug("gemini classification failed", zap.Error(err))
		return ai.Classification{Err: err}
	}

	c.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	scores, err := parseScores(raw, labels)
	if err != nil {
		c.metrics.AIRequest(logger.TaskClassify, metrics.ResultFailed)
		c.logger.Debug("gemini classification response is not parseable", zap.Error(err))
		return ai.Classification{Err: err}
	}
	if len(scores) == 0 {
		c.metrics.AIRequest(logger.TaskClassify, metrics.ResultEmpty)
		return ai.Classification{}
	}

	c.metrics.AIRequest(logger.TaskClassify, metrics.ResultOK)
	c.cache.Set(ctx, key, scores)
	return ai.Classification{Scores: scores}
}

// Extractor finds company and location by prompting Gemini.
type Extractor struct {
	generator contentGenerator
	cache     cache.Cache[ai.Entities]
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewExtractor(generator contentGenerator, c cache.Cache[ai.Entities], m *metrics.Metrics, l *zap.Logger) *Extractor {
	if c == nil {
		c = cache.Nop[ai.Entities]{}
	}

	return &Extractor{
		generator: generator,
		cache:     c,
		metrics:   m,
		logger:    logger.WithCommonFields(l, Provider, generator.Model(), logger.TaskExtract),
	}
}

func (e *Extractor) Model() string { return e.generator.Model() }

func (e *Extractor) Extract(ctx context.Context, text string) ai.Entities {
	if text == "" {
		return ai.Entities{}
	}

	key := cache.Key(text, e.Model())
	if found, ok := e.cache.Get(ctx, key); ok {
		e.metrics.AIRequest(logger.TaskExtract, metrics.ResultCached)
		found.Cached = true
		return found
	}

	raw, err := e.generator.GenerateContent(ctx, strings.ReplaceAll(extractTemplate, "{{TEXT}}", text))
	if err != nil {
		e.metrics.AIRequest(logger.TaskExtract, metrics.ResultFailed)
		e.logger.Debug("gemini extraction failed", zap.Error(err))
		return ai.Entities{Err: err}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		e.metrics.AIRequest(logger.TaskExtract, metrics.ResultFailed)
		return ai.Entities{Err: fmt.Errorf("parse gemini response: %w", err)}
	}

	found := ai.Entities{
		Company:  coerceString(data["company"]),
		Location: coerceString(data["location"]),
	}
	if found.Empty() {
		e.metrics.AIRequest(logger.TaskExtract, metrics.ResultEmpty)
		return found
	}

	e.metrics.AIRequest(logger.TaskExtract, metrics.ResultOK)
	e.cache.Set(ctx, key, found)
	return found
}

func buildClassifyPrompt(text string, labels []string, multiLabel bool) string {
	quoted := make([]string, 0, len(labels))
	for _, l := range labels {
		quoted = append(quoted, "- "+l)
	}

	prompt := strings.ReplaceAll(classifyTemplate, "{{HYPOTHESIS}}", ai.HypothesisTemplate)
	prompt = strings.ReplaceAll(prompt, "{{MULTI_LABEL}}", strconv.FormatBool(multiLabel))
	prompt = strings.ReplaceAll(prompt, "{{LABELS}}", strings.Join(quoted, "\n"))
	return strings.ReplaceAll(prompt, "{{TEXT}}", text)
}

// parseScores keeps only candidate labels and clamps scores into [0,1].
func parseScores(raw string, labels []string) ([]ai.Score, error) {
	var data struct {
		Labels []any `json:"labels"`
		Scores []any `json:"scores"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	allowed := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		allowed[l] = struct{}{}
	}

	seen := make(map[string]struct{})
	scores := make([]ai.Score, 0, len(labels))
	for i := 0; i < len(data.Labels) && i < len(data.Scores); i++ {
		label := coerceString(data.Labels[i])
		if _, ok := allowed[label]; !ok {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		score := coerceFloat(data.Scores[i])
		if math.IsNaN(score) {
			continue
		}
		seen[label] = struct{}{}
		scores = append(scores, ai.Score{Label: label, Score: math.Max(0, math.Min(1, score))})
	}

	return ai.Rank(scores), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
