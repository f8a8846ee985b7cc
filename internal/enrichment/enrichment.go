// Package enrichment fills job attributes that a channel message does not label.
package enrichment

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/posting"
)

const (
	DefaultFieldThreshold      = 0.5
	DefaultExperienceThreshold = 0.4
	minTextLength              = 15
)

type Config struct {
	FieldThreshold      float64
	ExperienceThreshold float64
}

// Enricher combines classification, entity extraction and a keyword
// heuristic. Any of the AI collaborators may be nil.
type Enricher struct {
	classifier ai.Classifier
	extractor  ai.Extractor
	experience *experienceMatcher
	cfg        Config
	logger     *zap.Logger
}

func New(classifier ai.Classifier, extractor ai.Extractor, cfg Config, logger *zap.Logger) *Enricher {
	if cfg.FieldThreshold <= 0 {
		cfg.FieldThreshold = DefaultFieldThreshold
	}
	if cfg.ExperienceThreshold <= 0 {
		cfg.ExperienceThreshold = DefaultExperienceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Enricher{
		classifier: classifier,
		extractor:  extractor,
		experience: newExperienceMatcher(),
		cfg:        cfg,
		logger:     logger,
	}
}

// Enrich returns only the attributes it could infer with enough confidence.
// AI failures leave the corresponding attributes empty.
func (e *Enricher) Enrich(ctx context.Context, text string) (posting.Fields, error) {
	var out posting.Fields
	if len(strings.TrimSpace(text)) < minTextLength {
		return out, nil
	}

	if e.classifier != nil {
		out.Field = e.field(ctx, text)
		out.Experience = e.classifiedExperience(ctx, text)
	}

	if e.extractor != nil {
		found := e.extractor.Extract(ctx, text)
		if found.Failed() {
			e.logger.Debug("entity extraction skipped", zap.Error(found.Err))
		}
		out.Company = found.Company
		out.Location = found.Location
	}

	if out.Experience == "" {
		out.Experience = e.experience.Normalize(text)
	}

	return out, ctx.Err()
}

func (e *Enricher) field(ctx context.Context, text string) string {
	res := e.classifier.Classify(ctx, text, ai.FieldLabels, true)
	if res.Failed() {
		e.logger.Debug("field classification skipped", zap.Error(res.Err))
	}

	top, ok := res.Top()
	if !ok || top.Label == ai.LabelOther || top.Score < e.cfg.FieldThreshold {
		return ""
	}
	return top.Label
}

func (e *Enricher) classifiedExperience(ctx context.Context, text string) string {
	res := e.classifier.Classify(ctx, text, ai.ExperienceLabels, false)
	if res.Failed() {
		e.logger.Debug("experience classification skipped", zap.Error(res.Err))
	}

	top, ok := res.Top()
	if !ok || top.Score < e.cfg.ExperienceThreshold {
		return ""
	}
	return top.Label
}
