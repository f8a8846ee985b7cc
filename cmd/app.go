package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/cycle"
	"github.com/spigell/job-alerter/internal/dedup"
	"github.com/spigell/job-alerter/internal/enrichment"
	"github.com/spigell/job-alerter/internal/matching"
	"github.com/spigell/job-alerter/internal/metrics"
	"github.com/spigell/job-alerter/internal/secrets"
	"github.com/spigell/job-alerter/internal/store"
	"github.com/spigell/job-alerter/internal/telegram"
)

// components holds everything built from the config. close releases them
// in reverse order.
type components struct {
	store        *store.Store
	metrics      *metrics.Metrics
	telegram     *telegram.Client
	tracker      *dedup.Tracker
	matcher      *matching.Matcher
	orchestrator *cycle.Orchestrator
	closers      []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func openStore(ctx context.Context, cfg store.Config, logger *zap.Logger) (*store.Store, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug("database is ready", zap.String("driver", cfg.Driver))
	return s, nil
}

// build wires the whole pipeline. withDelivery requires the bot token.
func build(ctx context.Context, config *Config, withDelivery bool, logger *zap.Logger) (*components, error) {
	c := &components{metrics: metrics.New()}

	s, err := openStore(ctx, config.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening the database: %w", err)
	}
	c.store = s
	c.closers = append(c.closers, func() { _ = s.Close() })

	caches, err := newCaches(ctx, config.Cache, logger)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building the cache: %w", err)
	}
	c.closers = append(c.closers, caches.close)

	classifier, extractor, err := newAI(ctx, config.AI, caches, c.metrics, logger)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building the ai provider: %w", err)
	}

	c.matcher, err = matching.New(classifier, matching.Config{JobPostThreshold: config.AI.JobPostThreshold}, logger)
	if err != nil {
		c.close()
		return nil, err
	}
	c.tracker = dedup.New(s)

	token := ""
	if withDelivery {
		token, err = secrets.Load(secrets.Source{
			Name:  "telegram bot token",
			Value: config.Telegram.BotToken,
			File:  config.Telegram.BotTokenFile,
		})
		if err != nil {
			c.close()
			return nil, fmt.Errorf("%w (set telegram.bot-token-file or TELEGRAM_BOT_TOKEN)", err)
		}
	}

	c.telegram = telegram.New(telegram.Config{
		BotToken:          token,
		APIURL:            config.Telegram.APIURL,
		WebURL:            config.Telegram.WebURL,
		Timeout:           config.Telegram.Timeout,
		RequestsPerSecond: config.Telegram.RequestsPerSecond,
	}, logger, c.metrics)

	enricher := enrichment.New(classifier, extractor, enrichment.Config{
		FieldThreshold:      config.AI.FieldThreshold,
		ExperienceThreshold: config.AI.ExperienceThreshold,
	}, logger)

	c.orchestrator, err = cycle.New(cycle.Config{
		Sources:         config.Sources,
		FetchLimit:      config.FetchLimit,
		RecentJobsLimit: config.RecentJobsLimit,
		ItemTimeout:     config.ItemTimeout,
		TopK:            config.AI.TopK,
		MinScore:        config.AI.MinScore,
	}, cycle.Deps{
		Source:   c.telegram,
		Store:    s,
		Notifier: c.telegram,
		Enricher: enricher,
		Tracker:  c.tracker,
		Matcher:  c.matcher,
		Metrics:  c.metrics,
		Logger:   logger,
	})
	if err != nil {
		c.close()
		return nil, err
	}

	return c, nil
}
