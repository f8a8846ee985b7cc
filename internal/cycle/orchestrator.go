// Package cycle runs the scrape, persist, match and alert pass on a schedule.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/dedup"
	"github.com/spigell/job-alerter/internal/filtering"
	"github.com/spigell/job-alerter/internal/matching"
	"github.com/spigell/job-alerter/internal/metrics"
	"github.com/spigell/job-alerter/internal/posting"
)

const (
	DefaultFetchLimit      = 20
	DefaultRecentJobsLimit = 200
	DefaultItemTimeout     = 2 * time.Minute
	DefaultInterval        = 30 * time.Minute
)

// Source yields raw messages of one channel.
type Source interface {
	FetchRecent(ctx context.Context, source string, limit int) ([]posting.Message, error)
}

// Store is the persistence used by a cycle.
type Store interface {
	UpsertJob(ctx context.Context, job *posting.Job) (bool, error)
	FetchUsers(ctx context.Context) ([]*posting.Profile, error)
	FetchRecentJobs(ctx context.Context, limit int) ([]*posting.Job, error)
}

// Notifier delivers selected jobs to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, jobs []*posting.Job) error
}

type Config struct {
	Sources         []string
	FetchLimit      int
	RecentJobsLimit int
	ItemTimeout     time.Duration
	TopK            int
	MinScore        float64
}

type Deps struct {
	Source   Source
	Store    Store
	Notifier Notifier
	Enricher posting.Enricher
	Tracker  *dedup.Tracker
	Matcher  *matching.Matcher
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Summary counts what a cycle did.
type Summary struct {
	Messages int
	Stored   int
	Users    int
	Alerted  int
	Failed   int
}

type Orchestrator struct {
	cfg      Config
	source   Source
	store    Store
	notifier Notifier
	enricher posting.Enricher
	tracker  *dedup.Tracker
	deps     filtering.Deps
	steps    []filtering.Filter
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("message source is required")
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Notifier == nil:
		return nil, errors.New("notifier is required")
	case deps.Tracker == nil:
		return nil, errors.New("dedup tracker is required")
	case deps.Matcher == nil:
		return nil, errors.New("matcher is required")
	}

	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.RecentJobsLimit <= 0 {
		cfg.RecentJobsLimit = DefaultRecentJobsLimit
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = DefaultItemTimeout
	}
	if cfg.TopK == 0 {
		cfg.TopK = matching.DefaultTopK
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		cfg:      cfg,
		source:   deps.Source,
		store:    deps.Store,
		notifier: deps.Notifier,
		enricher: deps.Enricher,
		tracker:  deps.Tracker,
		deps: filtering.Deps{
			Logger:  logger,
			Tracker: deps.Tracker,
			Matcher: deps.Matcher,
		},
		steps:   filtering.Default(cfg.TopK, cfg.MinScore),
		metrics: deps.Metrics,
		logger:  logger,
	}, nil
}

// Steps exposes the per-user filters for status reporting.
func (o *Orchestrator) Steps() []filtering.Filter { return o.steps }

// RunCycle performs one full pass. Failures of single sources, messages or
// users are logged and skipped. Cancelling ctx stops the cycle after the
// item in flight is finished.
func (o *Orchestrator) RunCycle(ctx context.Context) (Summary, error) {
	logger := o.logger.With(zap.String("cycle_id", uuid.NewString()))
	start := time.Now()
	var summary Summary

	logger.Info("cycle started", zap.Strings("sources", o.cfg.Sources))

	err := o.run(ctx, logger, &summary)

	took := time.Since(start)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultFailed
		logger.Warn("cycle interrupted", zap.Error(err), zap.Duration("took", took))
	} else {
		logger.Info("cycle finished",
			zap.Int("messages", summary.Messages),
			zap.Int("stored", summary.Stored),
			zap.Int("users", summary.Users),
			zap.Int("alerted", summary.Alerted),
			zap.Int("failed", summary.Failed),
			zap.Duration("took", took),
		)
	}
	o.metrics.Cycle(result, took)

	return summary, err
}

func (o *Orchestrator) run(ctx context.Context, logger *zap.Logger, summary *Summary) error {
	for _, source := range o.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.ingest(ctx, logger.With(zap.String("source", source)), source, summary)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	users, err := o.fetchUsers(ctx)
	if err != nil {
		return err
	}
	summary.Users = len(users)
	if len(users) == 0 {
		logger.Info("no users to match")
		return nil
	}

	recent, err := o.fetchRecentJobs(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		userLogger := logger.With(zap.Int64("user_id", user.UserID))
		sent, err := o.alertUser(ctx, userLogger, user, recent)
		if err != nil {
			summary.Failed++
			userLogger.Warn("alerting user failed", zap.Error(err))
			continue
		}
		if sent > 0 {
			summary.Alerted++
		}
	}

	return nil
}

func (o *Orchestrator) ingest(ctx context.Context, logger *zap.Logger, source string, summary *Summary) {
	fetchCtx, cancel := o.itemContext(ctx)
	messages, err := o.source.FetchRecent(fetchCtx, source, o.cfg.FetchLimit)
	cancel()
	if err != nil {
		summary.Failed++
		logger.Warn("fetching source failed", zap.Error(err))
		return
	}

	logger.Debug("fetched messages", zap.Int("count", len(messages)))
	summary.Messages += len(messages)

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		if msg.Text == "" {
			continue
		}
		if msg.Source == "" {
			msg.Source = source
		}

		inserted, err := o.persist(ctx, msg)
		if err != nil {
			summary.Failed++
			logger.Warn("storing job failed", zap.Int64("message_id", msg.ID), zap.Error(err))
			continue
		}
		if inserted {
			summary.Stored++
			o.metrics.JobStored()
		}
	}
}

// persist parses a single message and stores the resulting job.
func (o *Orchestrator) persist(ctx context.Context, msg posting.Message) (bool, error) {
	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()

	job := posting.Parse(itemCtx, msg.Text, msg.Source, msg.ID, o.enricher)
	return o.store.UpsertJob(itemCtx, job)
}

func (o *Orchestrator) fetchUsers(ctx context.Context) ([]*posting.Profile, error) {
	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()

	users, err := o.store.FetchUsers(itemCtx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return users, nil
}

func (o *Orchestrator) fetchRecentJobs(ctx context.Context) ([]*posting.Job, error) {
	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()

	jobs, err := o.store.FetchRecentJobs(itemCtx, o.cfg.RecentJobsLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent jobs: %w", err)
	}
	return jobs, nil
}

// alertUser selects matches for one user, delivers them and records them as
// sent. It returns the number of delivered jobs.
func (o *Orchestrator) alertUser(ctx context.Context, logger *zap.Logger, user *posting.Profile, recent []*posting.Job) (int, error) {
	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()

	deps := o.deps
	deps.Logger = logger

	matches, err := filtering.Run(itemCtx, deps, o.steps, user, recent)
	if err != nil {
		return 0, fmt.Errorf("select matches: %w", err)
	}
	if len(matches) == 0 {
		logger.Debug("no new matches")
		return 0, nil
	}

	jobs := posting.Jobs(matches)
	if err := o.notifier.Notify(itemCtx, user.UserID, jobs); err != nil {
		return 0, fmt.Errorf("deliver alert: %w", err)
	}

	if err := o.tracker.RecordSent(itemCtx, user.UserID, jobs); err != nil {
		return 0, err
	}

	logger.Info("alert sent", zap.Int("jobs", len(jobs)), zap.Float64("top_score", matches[0].Score))
	return len(jobs), nil
}

// itemContext detaches from the shutdown signal so the item in flight can
// complete, while still bounding it by the item timeout.
func (o *Orchestrator) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ItemTimeout)
}
