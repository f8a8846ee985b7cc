package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrLocked is returned when another process holds the cycle lock.
var ErrLocked = errors.New("another cycle is running")

// Runner runs a single cycle.
type Runner interface {
	RunCycle(ctx context.Context) (Summary, error)
}

// Scheduler triggers cycles at a fixed interval. Cycles never overlap: the
// cron chain skips a tick while one is running and the lock file keeps other
// processes out.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	lock     *flock.Flock
	logger   *zap.Logger
}

func NewScheduler(runner Runner, interval time.Duration, lockFile string, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{runner: runner, interval: interval, logger: logger}
	if lockFile != "" {
		s.lock = flock.New(lockFile)
	}
	return s
}

// RunOnce runs one cycle under the lock file.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.lock != nil {
		locked, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", s.lock.Path(), err)
		}
		if !locked {
			return ErrLocked
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("release lock failed", zap.Error(err))
			}
		}()
	}

	_, err := s.runner.RunCycle(ctx)
	return err
}

// Run starts with an immediate cycle and then repeats it every interval
// until ctx is cancelled. A cycle in flight is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)
	if ctx.Err() != nil {
		return nil
	}

	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() { s.tick(ctx) }))
	c.Start()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	<-ctx.Done()

	s.logger.Info("stopping scheduler, waiting for running cycle")
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")

	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrLocked):
		s.logger.Warn("skipping cycle", zap.Error(err))
	case errors.Is(err, context.Canceled):
		s.logger.Info("cycle cancelled")
	default:
		s.logger.Error("cycle failed", zap.Error(err))
	}
}

// cronLogger adapts zap to the cron logger interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, zap.Error(err))...)
}
