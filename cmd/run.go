package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-alerter/internal/cycle"
	"github.com/spigell/job-alerter/internal/filtering"
	"github.com/spigell/job-alerter/internal/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect job posts and send alerts on a schedule",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the job-alerter", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if len(config.Sources) == 0 {
		logger.Warn("no sources configured, only matching of stored jobs will run",
			zap.String("hint", "set the 'sources' key or TELEGRAM_CHANNELS environment variable"),
		)
	}

	c, err := build(ctx, config, true, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}
	defer c.close()

	for _, s := range filtering.Describe(c.orchestrator.Steps()) {
		logger.Debug("filter", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled), zap.Any("details", s.Details))
	}

	scheduler := cycle.NewScheduler(c.orchestrator, config.Interval, config.LockFile, logger)

	if once, _ := cmd.Flags().GetBool("once"); once {
		if err := scheduler.RunOnce(ctx); err != nil {
			logger.Fatal("running a cycle", zap.Error(err))
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)

	if config.Metrics.Addr != "" {
		serveMetrics(gctx, g, config.Metrics.Addr, c.metrics, logger)
	}

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, m *metrics.Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
