package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/towerbuild/internal/config"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/towerbuild/internal/logfields"
	"git.home.luguber.info/inful/towerbuild/internal/metrics"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Interval string `help:"Time between builds, e.g. 30s (overrides schedule.interval)"`
	Listen   string `help:"Metrics listen address, e.g. :9464 (overrides metrics.listen_addr)"`
	Quiet    bool   `help:"Do not print build progress to the console"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Interval != "" {
		cfg.Schedule.Interval = s.Interval
	}
	if s.Listen != "" {
		cfg.Metrics.ListenAddr = s.Listen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg, root.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console io.Writer
	if !s.Quiet {
		console = g.stdout()
	}
	return serve(ctx, cfg, logger, console)
}

// serve builds the tower every schedule.interval until ctx is done, and
// exposes metrics when a listen address is configured.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, console io.Writer) error {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	sched, err := gocron.NewScheduler()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create scheduler").Build()
	}

	var builds, failures atomic.Int64
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.Schedule.IntervalDuration()),
		gocron.NewTask(func() {
			n := builds.Add(1)
			logger.Info("Starting scheduled build", slog.Int64("build", n))
			rep, err := buildTower(context.WithoutCancel(ctx), cfg, logger, console, recorder)
			if err != nil {
				failures.Add(1)
				logger.Error("Scheduled build failed", logfields.Error(err))
				return
			}
			logger.Info("Scheduled build finished", logfields.RunID(rep.RunID), logfields.Duration(rep.Elapsed))
		}),
		gocron.WithName("tower-build"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to schedule builds").Build()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			logger.Info("Serving metrics", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return ferrors.WrapError(err, ferrors.CategoryRuntime, "metrics server failed").
					WithContext("addr", addr).
					Build()
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	eg.Go(func() error {
		logger.Info("Starting scheduler", slog.String("interval", cfg.Schedule.Interval))
		sched.Start()
		<-egCtx.Done()
		logger.Info("Stopping scheduler; waiting for a running build to finish")
		if err := sched.Shutdown(); err != nil {
			return fmt.Errorf("scheduler shutdown: %w", err)
		}
		return nil
	})

	err = eg.Wait()
	logger.Info("Serve stopped", slog.Int64("builds", builds.Load()), slog.Int64("failed", failures.Load()))
	return err
}
