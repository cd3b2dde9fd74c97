package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voidbot/internal/alerts"
	"voidbot/internal/health"
	"voidbot/internal/logging"
	"voidbot/internal/pipeline"
	"voidbot/internal/queue"
	"voidbot/internal/recovery"
	"voidbot/internal/state"
	"voidbot/internal/upstream"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the notification pipeline until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), cmdCtx)
		},
	}
}

func runPipeline(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !locked {
		return errors.New("another voidbot instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			fmt.Fprintf(os.Stderr, "warn: release pipeline lock: %v\n", err)
		}
	}()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := state.Open(cfg, logger)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}
	defer store.Close()

	q, err := queue.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}

	consumer, err := pipeline.NewExecConsumer(cfg, logger)
	if err != nil {
		return err
	}

	var engine *recovery.Engine
	if upstream.Configured(cfg) {
		source, err := upstream.NewExecSource(cfg, logger)
		if err != nil {
			return err
		}
		engine = recovery.NewEngine(cfg, source, q, store, logger)
	} else {
		logger.Warn("upstream.command not configured, recovery disabled")
	}

	monitor := health.NewMonitor(cfg, q, store, logger)
	alerter := alerts.NewService(cfg)
	runner := pipeline.NewRunner(cfg, q, store, monitor, engine, alerter, consumer, logger)

	if err := runner.Start(signalCtx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error { return runner.HealthLoop(groupCtx) })
	group.Go(func() error { return runner.RecoveryLoop(groupCtx) })
	group.Go(func() error { return runner.MaintenanceLoop(groupCtx) })

	logger.Info("voidbot pipeline running")
	err = group.Wait()
	runner.Stop()
	logger.Info("voidbot pipeline shut down")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
