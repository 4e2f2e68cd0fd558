package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysmon-agent/internal/config"
	"sysmon-agent/internal/sampler"
	"sysmon-agent/internal/source"
	"sysmon-agent/internal/stream"
)

type Agent struct {
	cfg     config.Config
	logger  *slog.Logger
	sampler *sampler.Sampler
	sink    stream.Sink
	health  *HealthStatus
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	sink, err := stream.NewSinkFromConfig(cfg, tlsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("stream sink: %w", err)
	}

	health := NewHealthStatus()
	consumer := newSinkConsumer(sink, health, logger, cfg.NodeID, cfg.SendTimeout)

	src := source.NewProcSource(logger)
	smp, err := sampler.New(sampler.Config{
		NodeID:          cfg.NodeID,
		Hostname:        cfg.Hostname,
		Interval:        cfg.SampleInterval,
		SnapshotTimeout: cfg.SnapshotTimeout,
		ErrorBackoff:    cfg.ErrorBackoff,
	}, src, consumer, logger)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}

	return &Agent{
		cfg:     cfg,
		logger:  logger,
		sampler: smp,
		sink:    sink,
		health:  health,
	}, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting sysmon-agent",
		"node_id", a.cfg.NodeID,
		"hostname", a.cfg.Hostname,
		"sample_interval", a.cfg.SampleInterval,
		"stream_mode", a.cfg.StreamMode)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Agent terminated by itself (startup error/runtime error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("sysmon-agent stopped")
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
