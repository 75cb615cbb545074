package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/eveenergy/internal/config"
	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/host"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/metrics"
	"codeberg.org/mutker/eveenergy/internal/pid"
	"codeberg.org/mutker/eveenergy/internal/platform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if level, ok := logger.ParseLevel(cfg.LogLevel); ok && !cfg.Debug && !cfg.Verbose {
		logger.SetLogLevel(level)
	}
	logConfig(cfg)

	if cfg.Describe {
		if err := describe(cfg); err != nil {
			logger.Fatal().Err(err).Msg("failed to describe endpoint")
		}
		return
	}

	if err := run(cfg); err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Msg("exiting")
		}
		logger.Fatal().Err(err).Msg("exiting")
	}
	logger.Info().Msg("Exiting...")
}

func logConfig(p config.Provider) {
	logger.Debug().
		Str("name", p.GetName()).
		Dur("interval", p.GetInterval()).
		Str("log_level", p.GetLogLevel()).
		Bool("debug", p.IsDebug()).
		Bool("unregister_on_shutdown", p.ShouldUnregisterOnShutdown()).
		Bool("metrics", p.IsMetricsEnabled()).
		Msg("Config loaded")
}

func run(cfg *config.Config) error {
	if err := pid.Write(cfg.StorageDir); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.StorageDir); err != nil {
			logger.Error().Err(err).Msg("failed to remove pid file")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector, err := metrics.NewService(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Device:  cfg.Name,
	}, reg, logger.Default())
	if err != nil {
		return err
	}

	events, err := eventlog.Open(cfg.EventLog, logger.Default())
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}

	h := host.NewLocal(host.Options{
		Version:    cfg.HostVersion,
		Directory:  cfg.StorageDir,
		BridgeMode: cfg.BridgeMode,
	}, logger.Default())

	p, err := platform.New(h, logger.Default(), cfg,
		platform.WithMetrics(collector),
		platform.WithEventLog(events),
	)
	if err != nil {
		events.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if err := p.Start(gctx, "startup"); err != nil {
		shutdown(p, "start failed")
		return err
	}
	if err := p.Configure(gctx); err != nil {
		shutdown(p, "configure failed")
		return err
	}

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, reg, logger.Default())
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		reason := "error"
		if ctx.Err() != nil {
			logger.Info().Msg("Received termination signal.")
			reason = "signal"
		}
		return shutdown(p, reason)
	})

	return g.Wait()
}

func shutdown(p *platform.Platform, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx, reason)
}

// describe prints the endpoint layout without touching the storage directory.
func describe(cfg *config.Config) error {
	ctx := context.Background()

	h := host.NewLocal(host.Options{Version: cfg.HostVersion, BridgeMode: cfg.BridgeMode}, logger.Default())
	p, err := platform.New(h, logger.Default(), cfg)
	if err != nil {
		return err
	}
	if err := p.Start(ctx, "describe"); err != nil {
		return err
	}
	defer p.Shutdown(ctx, "describe")

	out, err := p.Endpoint().Describe()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
