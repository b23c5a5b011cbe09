// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Command exomodule runs one exoskeleton module against an MQTT broker.
package main

import (
	"context"
	stderr "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/broker"
	"github.com/ObsidianArch02/eco-exoskeleton-project/config"
	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/hardware/sim"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt311"
	"github.com/ObsidianArch02/eco-exoskeleton-project/node"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Process exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitUsage   = 2
	exitRestart = 3
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out io.Writer) int {
	cfg, err := parse(args, out)
	if err != nil {
		if stderr.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(out, err)
		return exitUsage
	}

	logger := newLogger(cfg.Log, out)
	mqtt311.SetLibraryLogger(logger)

	if err := serve(ctx, cfg, logger); err != nil {
		var restart *connectivity.RestartRequiredError
		if stderr.As(err, &restart) {
			logger.Error("restart required",
				slog.Int("cycles", restart.Cycles),
				slog.Any("error", restart.Last),
			)
			return exitRestart
		}
		if ctx.Err() != nil {
			logger.Info("shutting down")
			return exitOK
		}
		logger.Error("module failed", slog.Any("error", err))
		return exitError
	}
	return exitOK
}

// parse loads the configuration file and overlays any flags that were set.
func parse(args []string, out io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("exomodule", flag.ContinueOnError)
	fs.SetOutput(out)

	path := fs.String("config", "", "configuration file (.yaml or .toml)")
	module := fs.String("module", "", fmt.Sprintf("module to run %v", modules.Names()))
	brokerStr := fs.String("broker", "", "broker connection string")
	transport := fs.String("transport", "", "mqtt5 or mqtt311")
	clientID := fs.String("client-id", "", "MQTT client identifier")
	embedded := fs.String("embedded-broker", "", "serve an in-process broker on this address")
	metricsAddr := fs.String("metrics-addr", "", "serve /metrics, /healthz and /status on this address")
	hardware := fs.String("hardware", "", "hardware backend")
	level := fs.String("log-level", "", "off, error, warn, info or debug")
	format := fs.String("log-format", "", "tint or json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}

	set := map[string]func(){
		"module":          func() { cfg.Module = *module },
		"broker":          func() { cfg.Broker = *brokerStr },
		"transport":       func() { cfg.Transport = *transport },
		"client-id":       func() { cfg.ClientID = *clientID },
		"embedded-broker": func() { cfg.EmbeddedBroker = *embedded },
		"metrics-addr":    func() { cfg.MetricsAddr = *metricsAddr },
		"hardware":        func() { cfg.Hardware = *hardware },
		"log-level":       func() { cfg.Log.Level = *level },
		"log-format":      func() { cfg.Log.Format = *format },
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply()
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.Log, out io.Writer) *slog.Logger {
	level, ok := cfg.SlogLevel()
	if !ok {
		return log.Discard()
	}
	if cfg.Format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.EmbeddedBroker != "" {
		b, err := broker.New(cfg.EmbeddedBroker,
			broker.WithLogger(logger.With(slog.String("component", "broker"))))
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.Serve(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg, cfg.Module)
	if err != nil {
		return err
	}

	board, err := sim.New(cfg.Module,
		sim.WithNoise(cfg.Simulation.Noise),
		sim.WithSeed(cfg.Simulation.Seed),
		sim.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	build, err := modules.Lookup(cfg.Module)
	if err != nil {
		return err
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}

	n, err := node.New(build(board), transport,
		node.WithTopicPattern(cfg.TopicPattern),
		node.WithLoopYield(cfg.LoopYield.Std()),
		node.WithLogger(logger),
		node.WithMetrics(m),
		node.WithConnectivity(
			connectivity.WithLinkAttempts(cfg.Connectivity.LinkAttempts),
			connectivity.WithLinkRetryDelay(cfg.Connectivity.LinkRetryDelay.Std()),
			connectivity.WithCycleRetryDelay(cfg.Connectivity.CycleRetryDelay.Std()),
			connectivity.WithMaxFailedCycles(cfg.Connectivity.MaxFailedCycles),
			connectivity.WithResubscribeTopic(cfg.Connectivity.ResubscribeTopic),
			connectivity.WithQueueSize(cfg.Connectivity.QueueSize),
		),
	)
	if err != nil {
		return err
	}
	defer n.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.NewRouter(reg, n),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil &&
				!stderr.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()
		logger.Info("serving metrics", slog.String("address", cfg.MetricsAddr))
	}

	return n.Run(ctx)
}

func newTransport(
	cfg *config.Config,
	logger *slog.Logger,
) (connectivity.Transport, error) {
	cs, err := cfg.Connection()
	if err != nil {
		return nil, err
	}
	logger.Info("broker configured",
		slog.String("server", cs.ServerURL()),
		slog.String("transport", cfg.Transport),
	)
	if cfg.Transport == config.TransportMQTT311 {
		return mqtt311.NewTransportFromSettings(cs, mqtt311.WithLogger(logger))
	}
	return mqtt.NewTransportFromSettings(cs, mqtt.WithLogger(logger))
}
