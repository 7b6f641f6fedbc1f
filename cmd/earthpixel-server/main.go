package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mohammed-shakir/earthpixel/internal/cache/cellcache"
	"github.com/mohammed-shakir/earthpixel/internal/cache/redisstore"
	"github.com/mohammed-shakir/earthpixel/internal/core/config"
	"github.com/mohammed-shakir/earthpixel/internal/core/health"
	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
	"github.com/mohammed-shakir/earthpixel/internal/core/pixelsvc"
	"github.com/mohammed-shakir/earthpixel/internal/core/server"
	"github.com/mohammed-shakir/earthpixel/internal/decision/simple"
	"github.com/mohammed-shakir/earthpixel/internal/hitevents"
	"github.com/mohammed-shakir/earthpixel/internal/hotness/expdecay"
	"github.com/mohammed-shakir/earthpixel/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/earthpixel/internal/logger"
	"github.com/mohammed-shakir/earthpixel/internal/metrics"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
	tagging "github.com/mohammed-shakir/earthpixel/pkg/tagging/kafka"
)

var Version = "dev"

// Keys whose decayed score drops below this are forgotten by the pruner.
const hotPruneFloor = 0.01

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env-file", "", "optional .env file loaded before reading the environment")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadDotEnv(*envFile); err != nil {
			fmt.Fprintln(os.Stderr, "env file:", err)
			return 2
		}
	} else if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "env file:", err)
		return 2
	}
	cfg := config.FromEnv()

	unit, err := earthpixel.ParseUnit(cfg.PixelUnit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "PIXEL_UNIT:", err)
		return 2
	}
	grid, err := earthpixel.NewFromString(cfg.PixelWidth, unit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "PIXEL_WIDTH:", err)
		return 2
	}
	requested, _ := strconv.ParseFloat(cfg.PixelWidth, 64)

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "earthpixel",
		Grid:      strconv.Itoa(grid.Divisions()),
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting earthpixel",
		"addr", cfg.Addr,
		"version", Version,
		"grid", grid.String(),
		"requested_width", cfg.PixelWidth,
		"unit", unit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mp := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Addr:    cfg.MetricsAddr,
		Path:    cfg.MetricsPath,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	observability.Init(mp.Registerer(), cfg.MetricsEnabled)
	observability.SetGridInfo(grid.Divisions(), grid.Width())
	go func() {
		if err := mp.Serve(ctx, appLog); err != nil {
			appLog.Error("metrics server exited", "err", err)
		}
	}()

	tracker := expdecay.New(cfg.HotHalfLife)
	go tracker.PruneEvery(ctx, cfg.HotPruneEvery, hotPruneFloor, func(n int) {
		if n > 0 {
			appLog.Debug("pruned cold pixel keys", "removed", n, "tracked", tracker.Size())
		}
	})
	hot := metricswrap.New(tracker, metricswrap.Options{
		Threshold: cfg.HotThreshold,
		LogSample: 0.01,
		Logger:    appLog,
	})

	var checks []health.Check
	opts := pixelsvc.Options{Logger: appLog, Hot: hot, Requested: requested, Unit: unit}

	if cfg.CellCacheEnable {
		var l2 cellcache.Store
		if cfg.RedisAddr != "" {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			rc, err := redisstore.New(pingCtx, cfg.RedisAddr)
			cancel()
			if err != nil {
				appLog.Error("redis unavailable", "addr", cfg.RedisAddr, "err", err)
				return 1
			}
			defer func() { _ = rc.Close() }()
			l2 = rc
			checks = append(checks, health.CheckFunc{N: "redis", F: rc.Ping})
		}
		eng := &simple.Engine{Hot: hot, Threshold: cfg.HotThreshold, BaseTTL: cfg.CellCacheTTL}
		cc, err := cellcache.New(l2, eng, cellcache.Options{
			Size:      cfg.CellCacheSize,
			OpTimeout: cfg.CacheOpTimeout,
			Logger:    appLog,
		})
		if err != nil {
			appLog.Error("cell cache setup failed", "err", err)
			return 1
		}
		opts.Cells = cc
	}

	if cfg.HitEvents.Enabled {
		pub, err := hitevents.NewPublisher(cfg.Brokers(), cfg.HitEvents.Topic, cfg.HitEvents.QueueSize, appLog)
		if err != nil {
			appLog.Error("hit events setup failed", "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Warn("hit events close", "err", err)
			}
		}()
		opts.Hits = pub
	}

	runner := tagging.New(tagging.Config{
		Enabled:       cfg.Tagging.Enabled,
		Brokers:       cfg.Brokers(),
		InputTopic:    cfg.Tagging.InputTopic,
		OutputTopic:   cfg.Tagging.OutputTopic,
		GroupID:       cfg.Tagging.GroupID,
		InitialOldest: true,
	}, grid, tagging.Options{Logger: appLog, Register: mp.Registerer()})
	if err := runner.Start(ctx); err != nil {
		appLog.Error("tagging runner start failed", "err", err)
		return 1
	}
	defer runner.Stop()
	if cfg.Tagging.Enabled {
		checks = append(checks, runner)
	}

	svc := pixelsvc.New(grid, opts)
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = mp.Handler()
	}
	h := server.NewHandler(cfg, appLog, svc, metricsHandler, checks...)
	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

