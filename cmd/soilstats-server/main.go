package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/soilgrids-stats/internal/core/config"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/httpclient"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/router"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/server"
	"github.com/mohammed-shakir/soilgrids-stats/internal/logger"
	"github.com/mohammed-shakir/soilgrids-stats/internal/metrics"
	"github.com/mohammed-shakir/soilgrids-stats/internal/providers"
	_ "github.com/mohammed-shakir/soilgrids-stats/internal/providers/soilgrids"
	"github.com/mohammed-shakir/soilgrids-stats/internal/statsevents"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	wcsFlag := flag.String("wcs", "", "WCS base URL (overrides SOILGRIDS_URL)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}
	if *wcsFlag != "" {
		cfg.Coverage.BaseURL = strings.TrimSpace(*wcsFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "soilstats",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting soilstats",
		"addr", cfg.Addr,
		"version", Version,
		"wcs", cfg.Coverage.BaseURL,
		"offset", cfg.Sampling.Offset)

	var mp *metrics.Provider
	if cfg.MetricsEnabled {
		mp = metrics.Init(metrics.Config{
			Enabled: true,
			Path:    "/metrics",
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
	}

	provs, err := providers.BuildAll(cfg, providers.Deps{
		Logger: appLog,
		HTTP:   httpclient.NewOutbound(cfg.Coverage.Timeout),
	})
	if err != nil {
		appLog.Error("provider setup failed", "err", err)
		return 1
	}

	var sink router.EventSink
	if cfg.StatsEvents.Enabled {
		pub, err := statsevents.NewPublisher(appLog, statsevents.Options{
			Brokers: cfg.StatsEvents.BrokerList(),
			Topic:   cfg.StatsEvents.Topic,
			Queue:   cfg.StatsEvents.Queue,
			Dedupe:  cfg.StatsEvents.Dedupe,
		})
		if err != nil {
			appLog.Error("stats events disabled", "err", err)
		} else {
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("stats events close", "err", err)
				}
			}()
			sink = pub
		}
	}

	h := router.New(appLog, provs, sink, cfg.MaxBodyBytes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, appLog, server.NewRouter(appLog, mp, h)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
