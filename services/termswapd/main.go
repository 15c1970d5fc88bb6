package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"termswap/config"
	"termswap/native/bank"
	"termswap/native/termswap"
	"termswap/observability"
	"termswap/observability/logging"
	telemetry "termswap/observability/otel"
	"termswap/services/termswapd/middleware"
	"termswap/services/termswapd/server"
	"termswap/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "termswapd.toml", "path to termswapd configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("termswapd: load config: %v", err)
	}

	logger := logging.Setup("termswapd", cfg.Environment,
		logging.WithLevel(cfg.Logging.Level),
		logging.WithFile(logging.FileConfig{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}))

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "termswapd",
		Environment:    cfg.Environment,
		Module:         termswap.ModuleName,
		Storage:        cfg.Storage.Backend,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseKeyValues(cfg.Telemetry.Headers),
		Attributes:     telemetry.ParseKeyValues(cfg.Telemetry.ResourceAttributes),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval(),
	})
	if err != nil {
		log.Fatalf("termswapd: init telemetry: %v", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	var genesis *config.Genesis
	if path := strings.TrimSpace(cfg.GenesisFile); path != "" {
		genesis, err = config.LoadGenesis(path)
		if err != nil {
			log.Fatalf("termswapd: %v", err)
		}
	}

	db, err := storage.Open(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		log.Fatalf("termswapd: open storage: %v", err)
	}
	defer db.Close()

	owner := common.Address{}
	if strings.TrimSpace(cfg.Owner) != "" {
		owner = common.HexToAddress(cfg.Owner)
	} else if genesis != nil {
		owner = genesis.OwnerAddress()
	}
	fees := cfg.Fees
	if genesis != nil && genesis.Fees != nil {
		fees = *genesis.Fees
	}

	ledger := bank.NewLedger(db)
	factory, err := termswap.NewFactory(db, ledger, owner, fees)
	if err != nil {
		log.Fatalf("termswapd: open factory: %v", err)
	}
	sink := observability.NewEventSink(logger, observability.Termswap(), nil, 0)
	factory.SetEmitter(sink)
	pauses := server.NewPauseSwitch(cfg.Pauses.IsPaused(termswap.ModuleName))
	factory.SetPauses(pauses)

	if err := applyGenesis(db, ledger, factory, genesis, logger); err != nil {
		log.Fatalf("termswapd: apply genesis: %v", err)
	}

	srv, err := server.New(server.Config{
		Factory: factory,
		Ledger:  ledger,
		Events:  sink,
		Pauses:  pauses,
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.AuthSecret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew(),
		},
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		DevMode: cfg.Environment == "dev",
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("termswapd: build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner, _ = factory.Owner()
	logger.Info("termswapd starting",
		slog.String("address", cfg.ListenAddress),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("owner", owner.Hex()),
		slog.Int("pairs", len(factory.Pairs())))
	if err := srv.Run(ctx, cfg.ListenAddress); err != nil {
		logger.Error("termswapd: server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("termswapd stopped")
}
