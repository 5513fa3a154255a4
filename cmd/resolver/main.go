// Command resolver runs the off-chain link-resolution sink standalone:
// it applies database migrations, loads non-terminal tasks, starts the
// status/metrics HTTP surface, and drives the resolver's worker loop
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/redis/go-redis/v9"

	"github.com/eureka-network/eureka-sink/internal/config"
	"github.com/eureka-network/eureka-sink/internal/database"
	"github.com/eureka-network/eureka-sink/offchain/api"
	"github.com/eureka-network/eureka-sink/offchain/dedupe"
	"github.com/eureka-network/eureka-sink/offchain/downloaders"
	"github.com/eureka-network/eureka-sink/offchain/parsers"
	"github.com/eureka-network/eureka-sink/offchain/resilience"
	"github.com/eureka-network/eureka-sink/offchain/store"
	"github.com/eureka-network/eureka-sink/pkg/metrics"

	resolverpkg "github.com/eureka-network/eureka-sink/offchain"
)

const dedupeLockTTL = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the resolver's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.ConnectDSN(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	taskStore := store.NewPostgresTaskStore(db, logger)

	res, err := resolverpkg.NewResolver(ctx, taskStore, logger)
	if err != nil {
		return fmt.Errorf("construct resolver: %w", err)
	}

	res.WithLinkResolver("https", resilience.NewBreakerResolver("https", downloaders.NewHTTPSResolver()))
	res.WithLinkResolver("ipfs", resilience.NewBreakerResolver("ipfs", downloaders.NewIPFSResolver(cfg.Resolver.Gateway.IPFSGatewayURL)))

	res.WithParser("json", parsers.NewJSONManifestParser(nil))

	if cfg.Dedupe.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Dedupe.RedisAddr})
		res.WithDedupeGuard(dedupe.New(redisClient, dedupeLockTTL))
	}

	statusAddr := fmt.Sprintf(":%d", cfg.Server.StatusPort)
	apiServer := api.NewServer(statusAddr, taskStore, logger)

	metricsServer := metrics.NewServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), logger)

	group, gctx := errgroup.WithContext(ctx)

	apiServer.StartAsync()
	metricsServer.StartAsync()

	group.Go(func() error {
		return res.Run(gctx, cfg.Resolver.ExitOnCompletion)
	})

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("resolver stopped with error", zap.Error(err))
	}

	shutdownCtx := context.Background()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("api server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}

	return nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zapLevel

	return cfg.Build()
}
