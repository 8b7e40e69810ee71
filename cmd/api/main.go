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

	"github.com/auctionhouse/auction-marketplace-backend/internal/api/rest"
	"github.com/auctionhouse/auction-marketplace-backend/internal/api/websocket"
	"github.com/auctionhouse/auction-marketplace-backend/internal/domain/values"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/cache"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/config"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/database"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/events"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/repository"
	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/telemetry"
	"github.com/auctionhouse/auction-marketplace-backend/internal/metrics"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/bidding"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/payment"
	"github.com/auctionhouse/auction-marketplace-backend/internal/service/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting auction marketplace backend",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	redisCache, err := cache.NewRedisCache(redisClient, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	snapshots := cache.NewAuctionCache(redisCache, logger, 2*time.Second)
	limiter := cache.NewRedisRateLimiter(redisClient, logger)

	registry, err := metrics.NewRegistry("auction-marketplace-backend")
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	auctionRepo := repository.NewAuctionRepository(pool.Pgx())
	bidRepo := repository.NewBidRepository(pool.Pgx())
	itemRepo := repository.NewItemRepository(pool.Pgx())

	publisher := events.NewPublisher(redisClient, logger)

	minIncrement, err := values.NewMoneyFromString(cfg.Bidding.MinIncrement, cfg.Bidding.Currency)
	if err != nil {
		return fmt.Errorf("invalid bidding.min_increment: %w", err)
	}

	biddingSvc := bidding.NewService(auctionRepo, bidRepo, publisher, registry, logger, bidding.Config{
		MinIncrement: minIncrement,
		MaxRetries:   cfg.Bidding.MaxRetries,
	})

	paymentSvc := payment.NewService(auctionRepo, registry, logger)

	sweeper := scheduler.NewSweeper(auctionRepo, paymentSvc, paymentSvc, publisher, registry, logger, scheduler.Config{
		Interval:      cfg.Scheduler.SweepInterval,
		PaymentWindow: cfg.Scheduler.PaymentWindow,
		BatchSize:     cfg.Scheduler.BatchSize,
	})

	hub := websocket.NewHub(logger)
	subscriber := events.NewSubscriber(redisClient, logger, hub.HandleEvent)

	handler := rest.NewHandler(biddingSvc, paymentSvc, auctionRepo, itemRepo, snapshots, pool.DB(), logger)
	server := rest.NewServer(cfg, handler, websocket.ServeWS(hub, logger), limiter, registry, logger)

	go sweeper.Run(ctx)
	go func() {
		if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("event subscriber stopped", zap.Error(err))
		}
	}()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
