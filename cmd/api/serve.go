package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/search"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	prodH "github.com/fekuna/omnipos-catalog-service/internal/product/handler"
	prodListenerPkg "github.com/fekuna/omnipos-catalog-service/internal/product/listener"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-catalog-service/internal/product/usecase"

	recipeH "github.com/fekuna/omnipos-catalog-service/internal/recipe/handler"
	recipeRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/recipe/repository"
	recipeUCPkg "github.com/fekuna/omnipos-catalog-service/internal/recipe/usecase"

	unitH "github.com/fekuna/omnipos-catalog-service/internal/unit/handler"
	unitRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/unit/repository"
	unitUCPkg "github.com/fekuna/omnipos-catalog-service/internal/unit/usecase"
)

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load Configuration
	cfg := loadConfig()

	// 2. Initialize Logger
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(postgresConfig(cfg))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	unitRepo := unitRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	recipeRepo := recipeRepoPkg.NewPGRepository(db, cfg.Costing.IsolationLevel())

	// 5. Initialize Redis
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5.5 Initialize Kafka
	var (
		priceConsumer  *broker.KafkaConsumer
		recipeProducer *broker.KafkaProducer
	)
	if cfg.Kafka.Enabled {
		priceConsumer = broker.NewKafkaConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.PriceTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer priceConsumer.Close()

		recipeProducer = broker.NewKafkaProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RecipeTopic,
		})
		defer recipeProducer.Close()
		appLogger.Info("Connected to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("price_topic", cfg.Kafka.PriceTopic),
			zap.String("recipe_topic", cfg.Kafka.RecipeTopic),
		)
	}

	// 5.8 Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, product search falls back to the database", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 6. Initialize UseCases
	resolver := costing.NewResolver(recipe.CostSource{
		Recipes: recipeRepo,
		Prices:  prodRepo,
		Units:   unitRepo,
	}, costing.Options{
		MaxDepth:    cfg.Costing.MaxDepth,
		Concurrency: cfg.Costing.Concurrency,
	})

	unitUC := unitUCPkg.NewUnitUseCase(unitRepo, redisClient, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, redisClient, esClient, appLogger)
	recipeUC := recipeUCPkg.NewRecipeUseCase(recipeRepo, resolver, redisClient, recipeProducer, cfg.Costing.CacheTTL, appLogger)

	// 7. Initialize Handlers
	unitHandler := unitH.NewUnitHandler(unitUC, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, appLogger)
	recipeHandler := recipeH.NewRecipeHandler(recipeUC, appLogger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// 8. Start Listeners
	if priceConsumer != nil {
		priceListener := prodListenerPkg.NewPriceListener(priceConsumer, prodUC, appLogger)
		g.Go(func() error {
			priceListener.Start(gctx)
			return nil
		})
	}

	// 9. Start HTTP Server
	checks := map[string]rest.ReadyCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}
	httpServer := rest.NewServer(rest.Config{
		Addr:           cfg.Server.HTTPPort,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	}, appLogger, checks, unitHandler, prodHandler, recipeHandler)
	g.Go(func() error {
		return httpServer.Start(gctx)
	})

	// 10. Start gRPC Server (health and reflection)
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", port, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", port))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	// Graceful Shutdown
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}
