package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cache"
	"github.com/safar/cartstore/internal/cart"
	"github.com/safar/cartstore/internal/catalog"
	"github.com/safar/cartstore/internal/checkout"
	"github.com/safar/cartstore/internal/config"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/events"
	"github.com/safar/cartstore/internal/httpapi"
	"github.com/safar/cartstore/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Database.MigrateOnStart {
		version, err := database.Migrate(cfg.Database.URL, database.Up)
		if err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
		logger.Info("schema migrated", zap.Uint("version", version))
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database")

	var cartCache cache.CartCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, cart reads will hit the database", zap.Error(err))
		}
		cartCache = cache.NewRedisCache(client, cfg.Redis.TTL)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if len(cfg.Kafka.Brokers) > 0 {
		writer := events.NewKafkaWriter(cfg.Kafka)
		defer writer.Close()

		poller := events.NewOutboxPoller(events.NewSQLOutbox(db), writer, cfg.Kafka, logger)
		go poller.Run(ctx)
	} else {
		logger.Info("no kafka brokers configured, outbox publisher disabled")
	}

	handler := httpapi.NewHandler(
		cart.NewService(db, cartCache, logger),
		checkout.NewMaterializer(db, cartCache, logger),
		catalog.NewService(db),
		db,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpapi.NewRouter(handler, auth.NewAuthenticator(cfg.Auth.JWTSecret), cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
