package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"course-fee-gateway/internal/cache"
	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/clock"
	"course-fee-gateway/internal/config"
	"course-fee-gateway/internal/database"
	"course-fee-gateway/internal/events"
	"course-fee-gateway/internal/infrastructure/payment"
	"course-fee-gateway/internal/repo"
	"course-fee-gateway/internal/server"
	"course-fee-gateway/internal/service"
	"course-fee-gateway/internal/telemetry"
	"course-fee-gateway/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing("course-fee-gateway", cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	dbService := database.New(db, logger)
	defer dbService.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	recordCache := cache.NewNoopCache()
	if cfg.RedisAddr != "" {
		rdb, err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer rdb.Close()
		recordCache = cache.NewRecordCache(rdb, cfg.RecordTTL)
	}

	publisher := events.NewNoopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
	}
	defer publisher.Close()

	clk := clock.NewSystem()
	engine := checksum.New(cfg.MerchantKey, cfg.MerchantSalt)

	orderRepo := repo.NewOrderRepo(db)
	customerRepo := repo.NewCustomerRepo()
	recordRepo := repo.NewRecordRepo(db)
	callbackRepo := repo.NewCallbackRepo(db)
	paymentGateway := payment.NewPaymentGateway(cfg.GatewayURL, cfg.MerchantKey, cfg.GatewayTimeout)

	orderService := service.NewOrderService(db, orderRepo, customerRepo, recordRepo, paymentGateway, engine, clk, logger,
		service.IssuerOptions{OrderIDPrefix: cfg.OrderIDPrefix, CallbackURL: cfg.CallbackURL})
	callbackService := service.NewCallbackService(orderRepo, callbackRepo, engine, publisher, clk, logger)
	recordService := service.NewRecordService(recordRepo, callbackRepo, recordCache, logger)

	monitor := worker.NewPendingMonitor(orderRepo, clk, logger, cfg.MonitorInterval, cfg.StalePendingAfter)
	go monitor.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(
		server.Options{CORSOrigins: cfg.CORSOrigins, FrontendURL: cfg.FrontendURL},
		logger, dbService, orderService, callbackService, recordService,
	)
	srv := server.NewHTTPServer(cfg.Port, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	logger.Info("Course fee gateway started", zap.String("addr", srv.Addr))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
