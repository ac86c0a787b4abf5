package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/apperrors"
	"storefront-service/cache"
	"storefront-service/config"
	"storefront-service/consumer"
	"storefront-service/controllers"
	"storefront-service/database"
	"storefront-service/events"
	"storefront-service/logger"
	"storefront-service/middleware"
	"storefront-service/notifier"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"
	"storefront-service/routes"
	"storefront-service/sender"
	"storefront-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "storefront-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// --- AWS setup ---
	var awsCfg sdkaws.Config
	if cfg.UsesAWS() {
		awsCfg, err = aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatalf("failed to load AWS config: %v", err)
		}
	}

	var cwWriter io.Writer
	var cwErr error
	if cfg.CloudWatchEnabled {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			cwErr = err
		} else {
			cwWriter = cw
		}
	}

	zapLogger, err := logger.New(cfg.AppEnv, cwWriter)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)
	if cwErr != nil {
		zapLogger.Warn("CloudWatch Logs disabled (non-fatal)", zap.Error(cwErr))
	}

	var metrics aws_pkg.Metrics = aws_pkg.NopMetrics{}
	if cfg.CloudWatchEnabled {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace)
	}

	// --- Database ---
	db, err := database.ConnectPostgres(zapLogger, cfg.DSN(), 5)
	if err != nil {
		zapLogger.Fatal("DB connection failed", zap.Error(err))
	}

	// --- Cache ---
	var store cache.Cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Redis connection failed", zap.Error(err))
		}
		store = cache.NewRedisCache(redisClient)
	} else {
		mem := cache.NewMemoryCache()
		go mem.RunSweeper(ctx, cfg.CacheSweepInterval)
		store = mem
		zapLogger.Info("Using in-process cache")
	}
	invalidator := cache.NewInvalidator(store, zapLogger)
	invalidator.OnFailure(func(ctx context.Context, prefix string, _ error) {
		_ = metrics.RecordCount(ctx, aws_pkg.MetricCacheInvalidateErrors, map[string]string{"Prefix": prefix})
	})

	// --- Repositories ---
	txManager := repository.NewGormTxManager(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	inventoryRepo := repository.NewGormInventoryRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)

	// --- Notifications ---
	var snsClient *aws_pkg.SNSClient
	if cfg.UsesAWS() {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}
	senderOpts := sender.Options{
		Twilio: sender.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		},
		SMTP: sender.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Subject:  cfg.StoreName + " order update",
		},
		SNSSenderID: cfg.SNSSenderID,
		Logger:      zapLogger,
	}
	if snsClient != nil {
		senderOpts.SMS = snsClient
	}
	providers, err := sender.New(cfg.NotifyProviders, senderOpts)
	if err != nil {
		zapLogger.Fatal("Notification provider setup failed", zap.Error(err))
	}
	templates, err := notifier.NewTemplates()
	if err != nil {
		zapLogger.Fatal("Notification templates failed to parse", zap.Error(err))
	}
	dispatcher := notifier.NewDispatcher(notificationRepo, templates, providers, notifier.DispatcherConfig{
		MaxRounds: cfg.NotifyMaxRounds,
		Backoff:   cfg.NotifyRetryBackoff,
	}, metrics, zapLogger)

	var queue notifier.Queue
	var pool *notifier.WorkerPool
	if cfg.NotifySQSQueueURL != "" {
		sqsQueue := aws_pkg.NewSQSQueue(awsCfg, cfg.NotifySQSQueueURL)
		queue = notifier.NewSQSQueue(sqsQueue)
		go consumer.NewSQSConsumer(sqsQueue, dispatcher, metrics, zapLogger).Start(ctx)
	} else {
		pool = notifier.NewWorkerPool(dispatcher, cfg.NotifyWorkers, cfg.NotifyQueueSize, zapLogger)
		pool.Start()
		queue = pool
	}
	orderNotifier := notifier.NewOrderNotifications(queue, cfg.StoreName, cfg.AdminNotifyPhones, zapLogger)

	var publisher services.EventPublisher = events.NopPublisher{}
	if cfg.OrderEventsTopicARN != "" {
		publisher = events.NewSNSPublisher(snsClient, cfg.OrderEventsTopicARN, zapLogger)
	}

	// --- Dependency injection ---
	deps := services.OrderDeps{
		Tx:          txManager,
		Inventory:   inventoryRepo,
		Orders:      orderRepo,
		Invalidator: invalidator,
		Notifier:    orderNotifier,
		Events:      publisher,
		Metrics:     metrics,
		Logger:      zapLogger,
	}
	orderService := services.NewOrderService(deps,
		services.NewOrderNumberGenerator(cfg.OrderNumberPrefix), cfg.OrderNumberMaxAttempts)
	statusService := services.NewOrderStatusService(deps, services.NewTransitionPolicy(cfg.StrictTransitions))
	cartValidator := services.NewCartValidator(inventoryRepo)
	catalogService := services.NewCatalogService(catalogRepo, inventoryRepo, store, invalidator, cfg.CacheTTL, zapLogger)
	notificationLogs := services.NewNotificationLogService(notificationRepo)

	orderLimiter := middleware.NewRateLimiter(rate.Limit(cfg.OrderRateLimit), cfg.OrderRateBurst, 10*time.Minute)
	go orderLimiter.Run(ctx)

	// --- HTTP router ---
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zapLogger))
	if cfg.CloudWatchEnabled {
		r.Use(middleware.Metrics(metrics, serviceName))
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(apperrors.ErrorMiddleware())

	routes.Register(r, routes.Handlers{
		Orders:        controllers.NewOrderController(orderService, statusService, cartValidator),
		Catalog:       controllers.NewCatalogController(catalogService),
		Notifications: controllers.NewNotificationController(notificationLogs),
		Auth:          middleware.NewAuth(cfg.JWTSecret),
		OrderLimiter:  orderLimiter,
		ResponseCache: middleware.ResponseCache(store, cfg.CacheTTL, zapLogger),
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLogger.Info("Storefront service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	stop()
	zapLogger.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown error", zap.Error(err))
	}
	if pool != nil {
		if err := pool.Stop(shutdownCtx); err != nil {
			zapLogger.Error("Notification queue shutdown error", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Error("Redis close error", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		zapLogger.Error("Database close error", zap.Error(err))
	}
	zapLogger.Info("Shutdown complete")
}
