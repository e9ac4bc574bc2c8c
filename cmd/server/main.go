package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourorg/index-compare/internal/client"
	"github.com/yourorg/index-compare/internal/config"
	"github.com/yourorg/index-compare/internal/events"
	"github.com/yourorg/index-compare/internal/handler"
	"github.com/yourorg/index-compare/internal/middleware"
	"github.com/yourorg/index-compare/internal/repository"
	"github.com/yourorg/index-compare/internal/scheduler"
	"github.com/yourorg/index-compare/internal/service"
	"github.com/yourorg/index-compare/internal/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := handler.RegisterValidators(); err != nil {
		logger.Fatal("Failed to register request validators", zap.Error(err))
	}

	location := service.LoadLocation(cfg.Compare.Timezone)
	instruments := cfg.InstrumentList()

	// Initialize clients
	tushareClient := client.NewTushareClient(client.TushareConfig{
		BaseURL:    cfg.Tushare.BaseURL,
		Token:      cfg.Tushare.Token,
		Timeout:    cfg.Tushare.Timeout,
		MaxRetries: cfg.Tushare.MaxRetries,
	}, logger)

	var source service.SeriesSource = tushareClient

	// Observation store is optional
	var sched *scheduler.Scheduler
	db, err := connectToDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if db != nil {
		defer db.Close()

		observationRepo := repository.NewObservationRepository(db, logger)
		if err := observationRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		source = service.NewFallbackSource(tushareClient, observationRepo, logger)

		if cfg.Sync.Cron != "" {
			syncService := service.NewSyncService(
				tushareClient,
				observationRepo,
				instruments,
				cfg.Sync.LookbackDays,
				cfg.Compare.MaxConcurrentFetches,
				location,
				logger,
			)
			sched = scheduler.NewScheduler(syncService, location, 0, logger)
			if err := sched.Register(cfg.Sync.Cron); err != nil {
				logger.Fatal("Failed to register sync schedule", zap.Error(err))
			}
			sched.Start()
			defer sched.Stop()
		}
	}

	redisClient := setupRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := setupKafka(cfg.Kafka, logger)
	defer publisher.Close()

	snapshots, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Warn("Chart snapshot storage unavailable", zap.Error(err))
		snapshots = nil
	}

	// Initialize services
	compareService := service.NewCompareService(
		source,
		instruments,
		service.CompareOptions{
			DefaultStartDate:     cfg.Compare.DefaultStartDate,
			Location:             location,
			MaxConcurrentFetches: cfg.Compare.MaxConcurrentFetches,
		},
		publisher,
		logger,
	)
	navService := service.NewNAVService(tushareClient, cfg.ETF.TSCode, cfg.ETF.DefaultStartDate, location, logger)
	chartService := service.NewChartService(0, 0)

	// Set up HTTP server with Gin
	routerCfg := handler.RouterConfig{
		Compare:           handler.NewCompareHandler(compareService, chartService, snapshots, logger),
		NAV:               handler.NewNAVHandler(navService, logger),
		Metrics:           middleware.NewHTTPMetrics("index_compare"),
		CacheTTL:          cfg.Redis.TTL,
		CachePrefix:       cfg.Redis.Prefix,
		JWTSecret:         cfg.Auth.JWTSecret,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		Logger:            logger,
	}
	if redisClient != nil {
		routerCfg.Cache = middleware.NewRedisStore(redisClient)
	}
	router := handler.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Server.Port),
			zap.Int("instruments", len(instruments)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	if sched != nil && os.Getenv("SYNC_ON_START") == "true" {
		go sched.RunSync()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level, format string) (*zap.Logger, error) {
	// Parse log level
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

	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

// connectToDB returns nil without error when persistence is not configured
func connectToDB(dbConfig config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if !dbConfig.Enabled() {
		logger.Info("No database configured, running without observation store")
		return nil, nil
	}

	db, err := repository.Connect(repository.DBConfig{
		Driver:       dbConfig.Driver,
		Host:         dbConfig.Host,
		Port:         dbConfig.Port,
		User:         dbConfig.User,
		Password:     dbConfig.Password,
		Name:         dbConfig.DBName,
		SSLMode:      dbConfig.SSLMode,
		Path:         dbConfig.Path,
		MaxOpenConns: dbConfig.MaxOpenConns,
		MaxIdleConns: dbConfig.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to database", zap.String("driver", dbConfig.Driver))
	return db, nil
}

// setupRedis returns nil when caching is disabled or Redis is unreachable
func setupRedis(redisConfig config.RedisConfig, logger *zap.Logger) *redis.Client {
	if redisConfig.Addr == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
		redisClient.Close()
		return nil
	}

	logger.Info("Connected to Redis", zap.String("addr", redisConfig.Addr))
	return redisClient
}

func setupKafka(kafkaConfig config.KafkaConfig, logger *zap.Logger) events.Publisher {
	brokers := kafkaConfig.BrokerList()
	if len(brokers) == 0 {
		logger.Info("No Kafka brokers configured, comparison events disabled")
		return events.NoopPublisher{}
	}

	logger.Info("Publishing comparison events",
		zap.Strings("brokers", brokers),
		zap.String("topic", kafkaConfig.Topics["comparisons"]))
	return events.NewProducer(brokers, kafkaConfig.ClientID, kafkaConfig.Topics["comparisons"], logger)
}
