// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notification-engine/internal/audit"
	"notification-engine/internal/backends"
	"notification-engine/internal/common/config"
	"notification-engine/internal/common/database"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/dispatch"
	"notification-engine/internal/queue"
	"notification-engine/internal/store"

	pb "notification-engine/internal/workers/notifications/process-broadcast"
	sn "notification-engine/internal/workers/notifications/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional, delivery audit only) ---
	var auditor *audit.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, delivery audit disabled", zap.Error(err))
		} else {
			auditor = audit.NewIndexer(esClient.Client, log)
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Repositories ---
	notifications := store.NewNotificationStore(pg.DB)
	broadcasts := store.NewBroadcastStore(pg.DB)
	templates := store.NewTemplateStore(pg.DB)
	settings := store.NewSettingsStore(pg.DB)
	emailConfigs := store.NewEmailConfigStore(pg.DB)
	users := store.NewUserStore(pg.DB)

	// --- Queue ---
	jobQueue := queue.NewRedisQueue(redisClient.Client, cfg.Queue.Key,
		config.GetDuration(cfg.Queue.VisibilityTimeout))
	consumer := queue.NewConsumer(jobQueue, log,
		config.GetDuration(cfg.Queue.PollInterval), 0)

	// --- Channel backends ---
	emailBackend, err := backends.SelectEmailBackend(ctx, cfg, emailConfigs)
	if err != nil {
		zapLog.Fatal("email backend init failed", zap.Error(err))
	}
	smsBackend, err := backends.SelectSMSBackend(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("sms backend init failed", zap.Error(err))
	}

	// --- Dispatch pipeline ---
	gate := dispatch.NewPreferenceGate(settings, log)
	dispatcher := dispatch.NewService(templates, users, notifications, gate,
		jobQueue, cfg.Site.Name, log)

	// --- Register workers ---
	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		wc := config.GetWorkerConfig(cfg, sn.TaskType)
		handler := sn.NewHandler(
			&sn.Config{
				Enabled:      wc.Enabled,
				Timeout:      config.GetDuration(wc.Timeout),
				MaxRetries:   wc.MaxRetries,
				RetryBackoff: 60 * time.Second,
			},
			notifications, broadcasts, emailBackend, smsBackend, auditor, log,
		)
		consumer.Register(sn.TaskType, handler, config.GetDuration(wc.Timeout))
		zapLog.Info("worker registered", zap.String("taskType", sn.TaskType))
	}

	if config.IsWorkerEnabled(cfg, pb.TaskType) {
		wc := config.GetWorkerConfig(cfg, pb.TaskType)
		handler := pb.NewHandler(
			&pb.Config{
				Enabled:   wc.Enabled,
				Timeout:   config.GetDuration(wc.Timeout),
				BatchSize: cfg.Queue.BatchSize,
			},
			broadcasts, users, dispatcher, log,
		)
		consumer.Register(pb.TaskType, handler, config.GetDuration(wc.Timeout))
		zapLog.Info("worker registered", zap.String("taskType", pb.TaskType))
	}

	// --- Metrics server ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// --- Run until shutdown signal ---
	if err := consumer.Run(ctx); err != nil && err != context.Canceled {
		zapLog.Fatal("consumer stopped", zap.Error(err))
	}

	zapLog.Info("Shutdown signal received, worker stopped")
}
