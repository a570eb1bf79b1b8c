package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jobtrack/internal/api"
	"jobtrack/internal/common/aws"
	"jobtrack/internal/common/clock"
	"jobtrack/internal/common/config"
	"jobtrack/internal/common/database"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/observability"
	"jobtrack/internal/common/storage"
	"jobtrack/internal/events"
	"jobtrack/internal/notification"
	"jobtrack/internal/queue"
	"jobtrack/internal/repository"
	"jobtrack/internal/status"
	"jobtrack/internal/sweeper"
	"jobtrack/internal/workflow"
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

	zapLog.Info("Starting jobtrack server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("jobtrack-server")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS clients ---
	cvStore, err := storage.NewS3Store(ctx, cfg.Storage.S3.Region, cfg.Storage.S3.Bucket, cfg.Storage.S3.KeyPrefix)
	if err != nil {
		zapLog.Fatal("s3 store initialization failed", zap.Error(err))
	}

	var sesClient *aws.SESClient
	if cfg.Notifications.Email.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client initialization failed", zap.Error(err))
		}
	}

	var snsClient *aws.SNSClient
	if cfg.Notifications.Ops.Enabled {
		snsClient, err = aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Ops.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client initialization failed", zap.Error(err))
		}
	}
	zapLog.Info("AWS clients initialized")

	// --- Repositories and domain services ---
	appRepo := repository.NewApplicationRepository(pg.GetDB())
	vacancyRepo := repository.NewVacancyRepository(pg.GetDB())
	userRepo := repository.NewUserRepository(pg.GetDB())

	bus := events.NewBus(log)
	machine := status.New()

	taskQueue := queue.New(rdb.GetClient(), cfg.Queue, log)
	if snsClient != nil {
		taskQueue.SetAlertFunc(func(ctx context.Context, task queue.Task, cause error) {
			subject := "jobtrack: background task exhausted retries"
			message := fmt.Sprintf("task %s (%s) failed after %d attempts: %v", task.ID, task.Kind, task.Attempt, cause)
			if err := snsClient.Alert(ctx, subject, message); err != nil {
				log.Error("operator alert failed", map[string]interface{}{"error": err})
			}
		})
	}

	appWorkflow := workflow.NewApplicationWorkflow(
		appRepo, vacancyRepo, cvStore, machine, bus, taskQueue,
		clock.System{}, cfg.Storage.MaxUploadBytes, log,
	)
	vacancyWorkflow := workflow.NewVacancyWorkflow(vacancyRepo, clock.System{}, log)
	employeeWorkflow := workflow.NewEmployeeWorkflow(userRepo, log)

	janitor := workflow.NewFileJanitor(cvStore, log)
	taskQueue.Register(workflow.TaskKindFileDelete, janitor.HandleFileDeleteTask)

	if sesClient != nil {
		mailer := notification.NewMailer(
			appRepo, userRepo, vacancyRepo, sesClient,
			cfg.Notifications.Email.FromEmail, log,
		)
		taskQueue.Register(notification.TaskKindEmail, mailer.HandleEmailTask)

		dispatcher := notification.NewDispatcher(
			taskQueue, rdb.GetClient(),
			time.Duration(cfg.Notifications.DedupWindow)*time.Second, log,
		)
		bus.Subscribe(dispatcher)
	}

	taskQueue.Start(ctx, cfg.Queue.Consumers)
	zapLog.Info("Queue consumers started", zap.Int("consumers", cfg.Queue.Consumers))

	// --- Sweeper ---
	if cfg.Sweeper.Enabled {
		staleSweeper := sweeper.New(appRepo, appWorkflow, clock.System{}, cfg.Sweeper.StaleDays, log)
		cronRunner, err := staleSweeper.Schedule(cfg.Sweeper.Schedule)
		if err != nil {
			zapLog.Fatal("sweeper scheduling failed", zap.Error(err))
		}
		defer cronRunner.Stop()
		zapLog.Info("Sweeper scheduled", zap.String("schedule", cfg.Sweeper.Schedule))
	}

	// --- HTTP server ---
	router := api.NewRouter(
		api.Config{JWTSecret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		appWorkflow, vacancyWorkflow, employeeWorkflow, obs, log,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}

	taskQueue.Wait()
	zapLog.Info("Shutdown complete")
}
