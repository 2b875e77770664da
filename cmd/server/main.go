package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/auth-backend/internal/api"
	"github.com/dom/auth-backend/internal/config"
	"github.com/dom/auth-backend/internal/notify"
	"github.com/dom/auth-backend/internal/repository"
	"github.com/dom/auth-backend/internal/repository/mongo"
	"github.com/dom/auth-backend/internal/repository/postgres"
	"github.com/dom/auth-backend/internal/service"
)

// notificationQueue is implemented by both the in-process dispatcher and the
// Redis-backed asynq queue.
type notificationQueue interface {
	notify.Enqueuer
	Start()
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	repos, closeDB, err := openRepositories(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer closeDB()

	// Initialize notifications
	queue, err := newNotificationQueue(cfg, repos)
	if err != nil {
		log.Fatalf("failed to initialize notifications: %v", err)
	}
	queue.Start()

	// Initialize services
	services, err := service.NewServices(repos, notify.New(queue), cfg)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	// Initialize router
	router := api.NewRouter(services, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	if err := queue.Shutdown(ctx); err != nil {
		log.Printf("notification queue did not drain: %v", err)
	}

	log.Println("Server stopped")
}

func openRepositories(cfg *config.Config) (*repository.Repositories, func(), error) {
	if cfg.DatabaseDriver == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.NewConnection(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			_ = client.Disconnect(context.Background())
		}
		return mongo.NewRepositories(db), closeFn, nil
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return postgres.NewRepositories(db), closeFn, nil
}

func newNotificationQueue(cfg *config.Config, repos *repository.Repositories) (notificationQueue, error) {
	var mailer notify.Mailer
	if cfg.SMTPHost == "" {
		log.Printf("WARN [main] SMTP_HOST not set, emails will be logged instead of sent")
		mailer = notify.NewLogMailer(log.Default())
	} else {
		smtpMailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		mailer = smtpMailer
	}

	recorder := notify.NewDeliveryRecorder(repos.Delivery)

	if cfg.RedisURL != "" {
		return notify.NewAsynqQueue(cfg.RedisURL, mailer, recorder, cfg.NotifyWorkers, cfg.NotifyMaxRetries)
	}
	return notify.NewDispatcher(mailer, recorder, notify.DispatcherOptions{
		Workers:    cfg.NotifyWorkers,
		QueueSize:  cfg.NotifyQueueSize,
		MaxRetries: cfg.NotifyMaxRetries,
	}), nil
}
