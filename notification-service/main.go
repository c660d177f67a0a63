package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"

	"github.com/marijaa010/RideBuddy-sub000/notification-service/config"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/consumer"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/handler"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/notifier"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/service"
	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/httpserver"
	"github.com/marijaa010/RideBuddy-sub000/pkg/identity"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()
	log := logger.New(contracts.ServiceNotification, cfg.LogLevel, cfg.LogFormat)

	db, err := database.NewPostgresDB(cfg.Database, []any{&models.Notification{}})
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	mqConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Queue:    cfg.Queue,
		Bindings: []string{contracts.BindingPattern(contracts.ServiceBooking)},
	}, log)
	if err != nil {
		log.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}
	defer mqConsumer.Close()

	svc := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		database.NewTxManager(db),
		identity.NewClient(identity.Config{BaseURL: cfg.IdentityServiceURL, Timeout: cfg.RPCTimeout}),
		notifier.NewLogSender(log),
		log,
		metrics.New(prometheus.DefaultRegisterer),
	)

	e := httpserver.New(contracts.ServiceNotification, log, middleware.ErrorHandler(log))
	handler.NewNotificationHandler(svc).RegisterRoutes(e.Group("/api/v1/notifications"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := consumer.NewBookingConsumer(svc, log).Router()

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() { mqConsumer.Consume(ctx, router.Handle) })
	lifecycle.Go(func() {
		if err := httpserver.Run(ctx, e, ":"+cfg.ServerPort, log); err != nil {
			log.Error("http server failed", "error", err)
			stop()
		}
	})

	<-ctx.Done()
	log.Info("shutdown signal received")
	lifecycle.Wait()
}
