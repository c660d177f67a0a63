package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/httpserver"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/config"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/handler"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(contracts.ServiceRide, cfg.LogLevel, cfg.LogFormat)

	db, err := database.NewPostgresDB(cfg.Database, []any{&models.Ride{}, &outbox.Message{}}, outbox.PendingIndex)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, log)
	if err != nil {
		log.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	txm := database.NewTxManager(db)
	store := outbox.NewGormStore()

	relayCfg := cfg.Outbox
	relayCfg.Service = contracts.ServiceRide
	relay := outbox.NewRelay(store, txm, publisher, relayCfg, log, m)

	svc := service.NewRideService(
		repository.NewRideRepository(db),
		txm,
		outbox.NewWriter(store),
		relay,
		service.RetryConfig{MaxTries: cfg.ConflictMaxRetries},
		log,
		m,
	)

	e := httpserver.New(contracts.ServiceRide, log, middleware.ErrorHandler(log))
	handler.NewRideHandler(svc).RegisterRoutes(e.Group("/api/v1/rides"))
	handler.NewRPCHandler(svc).RegisterRoutes(e.Group("/rpc/v1/rides"))
	outbox.RegisterAdminRoutes(e.Group("/admin"), relay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() { relay.Run(ctx) })
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
