package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/config"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/client"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/consumer"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/handler"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/service"
	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/httpserver"
	"github.com/marijaa010/RideBuddy-sub000/pkg/identity"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()
	log := logger.New(contracts.ServiceBooking, cfg.LogLevel, cfg.LogFormat)

	db, err := database.NewPostgresDB(cfg.Database,
		[]any{&models.Booking{}, &outbox.Message{}},
		models.ActiveIndex, outbox.PendingIndex,
	)
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

	mqConsumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Queue:    cfg.Queue,
		Bindings: []string{contracts.BindingPattern(contracts.ServiceRide)},
	}, log)
	if err != nil {
		log.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}
	defer mqConsumer.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	txm := database.NewTxManager(db)
	store := outbox.NewGormStore()

	relayCfg := cfg.Outbox
	relayCfg.Service = contracts.ServiceBooking
	relay := outbox.NewRelay(store, txm, publisher, relayCfg, log, m)

	svc := service.NewBookingService(service.Deps{
		Repo:             repository.NewBookingRepository(db),
		Tx:               txm,
		Writer:           outbox.NewWriter(store),
		Relay:            relay,
		Rides:            client.NewRideClient(client.RideConfig{BaseURL: cfg.RideServiceURL, Timeout: cfg.RPCTimeout}),
		Identity:         identity.NewClient(identity.Config{BaseURL: cfg.IdentityServiceURL, Timeout: cfg.RPCTimeout}),
		Logger:           log,
		Metrics:          m,
		ConflictMaxTries: cfg.ConflictMaxRetries,
	})

	e := httpserver.New(contracts.ServiceBooking, log, middleware.ErrorHandler(log))
	handler.NewBookingHandler(svc).RegisterRoutes(e.Group("/api/v1/bookings"))
	outbox.RegisterAdminRoutes(e.Group("/admin"), relay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := consumer.NewRideConsumer(svc, log).Router()

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() { relay.Run(ctx) })
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
