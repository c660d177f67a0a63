package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
)

var (
	ErrRideNotFound = errors.New("ride not found")
	ErrForbidden    = errors.New("only the ride's driver may do this")
)

type RideService interface {
	CreateRide(ctx context.Context, p models.NewRideParams) (*models.Ride, error)
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	ListRides(ctx context.Context, filter repository.ListFilter) ([]models.Ride, error)

	GetRideInfo(ctx context.Context, id string) (*contracts.RideInfo, error)
	CheckAvailability(ctx context.Context, id string, count int) (*contracts.Availability, error)
	ReserveSeats(ctx context.Context, id string, count int) (*models.Ride, error)
	ReleaseSeats(ctx context.Context, id string, count int) (*models.Ride, error)

	StartRide(ctx context.Context, id, driverID string) (*models.Ride, error)
	CompleteRide(ctx context.Context, id, driverID string) (*models.Ride, error)
	CancelRide(ctx context.Context, id, driverID, reason string) (*models.Ride, error)
}

// OutboxRelay publishes freshly committed outbox rows.
type OutboxRelay interface {
	PublishNow(ctx context.Context, msgs []outbox.Message)
}

type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type rideService struct {
	repo    repository.RideRepository
	tx      database.TxManager
	writer  *outbox.Writer
	relay   OutboxRelay
	retry   RetryConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRideService(
	repo repository.RideRepository,
	tx database.TxManager,
	writer *outbox.Writer,
	relay OutboxRelay,
	retry RetryConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) RideService {
	if retry.MaxTries == 0 {
		retry.MaxTries = 5
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 10 * time.Millisecond
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = 250 * time.Millisecond
	}
	return &rideService{
		repo:    repo,
		tx:      tx,
		writer:  writer,
		relay:   relay,
		retry:   retry,
		logger:  logger,
		metrics: m,
	}
}

func (s *rideService) CreateRide(ctx context.Context, p models.NewRideParams) (*models.Ride, error) {
	ride, err := models.NewRide(p)
	if err != nil {
		return nil, err
	}

	var written []outbox.Message
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, ride); err != nil {
			return err
		}
		written, err = s.writer.Write(ctx, tx, ride)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}

	s.relay.PublishNow(ctx, written)
	s.logger.Info("ride created", "ride_id", ride.ID, "driver_id", ride.DriverID, "seats", ride.TotalSeats)
	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	ride, err := s.repo.FindByID(ctx, nil, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return ride, err
}

func (s *rideService) ListRides(ctx context.Context, filter repository.ListFilter) ([]models.Ride, error) {
	return s.repo.List(ctx, nil, filter)
}

func (s *rideService) GetRideInfo(ctx context.Context, id string) (*contracts.RideInfo, error) {
	ride, err := s.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	return &contracts.RideInfo{
		RideID:         ride.ID,
		DriverID:       ride.DriverID,
		AvailableSeats: ride.AvailableSeats,
		Price:          ride.PricePerSeat,
		Currency:       ride.Currency,
		IsAvailable:    ride.IsBookable(),
		AutoConfirm:    ride.AutoConfirm,
	}, nil
}

func (s *rideService) CheckAvailability(ctx context.Context, id string, count int) (*contracts.Availability, error) {
	ride, err := s.GetRide(ctx, id)
	if err != nil {
		return nil, err
	}
	return &contracts.Availability{
		IsAvailable:    ride.CanSeat(count),
		AvailableSeats: ride.AvailableSeats,
	}, nil
}

func (s *rideService) ReserveSeats(ctx context.Context, id string, count int) (*models.Ride, error) {
	ride, err := s.mutate(ctx, id, func(r *models.Ride) error { return r.Reserve(count) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("seats reserved", "ride_id", id, "count", count, "available", ride.AvailableSeats, "version", ride.Version)
	return ride, nil
}

func (s *rideService) ReleaseSeats(ctx context.Context, id string, count int) (*models.Ride, error) {
	ride, err := s.mutate(ctx, id, func(r *models.Ride) error { return r.Release(count) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("seats released", "ride_id", id, "count", count, "available", ride.AvailableSeats, "version", ride.Version)
	return ride, nil
}

func (s *rideService) StartRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	return s.mutate(ctx, id, func(r *models.Ride) error {
		if r.DriverID != driverID {
			return ErrForbidden
		}
		return r.Start()
	})
}

func (s *rideService) CompleteRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	return s.mutate(ctx, id, func(r *models.Ride) error {
		if r.DriverID != driverID {
			return ErrForbidden
		}
		return r.Complete()
	})
}

func (s *rideService) CancelRide(ctx context.Context, id, driverID, reason string) (*models.Ride, error) {
	return s.mutate(ctx, id, func(r *models.Ride) error {
		if r.DriverID != driverID {
			return ErrForbidden
		}
		return r.Cancel(reason)
	})
}

// mutate loads the ride, applies intent and writes it back guarded by the
// loaded version, all in one transaction together with the outbox rows. A lost
// version race re-runs the whole thing against fresh state; any other error
// ends it.
func (s *rideService) mutate(ctx context.Context, id string, intent func(*models.Ride) error) (*models.Ride, error) {
	var written []outbox.Message

	attempt := func() (*models.Ride, error) {
		var ride *models.Ride
		err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
			r, err := s.repo.FindByID(ctx, tx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRideNotFound
			}
			if err != nil {
				return err
			}

			loaded := r.Version
			if err := intent(r); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, tx, r, loaded); err != nil {
				return err
			}
			msgs, err := s.writer.Write(ctx, tx, r)
			if err != nil {
				return err
			}
			written, ride = msgs, r
			return nil
		})
		if errors.Is(err, repository.ErrConcurrencyConflict) {
			s.metrics.SeatConflict()
			s.logger.Debug("version conflict, retrying with fresh state", "ride_id", id)
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return ride, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialInterval
	bo.MaxInterval = s.retry.MaxInterval

	ride, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(s.retry.MaxTries),
	)
	if err != nil {
		if errors.Is(err, repository.ErrConcurrencyConflict) {
			s.logger.Warn("giving up after repeated version conflicts", "ride_id", id, "tries", s.retry.MaxTries)
		}
		return nil, err
	}

	s.relay.PublishNow(ctx, written)
	return ride, nil
}
