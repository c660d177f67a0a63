package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/client"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
)

type BookingService interface {
	CreateBooking(ctx context.Context, passengerID, rideID string, seats int) (*models.Booking, error)
	CancelBooking(ctx context.Context, id, actorID, reason string) (*models.Booking, error)
	RejectBooking(ctx context.Context, id, driverID, reason string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, id, driverID string) (*models.Booking, error)
	CompleteBooking(ctx context.Context, id, driverID string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, error)

	// CompleteRideBookings and CancelRideBookings react to ride lifecycle events.
	// Bookings already past the transition are skipped, so redelivery is harmless.
	CompleteRideBookings(ctx context.Context, rideID string) (int, error)
	CancelRideBookings(ctx context.Context, rideID, reason string) (int, error)
}

type ListFilter struct {
	RideID      string
	PassengerID string
}

type RideClient interface {
	GetRideInfo(ctx context.Context, rideID string) (*contracts.RideInfo, error)
	ReserveSeats(ctx context.Context, rideID string, count int) (*contracts.SeatResult, error)
	ReleaseSeats(ctx context.Context, rideID string, count int) (*contracts.SeatResult, error)
}

type IdentityClient interface {
	ValidateUser(ctx context.Context, userID string) (bool, error)
}

type OutboxRelay interface {
	PublishNow(ctx context.Context, msgs []outbox.Message)
}

type Deps struct {
	Repo     repository.BookingRepository
	Tx       database.TxManager
	Writer   *outbox.Writer
	Relay    OutboxRelay
	Rides    RideClient
	Identity IdentityClient
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// ConflictMaxTries bounds retries of a booking transition that lost a version race.
	ConflictMaxTries uint
}

type bookingService struct {
	repo     repository.BookingRepository
	tx       database.TxManager
	writer   *outbox.Writer
	relay    OutboxRelay
	rides    RideClient
	identity IdentityClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	maxTries uint
}

func NewBookingService(d Deps) BookingService {
	if d.ConflictMaxTries == 0 {
		d.ConflictMaxTries = 3
	}
	return &bookingService{
		repo:     d.Repo,
		tx:       d.Tx,
		writer:   d.Writer,
		relay:    d.Relay,
		rides:    d.Rides,
		identity: d.Identity,
		logger:   d.Logger,
		metrics:  d.Metrics,
		maxTries: d.ConflictMaxTries,
	}
}

// CreateBooking runs the booking saga. Nothing is written before the passenger,
// the ride and the duplicate check pass. From the moment the Pending booking is
// committed every exit leaves it in a final or driver-pending state.
func (s *bookingService) CreateBooking(ctx context.Context, passengerID, rideID string, seats int) (*models.Booking, error) {
	if seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", models.ErrInvalidArgument)
	}
	log := s.logger.With("passenger_id", passengerID, "ride_id", rideID, "seats", seats)

	valid, err := s.identity.ValidateUser(ctx, passengerID)
	if err != nil {
		log.Warn("passenger validation failed", "error", err)
		s.metrics.SagaOutcome("aborted")
		return nil, ErrIdentityUnavailable
	}
	if !valid {
		s.metrics.SagaOutcome("aborted")
		return nil, ErrInvalidUser
	}

	ride, err := s.rides.GetRideInfo(ctx, rideID)
	switch {
	case errors.Is(err, client.ErrRideNotFound):
		s.metrics.SagaOutcome("aborted")
		return nil, ErrRideNotFound
	case err != nil:
		log.Warn("ride lookup failed", "error", err)
		s.metrics.SagaOutcome("aborted")
		return nil, ErrRideServiceUnavailable
	}
	if err := checkRide(ride, passengerID, seats); err != nil {
		s.metrics.SagaOutcome("aborted")
		return nil, err
	}

	if _, err := s.repo.FindActive(ctx, nil, passengerID, rideID); err == nil {
		s.metrics.SagaOutcome("aborted")
		return nil, ErrDuplicateBooking
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Error("active booking lookup failed", "error", err)
		s.metrics.SagaOutcome("aborted")
		return nil, err
	}

	price, err := models.NewMoney(ride.Price, ride.Currency)
	if err != nil {
		log.Error("ride reported an unusable price", "price", ride.Price, "currency", ride.Currency, "error", err)
		s.metrics.SagaOutcome("aborted")
		return nil, ErrRideServiceUnavailable
	}
	booking, err := models.NewBooking(rideID, passengerID, ride.DriverID, seats, price)
	if err != nil {
		s.metrics.SagaOutcome("aborted")
		return nil, err
	}
	log = log.With("booking_id", booking.ID)

	if err := s.insert(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			s.metrics.SagaOutcome("aborted")
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("store pending booking: %w", err)
	}

	res, err := s.rides.ReserveSeats(ctx, rideID, seats)
	if err != nil || !res.Success {
		// a transport error leaves the reservation outcome unknown
		return s.compensate(ctx, booking, reservationFailure(res, err), err != nil)
	}

	loaded := booking.Version
	booking.MarkSeatsReserved()
	if ride.AutoConfirm {
		if err := booking.Confirm(); err != nil {
			return nil, s.recoverAfterReservation(ctx, booking, true, err)
		}
	}
	if err := s.update(ctx, booking, loaded); err != nil {
		return nil, s.recoverAfterReservation(ctx, booking, true, err)
	}

	s.metrics.SagaOutcome(string(booking.Status))
	log.Info("booking created", "status", booking.Status, "total", booking.TotalPrice.String())
	return booking, nil
}

func checkRide(ride *contracts.RideInfo, passengerID string, seats int) error {
	switch {
	case !ride.IsAvailable:
		return ErrRideUnavailable
	case ride.DriverID == passengerID:
		return fmt.Errorf("%w: drivers cannot book their own ride", ErrForbidden)
	case seats > ride.AvailableSeats:
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientSeats, seats, ride.AvailableSeats)
	}
	return nil
}

func reservationFailure(res *contracts.SeatResult, err error) string {
	switch {
	case err != nil:
		return "ride service did not answer"
	case res.Conflict:
		return "ride changed concurrently"
	case res.Message != "":
		return res.Message
	default:
		return "seats not available"
	}
}

// compensate rejects the committed Pending booking after the ledger refused
// (or never answered) the reservation. The reservation is not retried.
func (s *bookingService) compensate(ctx context.Context, b *models.Booking, reason string, outcomeUnknown bool) (*models.Booking, error) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With("booking_id", b.ID, "ride_id", b.RideID)

	loaded := b.Version
	if err := b.Reject("seat reservation failed: " + reason); err != nil {
		return nil, s.recoverAfterReservation(ctx, b, outcomeUnknown, err)
	}
	if err := s.update(ctx, b, loaded); err != nil {
		return nil, s.recoverAfterReservation(ctx, b, outcomeUnknown, err)
	}

	s.metrics.SagaOutcome(string(models.StatusRejected))
	log.Info("booking rejected, seat reservation failed", "reason", reason)
	return b, ErrReservationFailed
}

// recoverAfterReservation handles a failure to persist the saga outcome. It
// releases seats unless the ledger definitely holds none for this booking,
// then tries to reject the stored Pending row in a fresh transaction.
func (s *bookingService) recoverAfterReservation(ctx context.Context, b *models.Booking, release bool, cause error) error {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With("booking_id", b.ID, "ride_id", b.RideID)
	log.Error("persisting booking outcome failed", "error", cause)

	if release {
		if res, err := s.rides.ReleaseSeats(ctx, b.RideID, b.Seats); err != nil {
			log.Error("seat release after failed booking failed", "error", err)
		} else if !res.Success {
			log.Warn("seat release after failed booking refused by ledger", "message", res.Message)
		}
	}

	_, err := s.transition(ctx, b.ID, func(fresh *models.Booking) error {
		return fresh.Reject("booking failed")
	})
	if err != nil {
		log.Error("could not reject booking after failure", "error", err)
	}

	s.metrics.SagaOutcome("failed")
	return ErrBookingFailed
}

func (s *bookingService) CancelBooking(ctx context.Context, id, actorID, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, id, func(b *models.Booking) error {
		if !b.IsParticipant(actorID) {
			return ErrForbidden
		}
		return b.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}
	s.releaseSeats(ctx, b)
	s.logger.Info("booking cancelled", "booking_id", b.ID, "ride_id", b.RideID, "by", actorID)
	return b, nil
}

func (s *bookingService) RejectBooking(ctx context.Context, id, driverID, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, id, func(b *models.Booking) error {
		if b.DriverID != driverID {
			return ErrForbidden
		}
		return b.Reject(reason)
	})
	if err != nil {
		return nil, err
	}
	s.releaseSeats(ctx, b)
	s.logger.Info("booking rejected by driver", "booking_id", b.ID, "ride_id", b.RideID)
	return b, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, id, driverID string) (*models.Booking, error) {
	return s.transition(ctx, id, func(b *models.Booking) error {
		if b.DriverID != driverID {
			return ErrForbidden
		}
		if !b.SeatsReserved {
			return fmt.Errorf("%w: seats are not reserved yet", models.ErrInvalidState)
		}
		return b.Confirm()
	})
}

func (s *bookingService) CompleteBooking(ctx context.Context, id, driverID string) (*models.Booking, error) {
	return s.transition(ctx, id, func(b *models.Booking) error {
		if b.DriverID != driverID {
			return ErrForbidden
		}
		return b.Complete()
	})
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, nil, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (s *bookingService) ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, error) {
	switch {
	case filter.RideID != "":
		return s.repo.ListByRide(ctx, nil, filter.RideID)
	case filter.PassengerID != "":
		return s.repo.ListByPassenger(ctx, nil, filter.PassengerID)
	default:
		return nil, fmt.Errorf("%w: ride or passenger filter is required", models.ErrInvalidArgument)
	}
}

func (s *bookingService) CompleteRideBookings(ctx context.Context, rideID string) (int, error) {
	return s.forRide(ctx, rideID, []models.BookingStatus{models.StatusConfirmed}, func(b *models.Booking) error {
		return b.Complete()
	})
}

// CancelRideBookings releases no seats: a cancelled ride sells none.
func (s *bookingService) CancelRideBookings(ctx context.Context, rideID, reason string) (int, error) {
	active := []models.BookingStatus{models.StatusPending, models.StatusConfirmed}
	return s.forRide(ctx, rideID, active, func(b *models.Booking) error {
		return b.Cancel("ride cancelled: " + reason)
	})
}

// forRide applies intent to every matching booking, each in its own
// transaction. State-machine refusals mean another delivery got there first.
func (s *bookingService) forRide(ctx context.Context, rideID string, statuses []models.BookingStatus, intent func(*models.Booking) error) (int, error) {
	bookings, err := s.repo.ListByRide(ctx, nil, rideID, statuses...)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, b := range bookings {
		_, err := s.transition(ctx, b.ID, intent)
		switch {
		case err == nil:
			changed++
		case errors.Is(err, models.ErrInvalidState),
			errors.Is(err, models.ErrAlreadyCancelled),
			errors.Is(err, models.ErrAlreadyCompleted):
			s.logger.Debug("booking already past transition", "booking_id", b.ID, "error", err)
		default:
			return changed, fmt.Errorf("booking %s: %w", b.ID, err)
		}
	}
	return changed, nil
}

// releaseSeats gives the seats back after a committed cancel or reject. A
// failure is logged and the booking stays as it is.
func (s *bookingService) releaseSeats(ctx context.Context, b *models.Booking) {
	if !b.SeatsReserved {
		return
	}
	res, err := s.rides.ReleaseSeats(context.WithoutCancel(ctx), b.RideID, b.Seats)
	switch {
	case err != nil:
		s.logger.Error("seat release failed after booking left active state",
			"booking_id", b.ID, "ride_id", b.RideID, "seats", b.Seats, "error", err)
	case !res.Success:
		s.logger.Error("ledger refused seat release",
			"booking_id", b.ID, "ride_id", b.RideID, "seats", b.Seats, "message", res.Message)
	}
}

func (s *bookingService) insert(ctx context.Context, b *models.Booking) error {
	var written []outbox.Message
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, b); err != nil {
			return err
		}
		var err error
		written, err = s.writer.Write(ctx, tx, b)
		return err
	})
	if err != nil {
		return err
	}
	s.relay.PublishNow(ctx, written)
	return nil
}

func (s *bookingService) update(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	var written []outbox.Message
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, b, expectedVersion); err != nil {
			return err
		}
		var err error
		written, err = s.writer.Write(ctx, tx, b)
		return err
	})
	if err != nil {
		return err
	}
	s.relay.PublishNow(ctx, written)
	return nil
}

// transition loads the booking, applies intent and writes it back under the
// loaded version. A lost version race re-applies intent to fresh state.
func (s *bookingService) transition(ctx context.Context, id string, intent func(*models.Booking) error) (*models.Booking, error) {
	var written []outbox.Message

	attempt := func() (*models.Booking, error) {
		var out *models.Booking
		err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
			b, err := s.repo.FindByID(ctx, tx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			if err != nil {
				return err
			}

			loaded := b.Version
			if err := intent(b); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, tx, b, loaded); err != nil {
				return err
			}
			msgs, err := s.writer.Write(ctx, tx, b)
			if err != nil {
				return err
			}
			written, out = msgs, b
			return nil
		})
		if errors.Is(err, repository.ErrConcurrencyConflict) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return out, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond

	b, err := backoff.Retry(ctx, attempt, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return nil, err
	}
	s.relay.PublishNow(ctx, written)
	return b, nil
}
