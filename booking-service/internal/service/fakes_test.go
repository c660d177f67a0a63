package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/client"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database/dbtest"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox/outboxtest"
)

// memBookingRepo mirrors the SQL repository: version CAS on update and one
// active booking per passenger and ride.
type memBookingRepo struct {
	mu        sync.Mutex
	bookings  map[string]models.Booking
	updateErr func(b *models.Booking) error
	// findActiveErr, when set, fails the duplicate-booking lookup.
	findActiveErr error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]models.Booking)}
}

func copyBooking(b *models.Booking) models.Booking {
	c := *b
	c.ClearEvents()
	return c
}

func (r *memBookingRepo) Create(_ context.Context, _ *gorm.DB, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.RideID == b.RideID && existing.PassengerID == b.PassengerID && existing.Status.Active() {
			return repository.ErrDuplicateActive
		}
	}
	r.bookings[b.ID] = copyBooking(b)
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, _ *gorm.DB, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *memBookingRepo) Update(_ context.Context, _ *gorm.DB, b *models.Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(b); err != nil {
			return err
		}
	}
	stored, ok := r.bookings[b.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrConcurrencyConflict
	}
	r.bookings[b.ID] = copyBooking(b)
	return nil
}

func (r *memBookingRepo) FindActive(_ context.Context, _ *gorm.DB, passengerID, rideID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findActiveErr != nil {
		return nil, r.findActiveErr
	}
	for _, b := range r.bookings {
		if b.PassengerID == passengerID && b.RideID == rideID && b.Status.Active() {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memBookingRepo) ListByRide(_ context.Context, _ *gorm.DB, rideID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool {
		if b.RideID != rideID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *memBookingRepo) ListByPassenger(_ context.Context, _ *gorm.DB, passengerID string) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool { return b.PassengerID == passengerID }), nil
}

func (r *memBookingRepo) list(keep func(models.Booking) bool) []models.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memBookingRepo) all() []models.Booking {
	return r.list(func(models.Booking) bool { return true })
}

// fakeRides is a tiny ride ledger behind the RideClient interface.
type fakeRides struct {
	mu        sync.Mutex
	info      map[string]*contracts.RideInfo
	capacity  map[string]int
	reserveFn func(rideID string, count int) (*contracts.SeatResult, error)
	infoErr   error
	releases  []int
	releaseFn func(rideID string, count int) (*contracts.SeatResult, error)
}

func newFakeRides(rides ...*contracts.RideInfo) *fakeRides {
	f := &fakeRides{info: make(map[string]*contracts.RideInfo), capacity: make(map[string]int)}
	for _, r := range rides {
		f.info[r.RideID] = r
		f.capacity[r.RideID] = r.AvailableSeats
	}
	return f
}

func (f *fakeRides) GetRideInfo(_ context.Context, rideID string) (*contracts.RideInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	r, ok := f.info[rideID]
	if !ok {
		return nil, client.ErrRideNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRides) ReserveSeats(_ context.Context, rideID string, count int) (*contracts.SeatResult, error) {
	if f.reserveFn != nil {
		return f.reserveFn(rideID, count)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.info[rideID]
	if r == nil || count > r.AvailableSeats {
		return &contracts.SeatResult{Success: false, Message: "insufficient seats"}, nil
	}
	r.AvailableSeats -= count
	return &contracts.SeatResult{Success: true}, nil
}

func (f *fakeRides) ReleaseSeats(_ context.Context, rideID string, count int) (*contracts.SeatResult, error) {
	f.mu.Lock()
	f.releases = append(f.releases, count)
	f.mu.Unlock()
	if f.releaseFn != nil {
		return f.releaseFn(rideID, count)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.info[rideID]
	if r == nil || r.AvailableSeats+count > f.capacity[rideID] {
		return &contracts.SeatResult{Success: false, Message: "release exceeds capacity"}, nil
	}
	r.AvailableSeats += count
	return &contracts.SeatResult{Success: true}, nil
}

func (f *fakeRides) available(rideID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info[rideID].AvailableSeats
}

func (f *fakeRides) releaseCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.releases...)
}

type fakeIdentity struct {
	valid map[string]bool
	err   error
}

func (f *fakeIdentity) ValidateUser(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.valid[userID], nil
}

type fixture struct {
	repo      *memBookingRepo
	tx        *dbtest.TxManager
	store     *outboxtest.MemoryStore
	publisher *outboxtest.Publisher
	rides     *fakeRides
	identity  *fakeIdentity
	registry  *prometheus.Registry
	svc       BookingService
}

func newFixture(t *testing.T, rides ...*contracts.RideInfo) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemBookingRepo(),
		tx:        &dbtest.TxManager{},
		store:     outboxtest.NewMemoryStore(),
		publisher: &outboxtest.Publisher{},
		rides:     newFakeRides(rides...),
		identity:  &fakeIdentity{valid: map[string]bool{"passenger-1": true, "passenger-2": true, "driver-1": true}},
	}
	f.registry = prometheus.NewRegistry()
	m := metrics.New(f.registry)
	relay := outbox.NewRelay(f.store, f.tx, f.publisher, outbox.RelayConfig{Service: contracts.ServiceBooking}, logger.Discard(), m)
	f.svc = NewBookingService(Deps{
		Repo:     f.repo,
		Tx:       f.tx,
		Writer:   outbox.NewWriter(f.store),
		Relay:    relay,
		Rides:    f.rides,
		Identity: f.identity,
		Logger:   logger.Discard(),
		Metrics:  m,
	})
	return f
}

func rideInfo(id string, seats int, autoConfirm bool) *contracts.RideInfo {
	return &contracts.RideInfo{
		RideID:         id,
		DriverID:       "driver-1",
		AvailableSeats: seats,
		Price:          decimal.RequireFromString("650.00"),
		Currency:       "RSD",
		IsAvailable:    true,
		AutoConfirm:    autoConfirm,
	}
}
