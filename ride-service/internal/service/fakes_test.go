package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/database/dbtest"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox/outboxtest"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
)

// memRideRepo stores copies and enforces the version check like the SQL UPDATE does.
type memRideRepo struct {
	mu     sync.Mutex
	rides  map[string]models.Ride
	onLoad func()
	loads  int
}

func newMemRideRepo(rides ...*models.Ride) *memRideRepo {
	r := &memRideRepo{rides: make(map[string]models.Ride)}
	for _, ride := range rides {
		r.rides[ride.ID] = snapshot(ride)
	}
	return r
}

func snapshot(r *models.Ride) models.Ride {
	c := *r
	c.ClearEvents()
	return c
}

func (r *memRideRepo) Create(_ context.Context, _ *gorm.DB, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rides[ride.ID] = snapshot(ride)
	return nil
}

// FindByID calls onLoad after reading, so the hook can make the returned copy stale.
func (r *memRideRepo) FindByID(_ context.Context, _ *gorm.DB, id string) (*models.Ride, error) {
	r.mu.Lock()
	r.loads++
	ride, ok := r.rides[id]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.onLoad != nil {
		r.onLoad()
	}
	return &ride, nil
}

func (r *memRideRepo) Update(_ context.Context, _ *gorm.DB, ride *models.Ride, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rides[ride.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrConcurrencyConflict
	}
	r.rides[ride.ID] = snapshot(ride)
	return nil
}

func (r *memRideRepo) List(_ context.Context, _ *gorm.DB, filter repository.ListFilter) ([]models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Ride
	for _, ride := range r.rides {
		if filter.DriverID != "" && ride.DriverID != filter.DriverID {
			continue
		}
		if filter.Status != nil && ride.Status != *filter.Status {
			continue
		}
		out = append(out, ride)
	}
	return out, nil
}

func (r *memRideRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *memRideRepo) get(id string) models.Ride {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rides[id]
}

type fixture struct {
	repo      *memRideRepo
	tx        *dbtest.TxManager
	store     *outboxtest.MemoryStore
	publisher *outboxtest.Publisher
	svc       RideService
}

func newFixture(t *testing.T, maxTries uint, rides ...*models.Ride) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemRideRepo(rides...),
		tx:        &dbtest.TxManager{},
		store:     outboxtest.NewMemoryStore(),
		publisher: &outboxtest.Publisher{},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	relay := outbox.NewRelay(f.store, f.tx, f.publisher, outbox.RelayConfig{Service: "ride-service"}, logger.Discard(), m)
	f.svc = NewRideService(
		f.repo,
		f.tx,
		outbox.NewWriter(f.store),
		relay,
		RetryConfig{MaxTries: maxTries, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		logger.Discard(),
		m,
	)
	return f
}
