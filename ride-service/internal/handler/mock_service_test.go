package handler

import (
	"context"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
)

type mockRideService struct {
	createFn       func(ctx context.Context, p models.NewRideParams) (*models.Ride, error)
	getFn          func(ctx context.Context, id string) (*models.Ride, error)
	listFn         func(ctx context.Context, filter repository.ListFilter) ([]models.Ride, error)
	infoFn         func(ctx context.Context, id string) (*contracts.RideInfo, error)
	availabilityFn func(ctx context.Context, id string, count int) (*contracts.Availability, error)
	reserveFn      func(ctx context.Context, id string, count int) (*models.Ride, error)
	releaseFn      func(ctx context.Context, id string, count int) (*models.Ride, error)
	startFn        func(ctx context.Context, id, driverID string) (*models.Ride, error)
	completeFn     func(ctx context.Context, id, driverID string) (*models.Ride, error)
	cancelFn       func(ctx context.Context, id, driverID, reason string) (*models.Ride, error)
}

func (m *mockRideService) CreateRide(ctx context.Context, p models.NewRideParams) (*models.Ride, error) {
	return m.createFn(ctx, p)
}
func (m *mockRideService) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	return m.getFn(ctx, id)
}
func (m *mockRideService) ListRides(ctx context.Context, filter repository.ListFilter) ([]models.Ride, error) {
	return m.listFn(ctx, filter)
}
func (m *mockRideService) GetRideInfo(ctx context.Context, id string) (*contracts.RideInfo, error) {
	return m.infoFn(ctx, id)
}
func (m *mockRideService) CheckAvailability(ctx context.Context, id string, count int) (*contracts.Availability, error) {
	return m.availabilityFn(ctx, id, count)
}
func (m *mockRideService) ReserveSeats(ctx context.Context, id string, count int) (*models.Ride, error) {
	return m.reserveFn(ctx, id, count)
}
func (m *mockRideService) ReleaseSeats(ctx context.Context, id string, count int) (*models.Ride, error) {
	return m.releaseFn(ctx, id, count)
}
func (m *mockRideService) StartRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	return m.startFn(ctx, id, driverID)
}
func (m *mockRideService) CompleteRide(ctx context.Context, id, driverID string) (*models.Ride, error) {
	return m.completeFn(ctx, id, driverID)
}
func (m *mockRideService) CancelRide(ctx context.Context, id, driverID, reason string) (*models.Ride, error) {
	return m.cancelFn(ctx, id, driverID, reason)
}
