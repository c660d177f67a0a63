package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
)

type ListFilter struct {
	Status   *models.RideStatus
	DriverID string
	Limit    int
}

// RideRepository methods take the transaction to run on; a nil tx reads
// through the repository's own pool.
type RideRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ride *models.Ride) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Ride, error)
	// Update writes ride only if the stored version still equals expectedVersion.
	Update(ctx context.Context, tx *gorm.DB, ride *models.Ride, expectedVersion int64) error
	List(ctx context.Context, tx *gorm.DB, filter ListFilter) ([]models.Ride, error)
}

type rideRepository struct {
	db *gorm.DB
}

func NewRideRepository(db *gorm.DB) RideRepository {
	return &rideRepository{db: db}
}

func (r *rideRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *rideRepository) Create(ctx context.Context, tx *gorm.DB, ride *models.Ride) error {
	if err := r.conn(tx).WithContext(ctx).Create(ride).Error; err != nil {
		return fmt.Errorf("create ride: %w", err)
	}
	return nil
}

func (r *rideRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Ride, error) {
	var ride models.Ride
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&ride).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ride %s: %w", id, err)
	}
	return &ride, nil
}

func (r *rideRepository) Update(ctx context.Context, tx *gorm.DB, ride *models.Ride, expectedVersion int64) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Ride{}).
		Where("id = ? AND version = ?", ride.ID, expectedVersion).
		Updates(map[string]any{
			"available_seats": ride.AvailableSeats,
			"status":          ride.Status,
			"cancel_reason":   ride.CancelReason,
			"version":         ride.Version,
			"updated_at":      ride.UpdatedAt,
			"started_at":      ride.StartedAt,
			"completed_at":    ride.CompletedAt,
			"cancelled_at":    ride.CancelledAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update ride %s: %w", ride.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (r *rideRepository) List(ctx context.Context, tx *gorm.DB, filter ListFilter) ([]models.Ride, error) {
	q := r.conn(tx).WithContext(ctx)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.DriverID != "" {
		q = q.Where("driver_id = ?", filter.DriverID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rides []models.Ride
	if err := q.Order("departure_at ASC").Limit(limit).Find(&rides).Error; err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	return rides, nil
}
