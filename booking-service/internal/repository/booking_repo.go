package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	// Update writes booking only if the stored version still equals expectedVersion.
	Update(ctx context.Context, tx *gorm.DB, booking *models.Booking, expectedVersion int64) error
	FindActive(ctx context.Context, tx *gorm.DB, passengerID, rideID string) (*models.Booking, error)
	ListByRide(ctx context.Context, tx *gorm.DB, rideID string, statuses ...models.BookingStatus) ([]models.Booking, error)
	ListByPassenger(ctx context.Context, tx *gorm.DB, passengerID string) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	err := r.conn(tx).WithContext(ctx).Create(booking).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateActive
	}
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, tx *gorm.DB, b *models.Booking, expectedVersion int64) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, expectedVersion).
		Updates(map[string]any{
			"status":         b.Status,
			"seats_reserved": b.SeatsReserved,
			"reason":         b.Reason,
			"total_amount":   b.TotalPrice.Amount,
			"total_currency": b.TotalPrice.Currency,
			"version":        b.Version,
			"updated_at":     b.UpdatedAt,
			"confirmed_at":   b.ConfirmedAt,
			"rejected_at":    b.RejectedAt,
			"cancelled_at":   b.CancelledAt,
			"completed_at":   b.CompletedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (r *bookingRepository) FindActive(ctx context.Context, tx *gorm.DB, passengerID, rideID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.conn(tx).WithContext(ctx).
		Where("passenger_id = ? AND ride_id = ? AND status IN ?", passengerID, rideID,
			[]models.BookingStatus{models.StatusPending, models.StatusConfirmed}).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) ListByRide(ctx context.Context, tx *gorm.DB, rideID string, statuses ...models.BookingStatus) ([]models.Booking, error) {
	q := r.conn(tx).WithContext(ctx).Where("ride_id = ?", rideID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var bookings []models.Booking
	if err := q.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings for ride %s: %w", rideID, err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListByPassenger(ctx context.Context, tx *gorm.DB, passengerID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.conn(tx).WithContext(ctx).
		Where("passenger_id = ?", passengerID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings for passenger %s: %w", passengerID, err)
	}
	return bookings, nil
}
