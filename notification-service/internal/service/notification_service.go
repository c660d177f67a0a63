package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/notifier"
	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/identity"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type NotificationService interface {
	// HandleBookingEvent notifies every recipient of the event once per
	// messageID. An error means the delivery should be retried.
	HandleBookingEvent(ctx context.Context, messageID, eventType string, p contracts.BookingPayload) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type UserDirectory interface {
	GetUserInfo(ctx context.Context, userID string) (*contracts.UserInfo, error)
}

type notificationService struct {
	repo    repository.NotificationRepository
	tx      database.TxManager
	users   UserDirectory
	sender  notifier.Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewNotificationService(
	repo repository.NotificationRepository,
	tx database.TxManager,
	users UserDirectory,
	sender notifier.Sender,
	logger *slog.Logger,
	m *metrics.Metrics,
) NotificationService {
	return &notificationService{repo: repo, tx: tx, users: users, sender: sender, logger: logger, metrics: m}
}

func (s *notificationService) HandleBookingEvent(ctx context.Context, messageID, eventType string, p contracts.BookingPayload) error {
	if messageID == "" {
		// without a broker id, dedupe on the booking transition itself
		messageID = eventType + ":" + p.BookingID
	}

	for _, r := range notifier.Recipients(eventType, p) {
		if err := s.notify(ctx, messageID, eventType, r, p); err != nil {
			s.metrics.Notification(eventType, "failed")
			return err
		}
	}
	return nil
}

func (s *notificationService) notify(ctx context.Context, messageID, eventType string, r notifier.Recipient, p contracts.BookingPayload) error {
	log := s.logger.With("message_id", messageID, "event_type", eventType, "user_id", r.UserID, "booking_id", p.BookingID)

	user, err := s.users.GetUserInfo(ctx, r.UserID)
	if errors.Is(err, identity.ErrUserNotFound) {
		log.Warn("recipient unknown to identity service, skipping")
		s.metrics.Notification(eventType, "skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up %s: %w", r.UserID, err)
	}

	msg, ok := notifier.Render(eventType, r.Role, *user, p)
	if !ok {
		log.Warn("no template for recipient", "role", r.Role)
		return nil
	}

	n := models.NewNotification(messageID, eventType, p.BookingID, r.UserID, msg.To, msg.Subject, msg.Body)
	// the record commits only if the send succeeded
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, n); err != nil {
			return err
		}
		return s.sender.Send(ctx, msg)
	})
	switch {
	case errors.Is(err, repository.ErrAlreadySent):
		log.Debug("already notified for this delivery")
		s.metrics.Notification(eventType, "duplicate")
		return nil
	case err != nil:
		return fmt.Errorf("notify %s: %w", r.UserID, err)
	}

	s.metrics.Notification(eventType, "sent")
	log.Info("notification sent", "role", r.Role)
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
