package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/pkg/database"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/rabbitmq"
)

// Publisher hands a message to the broker and reports whether it was accepted.
type Publisher interface {
	Publish(ctx context.Context, m rabbitmq.Message) error
}

type RelayConfig struct {
	Service    string
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

const (
	defaultInterval   = 5 * time.Second
	defaultBatchSize  = 100
	defaultMaxRetries = 5
)

// Relay delivers outbox rows: PublishNow right after a commit, Sweep for
// everything that fast path missed.
type Relay struct {
	store     Store
	tx        database.TxManager
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewRelay(store Store, tx database.TxManager, publisher Publisher, cfg RelayConfig, logger *slog.Logger, m *metrics.Metrics) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Relay{
		store:     store,
		tx:        tx,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "outbox_relay"),
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type outcome struct {
	id  string
	err error
}

// PublishNow makes one best-effort attempt per message. Failures stay in the
// table for Sweep; nothing is returned because the caller's state is already committed.
func (r *Relay) PublishNow(ctx context.Context, msgs []Message) {
	if len(msgs) == 0 {
		return
	}

	outcomes := make([]outcome, 0, len(msgs))
	for _, m := range msgs {
		err := r.publish(ctx, m)
		if errors.Is(err, rabbitmq.ErrNotConnected) {
			break
		}
		outcomes = append(outcomes, outcome{id: m.ID, err: err})
	}
	if len(outcomes) == 0 {
		return
	}

	// the request context may be gone by now; the bookkeeping must still land
	detached := context.WithoutCancel(ctx)
	err := r.tx.WithinTx(detached, func(tx *gorm.DB) error {
		return r.persist(detached, tx, outcomes)
	})
	if err != nil {
		r.logger.Error("persisting fast-path outcomes failed, sweeper will retry", "error", err)
	}
}

// SweepResult summarizes one Sweep pass.
type SweepResult struct {
	Published int
	Failed    int
	// Deferred rows were not attempted because the broker connection was down.
	// Their retry count is left alone.
	Deferred int
}

// Sweep publishes a batch of pending rows and commits all outcomes at once.
func (r *Relay) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := r.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		res = SweepResult{}
		msgs, err := r.store.FetchPending(ctx, tx, r.cfg.BatchSize, r.cfg.MaxRetries)
		if err != nil {
			return err
		}

		outcomes := make([]outcome, 0, len(msgs))
		for i, m := range msgs {
			pubErr := r.publish(ctx, m)
			if errors.Is(pubErr, rabbitmq.ErrNotConnected) {
				res.Deferred = len(msgs) - i
				break
			}
			if pubErr != nil {
				res.Failed++
				if m.RetryCount+1 >= r.cfg.MaxRetries {
					r.logger.Error("outbox message exhausted its retries",
						"message_id", m.ID,
						"event_type", m.EventType,
						"aggregate_id", m.AggregateID,
						"error", pubErr,
					)
				}
			} else {
				res.Published++
			}
			outcomes = append(outcomes, outcome{id: m.ID, err: pubErr})
		}
		return r.persist(ctx, tx, outcomes)
	})
	return res, err
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize, "max_retries", r.cfg.MaxRetries)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			res, err := r.Sweep(ctx)
			if err != nil {
				r.logger.Error("outbox sweep failed", "error", err)
				continue
			}
			if res.Published+res.Failed+res.Deferred > 0 {
				r.logger.Info("outbox sweep", "published", res.Published, "failed", res.Failed, "deferred", res.Deferred)
			}
		}
	}
}

// Failed lists rows that are terminally failed, for operators.
func (r *Relay) Failed(ctx context.Context, limit int) ([]Message, error) {
	var msgs []Message
	err := r.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		msgs, err = r.store.ListFailed(ctx, tx, r.cfg.MaxRetries, limit)
		return err
	})
	return msgs, err
}

func (r *Relay) publish(ctx context.Context, m Message) error {
	err := r.publisher.Publish(ctx, rabbitmq.Message{
		RoutingKey: contracts.RoutingKey(r.cfg.Service, m.EventType),
		MessageID:  m.ID,
		Type:       m.EventType,
		Body:       m.Payload,
		Timestamp:  m.CreatedAt,
	})
	if errors.Is(err, rabbitmq.ErrNotConnected) {
		return err
	}
	if err != nil {
		r.metrics.OutboxFailed(r.cfg.Service, m.EventType)
		r.logger.Warn("outbox publish failed", "message_id", m.ID, "event_type", m.EventType, "error", err)
		return err
	}
	r.metrics.OutboxPublished(r.cfg.Service, m.EventType)
	return nil
}

func (r *Relay) persist(ctx context.Context, tx *gorm.DB, outcomes []outcome) error {
	now := r.now()
	for _, o := range outcomes {
		var err error
		if o.err == nil {
			err = r.store.MarkProcessed(ctx, tx, o.id, now)
		} else {
			err = r.store.MarkFailed(ctx, tx, o.id, o.err.Error())
		}
		if err != nil {
			return err
		}
	}
	return nil
}
