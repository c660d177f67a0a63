package outbox_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marijaa010/RideBuddy-sub000/pkg/database/dbtest"
	"github.com/marijaa010/RideBuddy-sub000/pkg/logger"
	"github.com/marijaa010/RideBuddy-sub000/pkg/metrics"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox"
	"github.com/marijaa010/RideBuddy-sub000/pkg/outbox/outboxtest"
)

type relayFixture struct {
	store     *outboxtest.MemoryStore
	publisher *outboxtest.Publisher
	relay     *outbox.Relay
}

func newRelayFixture(t *testing.T, maxRetries int) *relayFixture {
	t.Helper()
	f := &relayFixture{
		store:     outboxtest.NewMemoryStore(),
		publisher: &outboxtest.Publisher{},
	}
	f.relay = outbox.NewRelay(f.store, &dbtest.TxManager{}, f.publisher, outbox.RelayConfig{
		Service:    "booking-service",
		Interval:   10 * time.Millisecond,
		BatchSize:  10,
		MaxRetries: maxRetries,
	}, logger.Discard(), metrics.New(prometheus.NewRegistry()))
	return f
}

func (f *relayFixture) write(t *testing.T, types ...string) []outbox.Message {
	t.Helper()
	agg := &aggregate{}
	for _, typ := range types {
		agg.Record(typ, "b-1", map[string]string{"booking_id": "b-1"})
	}
	msgs, err := outbox.NewWriter(f.store).Write(context.Background(), nil, agg)
	require.NoError(t, err)
	return msgs
}

func TestRelay_PublishNowMarksProcessed(t *testing.T) {
	f := newRelayFixture(t, 3)
	msgs := f.write(t, "BookingCreated", "BookingConfirmed")

	f.relay.PublishNow(context.Background(), msgs)

	published := f.publisher.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "booking-service.bookingcreated", published[0].RoutingKey)
	assert.Equal(t, "BookingCreated", published[0].Type)
	assert.Equal(t, msgs[0].ID, published[0].MessageID)
	assert.Equal(t, "booking-service.bookingconfirmed", published[1].RoutingKey)
	for _, m := range f.store.All() {
		assert.True(t, m.Processed())
	}
}

func TestRelay_FastPathFailureIsPickedUpBySweep(t *testing.T) {
	f := newRelayFixture(t, 3)
	f.publisher.FailFirst = 1
	msgs := f.write(t, "BookingCreated")

	f.relay.PublishNow(context.Background(), msgs)

	rows := f.store.All()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Processed())
	assert.Equal(t, 1, rows[0].RetryCount)
	require.NotNil(t, rows[0].Error)
	assert.Contains(t, *rows[0].Error, "broker unavailable")

	res, err := f.relay.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, outbox.SweepResult{Published: 1}, res)
	assert.True(t, f.store.All()[0].Processed())
	assert.Nil(t, f.store.All()[0].Error)
}

func TestRelay_EventualDeliveryWhileBrokerRecovers(t *testing.T) {
	f := newRelayFixture(t, 5)
	f.write(t, "BookingCreated", "BookingCancelled")
	f.publisher.SetDown(true)

	for i := 0; i < 3; i++ {
		_, err := f.relay.Sweep(context.Background())
		require.NoError(t, err)
	}
	assert.Empty(t, f.publisher.Published())

	f.publisher.SetDown(false)
	res, err := f.relay.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Published)
	published := f.publisher.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "BookingCreated", published[0].Type)
	assert.Equal(t, "BookingCancelled", published[1].Type)
}

func TestRelay_DisconnectedBrokerDoesNotSpendRetries(t *testing.T) {
	f := newRelayFixture(t, 2)
	msgs := f.write(t, "BookingCreated", "BookingConfirmed")
	f.publisher.SetDisconnected(true)

	f.relay.PublishNow(context.Background(), msgs)
	for i := 0; i < 5; i++ {
		res, err := f.relay.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, outbox.SweepResult{Deferred: 2}, res)
	}

	for _, m := range f.store.All() {
		assert.Zero(t, m.RetryCount)
		assert.Nil(t, m.Error)
	}
	failed, err := f.relay.Failed(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	// reconnected well after MaxRetries sweeps: everything still goes out, in order
	f.publisher.SetDisconnected(false)
	res, err := f.relay.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, outbox.SweepResult{Published: 2}, res)
	published := f.publisher.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "BookingCreated", published[0].Type)
	assert.Equal(t, "BookingConfirmed", published[1].Type)
}

// cancelAwareStore fails bookkeeping on a cancelled context, like gorm does.
type cancelAwareStore struct {
	*outboxtest.MemoryStore
}

func (s cancelAwareStore) MarkProcessed(ctx context.Context, tx *gorm.DB, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.MarkProcessed(ctx, tx, id, at)
}

func TestRelay_PublishNowBookkeepingSurvivesCancelledRequest(t *testing.T) {
	store := cancelAwareStore{outboxtest.NewMemoryStore()}
	publisher := &outboxtest.Publisher{}
	relay := outbox.NewRelay(store, &dbtest.TxManager{}, publisher, outbox.RelayConfig{Service: "booking-service"},
		logger.Discard(), metrics.New(prometheus.NewRegistry()))

	agg := &aggregate{}
	agg.Record("BookingCreated", "b-1", map[string]string{"booking_id": "b-1"})
	msgs, err := outbox.NewWriter(store).Write(context.Background(), nil, agg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.PublishNow(ctx, msgs)

	require.Len(t, publisher.Published(), 1)
	assert.True(t, store.All()[0].Processed())

	res, err := relay.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Published)
	assert.Len(t, publisher.Published(), 1)
}

func TestRelay_TerminalFailureStaysVisible(t *testing.T) {
	f := newRelayFixture(t, 2)
	f.write(t, "BookingCompleted")
	f.publisher.SetDown(true)

	for i := 0; i < 4; i++ {
		_, err := f.relay.Sweep(context.Background())
		require.NoError(t, err)
	}

	// two failed attempts reach the ceiling; later sweeps leave the row alone
	assert.Equal(t, 2, f.publisher.Attempts())

	failed, err := f.relay.Failed(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "BookingCompleted", failed[0].EventType)
	assert.Equal(t, 2, failed[0].RetryCount)
	require.NotNil(t, failed[0].Error)
	assert.False(t, failed[0].Processed())

	f.publisher.SetDown(false)
	res, err := f.relay.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Published)
	assert.Len(t, f.store.All(), 1)
}

func TestRelay_SweepRespectsBatchSize(t *testing.T) {
	f := newRelayFixture(t, 3)
	types := make([]string, 15)
	for i := range types {
		types[i] = "BookingCreated"
	}
	f.write(t, types...)

	first, err := f.relay.Sweep(context.Background())
	require.NoError(t, err)
	second, err := f.relay.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, first.Published)
	assert.Equal(t, 5, second.Published)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	f := newRelayFixture(t, 3)
	f.write(t, "BookingCreated")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.publisher.Published()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestAdminRoutes_ListsFailed(t *testing.T) {
	f := newRelayFixture(t, 1)
	f.write(t, "BookingCancelled")
	f.publisher.SetDown(true)
	_, err := f.relay.Sweep(context.Background())
	require.NoError(t, err)

	e := echo.New()
	outbox.RegisterAdminRoutes(e.Group("/admin"), f.relay)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/outbox/failed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_type":"BookingCancelled"`)
	assert.Contains(t, rec.Body.String(), `"error":"broker unavailable"`)
}
