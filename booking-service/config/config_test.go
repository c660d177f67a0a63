package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "RPC_TIMEOUT", "RIDE_SERVICE_URL", "DB_NAME", "RABBITMQ_QUEUE"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8082", cfg.ServerPort)
	assert.Equal(t, 3*time.Second, cfg.RPCTimeout)
	assert.Equal(t, "http://localhost:8081", cfg.RideServiceURL)
	assert.Equal(t, "booking-service.ride-events", cfg.Queue)
	assert.Contains(t, cfg.Database.DSN(), "dbname=booking_db")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RPC_TIMEOUT", "1500ms")
	t.Setenv("IDENTITY_SERVICE_URL", "http://identity:8080")
	t.Setenv("OUTBOX_BATCH_SIZE", "20")

	cfg := Load()

	assert.Equal(t, 1500*time.Millisecond, cfg.RPCTimeout)
	assert.Equal(t, "http://identity:8080", cfg.IdentityServiceURL)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
}
