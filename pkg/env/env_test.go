package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Setenv("RB_TEST_STRING", "")
	assert.Equal(t, "fallback", String("RB_TEST_STRING", "fallback"))

	t.Setenv("RB_TEST_STRING", "set")
	assert.Equal(t, "set", String("RB_TEST_STRING", "fallback"))
}

func TestInt(t *testing.T) {
	t.Setenv("RB_TEST_INT", "42")
	assert.Equal(t, 42, Int("RB_TEST_INT", 1))

	t.Setenv("RB_TEST_INT", "many")
	assert.Equal(t, 1, Int("RB_TEST_INT", 1))
}

func TestDuration(t *testing.T) {
	t.Setenv("RB_TEST_DURATION", "750ms")
	assert.Equal(t, 750*time.Millisecond, Duration("RB_TEST_DURATION", time.Second))

	t.Setenv("RB_TEST_DURATION", "3")
	assert.Equal(t, 3*time.Second, Duration("RB_TEST_DURATION", time.Second))

	t.Setenv("RB_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, Duration("RB_TEST_DURATION", time.Second))
}

func TestDatabase(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_HOST", "db.internal")

	cfg := Database("booking_db")

	assert.Equal(t, "booking_db", cfg.Name)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 25, cfg.MaxOpenConns)
}
