//go:build api

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marijaa010/RideBuddy-sub000/pkg/env"
)

var (
	rideServiceURL    = env.String("API_RIDE_URL", "http://localhost:8081")
	bookingServiceURL = env.String("API_BOOKING_URL", "http://localhost:8082")
	// the identity service must know both users
	driverID    = env.String("API_DRIVER_ID", "driver-1")
	passengerID = env.String("API_PASSENGER_ID", "passenger-1")
)

// TestAPI_FullFlow drives a running stack: publish a ride, book it, cancel and
// watch the ledger move, then complete the ride and watch the booking follow.
func TestAPI_FullFlow(t *testing.T) {
	waitForServices(t)

	var rideID, bookingID string

	t.Run("Step1_CreateRide", func(t *testing.T) {
		resp := call(t, http.MethodPost, rideServiceURL+"/api/v1/rides", driverID, map[string]any{
			"origin":         "Novi Sad",
			"destination":    "Beograd",
			"departure_at":   time.Now().Add(48 * time.Hour).Format(time.RFC3339),
			"total_seats":    3,
			"price_per_seat": "650.00",
			"currency":       "RSD",
			"auto_confirm":   true,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var ride map[string]any
		decodeJSON(t, resp, &ride)
		rideID = ride["id"].(string)
		assert.Equal(t, float64(3), ride["available_seats"])
	})

	t.Run("Step2_BookTwoSeats", func(t *testing.T) {
		resp := call(t, http.MethodPost, bookingServiceURL+"/api/v1/bookings", passengerID, map[string]any{
			"ride_id": rideID,
			"seats":   2,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var booking map[string]any
		decodeJSON(t, resp, &booking)
		bookingID = booking["id"].(string)
		assert.Equal(t, "confirmed", booking["status"])
		assert.Equal(t, "1300", booking["total_price"])
		assert.Equal(t, float64(1), availableSeats(t, rideID))
	})

	t.Run("Step3_DuplicateBookingRefused", func(t *testing.T) {
		resp := call(t, http.MethodPost, bookingServiceURL+"/api/v1/bookings", passengerID, map[string]any{
			"ride_id": rideID,
			"seats":   1,
		})
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Step4_DriverCannotBookOwnRide", func(t *testing.T) {
		resp := call(t, http.MethodPost, bookingServiceURL+"/api/v1/bookings", driverID, map[string]any{
			"ride_id": rideID,
			"seats":   1,
		})
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Step5_CancelReleasesSeats", func(t *testing.T) {
		resp := call(t, http.MethodPost, bookingServiceURL+"/api/v1/bookings/"+bookingID+"/cancel", passengerID, map[string]any{
			"reason": "plans changed",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var booking map[string]any
		decodeJSON(t, resp, &booking)
		assert.Equal(t, "cancelled", booking["status"])
		assert.Equal(t, float64(3), availableSeats(t, rideID))
	})

	t.Run("Step6_RideCompletionCompletesBookings", func(t *testing.T) {
		resp := call(t, http.MethodPost, bookingServiceURL+"/api/v1/bookings", passengerID, map[string]any{
			"ride_id": rideID,
			"seats":   1,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var booking map[string]any
		decodeJSON(t, resp, &booking)
		bookingID = booking["id"].(string)

		for _, action := range []string{"start", "complete"} {
			resp := call(t, http.MethodPost, rideServiceURL+"/api/v1/rides/"+rideID+"/"+action, driverID, nil)
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode, action)
		}

		// RideCompleted travels through the broker
		assert.Eventually(t, func() bool {
			resp := call(t, http.MethodGet, bookingServiceURL+"/api/v1/bookings/"+bookingID, passengerID, nil)
			var b map[string]any
			decodeJSON(t, resp, &b)
			return b["status"] == "completed"
		}, 15*time.Second, 500*time.Millisecond)
	})
}

func availableSeats(t *testing.T, rideID string) any {
	resp := call(t, http.MethodGet, rideServiceURL+"/api/v1/rides/"+rideID, "", nil)
	var ride map[string]any
	decodeJSON(t, resp, &ride)
	return ride["available_seats"]
}

func waitForServices(t *testing.T) {
	t.Log("Waiting for services to be ready...")
	for i := 0; i < 30; i++ {
		if healthy(rideServiceURL) && healthy(bookingServiceURL) {
			t.Log("Services are ready")
			return
		}
		time.Sleep(time.Second)
	}
	t.Fatal("Services did not become ready in time")
}

func healthy(base string) bool {
	resp, err := http.Get(base + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func call(t *testing.T, method, url, actor string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestMain(m *testing.M) {
	fmt.Println("Starting API tests against", rideServiceURL, "and", bookingServiceURL)
	os.Exit(m.Run())
}
