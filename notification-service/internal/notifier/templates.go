package notifier

import (
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
)

type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

type Recipient struct {
	UserID string
	Role   Role
}

// Recipients lists who is told about eventType. Unknown types notify nobody.
func Recipients(eventType string, p contracts.BookingPayload) []Recipient {
	passenger := Recipient{UserID: p.PassengerID, Role: RolePassenger}
	driver := Recipient{UserID: p.DriverID, Role: RoleDriver}

	switch eventType {
	case contracts.EventBookingCreated:
		return []Recipient{driver}
	case contracts.EventBookingConfirmed, contracts.EventBookingCompleted:
		return []Recipient{passenger}
	case contracts.EventBookingCancelled:
		return []Recipient{passenger, driver}
	}
	return nil
}

type template struct {
	subject string
	body    string
}

type templateKey struct {
	eventType string
	role      Role
}

var templates = map[templateKey]template{
	{contracts.EventBookingCreated, RoleDriver}: {
		subject: "New booking on your ride",
		body:    "Hi [name], a passenger booked [seats] seat(s) on ride [ride_id] for [amount] [currency].",
	},
	{contracts.EventBookingConfirmed, RolePassenger}: {
		subject: "Your booking is confirmed",
		body:    "Hi [name], your [seats] seat(s) on ride [ride_id] are confirmed. Total: [amount] [currency].",
	},
	{contracts.EventBookingCancelled, RolePassenger}: {
		subject: "Booking cancelled",
		body:    "Hi [name], your booking [booking_id] on ride [ride_id] was cancelled.[reason]",
	},
	{contracts.EventBookingCancelled, RoleDriver}: {
		subject: "A booking on your ride was cancelled",
		body:    "Hi [name], booking [booking_id] for [seats] seat(s) on ride [ride_id] was cancelled.[reason]",
	},
	{contracts.EventBookingCompleted, RolePassenger}: {
		subject: "Thanks for riding",
		body:    "Hi [name], your trip on ride [ride_id] is complete.",
	},
}

// Render fills the template for eventType and role. ok is false when there is none.
func Render(eventType string, role Role, user contracts.UserInfo, p contracts.BookingPayload) (m Message, ok bool) {
	t, ok := templates[templateKey{eventType, role}]
	if !ok {
		return Message{}, false
	}

	reason := ""
	if p.Reason != "" {
		reason = " Reason: " + p.Reason
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = "there"
	}
	values := map[string]any{
		"name":       name,
		"seats":      strconv.Itoa(p.Seats),
		"ride_id":    p.RideID,
		"booking_id": p.BookingID,
		"amount":     p.Amount.StringFixed(2),
		"currency":   p.Currency,
		"reason":     reason,
	}

	return Message{
		To:      user.Email,
		Subject: t.subject,
		Body:    fasttemplate.ExecuteString(t.body, "[", "]", values),
	}, true
}
