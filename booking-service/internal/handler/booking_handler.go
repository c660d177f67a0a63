package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/dto"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/booking-service/internal/service"
	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// RegisterRoutes mounts the booking API. Every route needs an authenticated caller.
func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	g.Use(middleware.RequireActor)
	g.POST("", h.CreateBooking)
	g.GET("", h.ListBookings)
	g.GET("/:id", h.GetBooking)
	g.POST("/:id/cancel", h.CancelBooking)
	g.DELETE("/:id", h.CancelBooking)
	g.POST("/:id/confirm", h.ConfirmBooking)
	g.POST("/:id/reject", h.RejectBooking)
	g.POST("/:id/complete", h.CompleteBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RideID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ride_id is required")
	}
	if req.Seats <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "seats must be positive")
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), middleware.ActorID(c), req.RideID, req.Seats)
	if errors.Is(err, service.ErrReservationFailed) && booking != nil {
		// the booking exists and is final; hand it back so the client sees why
		return c.JSON(http.StatusConflict, dto.ToBookingResponse(booking))
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.svc.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	if !booking.IsParticipant(middleware.ActorID(c)) {
		return mapError(service.ErrForbidden)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

// ListBookings filters by ride_id or passenger_id and defaults to the caller's own bookings.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	filter := service.ListFilter{
		RideID:      c.QueryParam("ride_id"),
		PassengerID: c.QueryParam("passenger_id"),
	}
	if filter.RideID == "" && filter.PassengerID == "" {
		filter.PassengerID = middleware.ActorID(c)
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return mapError(err)
	}

	actor := middleware.ActorID(c)
	visible := bookings[:0]
	for _, b := range bookings {
		if b.IsParticipant(actor) {
			visible = append(visible, b)
		}
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponses(visible))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	var req dto.ReasonRequest
	// body is optional on DELETE
	_ = c.Bind(&req)

	booking, err := h.svc.CancelBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) RejectBooking(c echo.Context) error {
	var req dto.ReasonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	booking, err := h.svc.RejectBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	booking, err := h.svc.ConfirmBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	booking, err := h.svc.CompleteBooking(c.Request().Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidUser):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrRideNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateBooking),
		errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrReservationFailed),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyCancelled),
		errors.Is(err, models.ErrAlreadyCompleted),
		errors.Is(err, repository.ErrConcurrencyConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRideUnavailable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrIdentityUnavailable),
		errors.Is(err, service.ErrRideServiceUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
