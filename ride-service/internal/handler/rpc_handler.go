package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marijaa010/RideBuddy-sub000/pkg/contracts"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/service"
)

// RPCHandler is the seat-management surface other services call. Business
// refusals come back as 200 with success=false so callers can tell them apart
// from transport trouble.
type RPCHandler struct {
	svc service.RideService
}

func NewRPCHandler(svc service.RideService) *RPCHandler {
	return &RPCHandler{svc: svc}
}

func (h *RPCHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id", h.GetRideInfo)
	g.GET("/:id/availability", h.CheckAvailability)
	g.POST("/:id/reserve", h.ReserveSeats)
	g.POST("/:id/release", h.ReleaseSeats)
}

func (h *RPCHandler) GetRideInfo(c echo.Context) error {
	info, err := h.svc.GetRideInfo(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrRideNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ride not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (h *RPCHandler) CheckAvailability(c echo.Context) error {
	count, err := strconv.Atoi(c.QueryParam("count"))
	if err != nil || count <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "count must be a positive integer")
	}

	avail, err := h.svc.CheckAvailability(c.Request().Context(), c.Param("id"), count)
	if errors.Is(err, service.ErrRideNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ride not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, avail)
}

func (h *RPCHandler) ReserveSeats(c echo.Context) error {
	req, err := bindSeatRequest(c)
	if err != nil {
		return err
	}
	ride, err := h.svc.ReserveSeats(c.Request().Context(), c.Param("id"), req.Count)
	return seatResult(c, err, func() string {
		return fmt.Sprintf("reserved %d seat(s), %d left", req.Count, ride.AvailableSeats)
	})
}

func (h *RPCHandler) ReleaseSeats(c echo.Context) error {
	req, err := bindSeatRequest(c)
	if err != nil {
		return err
	}
	ride, err := h.svc.ReleaseSeats(c.Request().Context(), c.Param("id"), req.Count)
	return seatResult(c, err, func() string {
		return fmt.Sprintf("released %d seat(s), %d available", req.Count, ride.AvailableSeats)
	})
}

func bindSeatRequest(c echo.Context) (contracts.SeatRequest, error) {
	var req contracts.SeatRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return req, nil
}

func seatResult(c echo.Context, err error, okMessage func() string) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, contracts.SeatResult{Success: true, Message: okMessage()})
	case errors.Is(err, repository.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, contracts.SeatResult{Message: "ride changed concurrently, retry", Conflict: true})
	case errors.Is(err, service.ErrRideNotFound),
		errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrInsufficientSeats),
		errors.Is(err, models.ErrOverRelease):
		return c.JSON(http.StatusOK, contracts.SeatResult{Message: err.Error()})
	default:
		return err
	}
}
