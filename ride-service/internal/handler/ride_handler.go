package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/dto"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/models"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/repository"
	"github.com/marijaa010/RideBuddy-sub000/ride-service/internal/service"
)

type RideHandler struct {
	svc service.RideService
}

func NewRideHandler(svc service.RideService) *RideHandler {
	return &RideHandler{svc: svc}
}

func (h *RideHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListRides)
	g.GET("/:id", h.GetRide)
	g.POST("", h.CreateRide, middleware.RequireActor)
	g.POST("/:id/start", h.StartRide, middleware.RequireActor)
	g.POST("/:id/complete", h.CompleteRide, middleware.RequireActor)
	g.POST("/:id/cancel", h.CancelRide, middleware.RequireActor)
}

func (h *RideHandler) CreateRide(c echo.Context) error {
	var req dto.CreateRideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ride, err := h.svc.CreateRide(c.Request().Context(), models.NewRideParams{
		DriverID:     middleware.ActorID(c),
		Origin:       req.Origin,
		Destination:  req.Destination,
		DepartureAt:  req.DepartureAt,
		TotalSeats:   req.TotalSeats,
		PricePerSeat: req.PricePerSeat,
		Currency:     req.Currency,
		AutoConfirm:  req.AutoConfirm,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToRideResponse(ride))
}

func (h *RideHandler) GetRide(c echo.Context) error {
	ride, err := h.svc.GetRide(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToRideResponse(ride))
}

func (h *RideHandler) ListRides(c echo.Context) error {
	filter := repository.ListFilter{DriverID: c.QueryParam("driver_id")}
	if s := c.QueryParam("status"); s != "" {
		status := models.RideStatus(s)
		filter.Status = &status
	}

	rides, err := h.svc.ListRides(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	resp := make([]dto.RideResponse, len(rides))
	for i := range rides {
		resp[i] = dto.ToRideResponse(&rides[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RideHandler) StartRide(c echo.Context) error {
	ride, err := h.svc.StartRide(c.Request().Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToRideResponse(ride))
}

func (h *RideHandler) CompleteRide(c echo.Context) error {
	ride, err := h.svc.CompleteRide(c.Request().Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToRideResponse(ride))
}

func (h *RideHandler) CancelRide(c echo.Context) error {
	var req dto.CancelRideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ride, err := h.svc.CancelRide(c.Request().Context(), c.Param("id"), middleware.ActorID(c), req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, dto.ToRideResponse(ride))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrRideNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "ride not found")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidState):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrConcurrencyConflict):
		return echo.NewHTTPError(http.StatusConflict, "ride changed concurrently, retry")
	default:
		return err
	}
}
