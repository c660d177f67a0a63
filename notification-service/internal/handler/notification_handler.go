package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marijaa010/RideBuddy-sub000/notification-service/internal/service"
	"github.com/marijaa010/RideBuddy-sub000/pkg/middleware"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListMine, middleware.RequireActor)
}

// ListMine returns the caller's notifications, newest first.
func (h *NotificationHandler) ListMine(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	list, err := h.svc.ListForUser(c.Request().Context(), middleware.ActorID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
