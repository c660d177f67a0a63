package outbox

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type failedMessage struct {
	ID          string `json:"id"`
	AggregateID string `json:"aggregate_id"`
	EventType   string `json:"event_type"`
	RetryCount  int    `json:"retry_count"`
	Error       string `json:"error"`
	CreatedAt   string `json:"created_at"`
}

// RegisterAdminRoutes exposes terminally failed rows for operators.
func RegisterAdminRoutes(g *echo.Group, r *Relay) {
	g.GET("/outbox/failed", func(c echo.Context) error {
		limit, err := strconv.Atoi(c.QueryParam("limit"))
		if err != nil || limit <= 0 {
			limit = 100
		}

		msgs, err := r.Failed(c.Request().Context(), limit)
		if err != nil {
			return err
		}

		out := make([]failedMessage, len(msgs))
		for i, m := range msgs {
			out[i] = failedMessage{
				ID:          m.ID,
				AggregateID: m.AggregateID,
				EventType:   m.EventType,
				RetryCount:  m.RetryCount,
				CreatedAt:   m.CreatedAt.Format(http.TimeFormat),
			}
			if m.Error != nil {
				out[i].Error = *m.Error
			}
		}
		return c.JSON(http.StatusOK, out)
	})
}
