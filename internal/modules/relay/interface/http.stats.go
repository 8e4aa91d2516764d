package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"swiftDropWs/internal/modules/relay/infrastructure"
)

// NewStatsHandler exposes GET /stats with the live connection counts by role.
func NewStatsHandler(hub *infrastructure.Hub) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, hub.ConnectionStats())
	}
}
