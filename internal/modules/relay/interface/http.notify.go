package transport

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"swiftDropWs/internal/modules/relay/application/usecase"
	"swiftDropWs/internal/shared/auth"
)

// notifyRequest is the body the REST layer posts after committing a write it
// wants announced over the relay.
type notifyRequest struct {
	Type       string         `json:"type"`
	CustomerID string         `json:"customerId,omitempty"`
	CourierID  string         `json:"courierId,omitempty"`
	HubOwnerID string         `json:"hubOwnerId,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
	Data       map[string]any `json:"data"`
}

// NewNotifyHandler exposes POST /internal/notify for the REST layer,
// protected by the shared service token.
func NewNotifyHandler(notifier *usecase.Notifier, serviceToken string) func(echo.Context) error {
	return func(c echo.Context) error {
		token := auth.ExtractBearerToken(c.Request())
		if serviceToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(serviceToken)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid service token")
		}

		var req notifyRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}

		ctx := c.Request().Context()
		switch strings.ToLower(strings.TrimSpace(req.Type)) {
		case "order_update":
			if strings.TrimSpace(req.OrderID) == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing orderId")
			}
			notifier.NotifyOrderUpdate(ctx, req.CustomerID, req.OrderID, req.Data)
		case "delivery_assigned":
			if strings.TrimSpace(req.CourierID) == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing courierId")
			}
			notifier.NotifyCourierAssignment(ctx, req.CourierID, req.Data)
		case "low_inventory":
			if strings.TrimSpace(req.HubOwnerID) == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing hubOwnerId")
			}
			notifier.NotifyLowInventory(ctx, req.HubOwnerID, req.Data)
		case "system":
			notifier.BroadcastSystemNotification(ctx, req.Data)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "unknown notification type")
		}

		slog.Info("notify accepted", slog.String("type", req.Type), slog.String("orderId", req.OrderID))
		return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
