package handler

import (
	"context"
	"log/slog"
	"strings"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/application/usecase"
	"swiftDropWs/internal/modules/relay/domain"
)

// OrderEventsHandler relays committed order changes from the REST layer's
// Kafka stream to order watchers, customers and couriers.
type OrderEventsHandler struct {
	kafkaTopic string
	notifier   *usecase.Notifier
}

func NewOrderEventsHandler(kafkaTopic string, notifier *usecase.Notifier) *OrderEventsHandler {
	return &OrderEventsHandler{kafkaTopic: kafkaTopic, notifier: notifier}
}

func (h *OrderEventsHandler) Topic() string { return h.kafkaTopic }

func (h *OrderEventsHandler) Handle(ctx context.Context, msg *domain.Message) error {
	orderID := strings.TrimSpace(msg.ResourceID)
	data := dataMap(msg.Data)

	switch strings.ToLower(strings.TrimSpace(msg.Action)) {
	case "assigned":
		courierID := metadataValue(msg, "courierId")
		if courierID == "" {
			slog.Warn("order event missing courierId", slog.String("orderId", orderID))
			return nil
		}
		h.notifier.NotifyCourierAssignment(ctx, courierID, data)
	case "created", "updated", "status_changed", "cancelled", "delivered":
		if orderID == "" {
			slog.Warn("order event missing order id", slog.String("action", msg.Action))
			return nil
		}
		h.notifier.NotifyOrderUpdate(ctx, metadataValue(msg, "customerId"), orderID, data)
	default:
		slog.Debug("order event ignored", slog.String("action", msg.Action), slog.String("orderId", orderID))
	}
	return nil
}

func metadataValue(msg *domain.Message, key string) string {
	if msg.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(msg.Metadata[key])
}

func dataMap(data any) map[string]any {
	if m, ok := data.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

var _ port.TopicHandler = (*OrderEventsHandler)(nil)
