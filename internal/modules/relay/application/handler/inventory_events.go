package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/application/usecase"
	"swiftDropWs/internal/modules/relay/domain"
)

// InventoryEventsHandler relays committed inventory changes: platform-wide
// stock updates and per-owner low-stock warnings.
type InventoryEventsHandler struct {
	kafkaTopic  string
	notifier    *usecase.Notifier
	broadcaster port.Broadcaster
}

func NewInventoryEventsHandler(kafkaTopic string, notifier *usecase.Notifier, broadcaster port.Broadcaster) *InventoryEventsHandler {
	return &InventoryEventsHandler{kafkaTopic: kafkaTopic, notifier: notifier, broadcaster: broadcaster}
}

func (h *InventoryEventsHandler) Topic() string { return h.kafkaTopic }

func (h *InventoryEventsHandler) Handle(ctx context.Context, msg *domain.Message) error {
	data := dataMap(msg.Data)
	switch strings.ToLower(strings.TrimSpace(msg.Action)) {
	case "low", "low_stock":
		ownerID := metadataValue(msg, "hubOwnerId")
		if ownerID == "" {
			slog.Warn("inventory event missing hubOwnerId", slog.String("hubId", msg.ResourceID))
			return nil
		}
		h.notifier.NotifyLowInventory(ctx, ownerID, data)
	case "changed", "add", "remove", "update":
		h.broadcaster.BroadcastAll(ctx, &domain.Message{
			Topic:      "hubs." + domain.EventHubInventoryChanged,
			Entity:     "hubs",
			Action:     domain.EventHubInventoryChanged,
			ResourceID: strings.TrimSpace(msg.ResourceID),
			Metadata:   msg.Metadata,
			Data:       data,
			Timestamp:  time.Now().UTC(),
		})
	default:
		slog.Debug("inventory event ignored", slog.String("action", msg.Action))
	}
	return nil
}

var _ port.TopicHandler = (*InventoryEventsHandler)(nil)
