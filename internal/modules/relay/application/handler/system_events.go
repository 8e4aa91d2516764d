package handler

import (
	"context"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/application/usecase"
	"swiftDropWs/internal/modules/relay/domain"
)

// SystemEventsHandler relays platform-wide announcements from the REST layer.
type SystemEventsHandler struct {
	kafkaTopic string
	notifier   *usecase.Notifier
}

func NewSystemEventsHandler(kafkaTopic string, notifier *usecase.Notifier) *SystemEventsHandler {
	return &SystemEventsHandler{kafkaTopic: kafkaTopic, notifier: notifier}
}

func (h *SystemEventsHandler) Topic() string { return h.kafkaTopic }

func (h *SystemEventsHandler) Handle(ctx context.Context, msg *domain.Message) error {
	h.notifier.BroadcastSystemNotification(ctx, dataMap(msg.Data))
	return nil
}

var _ port.TopicHandler = (*SystemEventsHandler)(nil)
