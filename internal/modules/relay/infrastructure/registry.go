package infrastructure

import (
	"context"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/domain"
)

// HandlerRegistry maps ingress topics to their relay handlers.
type HandlerRegistry struct {
	handlers map[string]port.TopicHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.TopicHandler)}
}

func (r *HandlerRegistry) Register(h port.TopicHandler) {
	r.handlers[h.Topic()] = h
}

func (r *HandlerRegistry) Dispatch(ctx context.Context, topic string, msg *domain.Message) error {
	if handler, ok := r.handlers[topic]; ok {
		return handler.Handle(ctx, msg)
	}
	return nil
}
