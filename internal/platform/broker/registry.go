package broker

import (
	"context"

	"swiftDropWs/internal/modules/relay/domain"
	"swiftDropWs/internal/modules/relay/infrastructure"
)

// StartKafkaConsumers launches one consumer goroutine per ingress topic.
// Each topic is consumed sequentially, which preserves per-topic ordering of
// the fan-outs derived from it.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
	topics []string,
) {
	if len(brokers) == 0 {
		// No brokers configured; skip starting consumers rather than hand
		// kafka.NewReader an empty broker list.
		return
	}
	for _, topic := range topics {
		go func(tp string) {
			consumer := NewKafkaConsumer(brokers, groupID, tp)
			consumer.Consume(ctx, func(msg *domain.Message) error {
				return registry.Dispatch(ctx, tp, msg)
			})
		}(topic)
	}
}
