package domain

import (
	"strings"
	"time"
)

// Metadata carries string routing hints alongside a message payload.
type Metadata map[string]string

// Message is the envelope every relay event travels in, both on the Kafka
// ingress and on the WebSocket wire towards clients.
type Message struct {
	Topic      string    `json:"topic"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	ResourceID string    `json:"resourceId,omitempty"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	Data       any       `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// MergeMetadata copies non-empty extras into target, allocating it if needed.
func MergeMetadata(target Metadata, extras Metadata) Metadata {
	if len(extras) == 0 {
		return target
	}
	if target == nil {
		target = Metadata{}
	}
	for key, value := range extras {
		trimmedKey := strings.TrimSpace(key)
		trimmedValue := strings.TrimSpace(value)
		if trimmedKey == "" || trimmedValue == "" {
			continue
		}
		target[trimmedKey] = trimmedValue
	}
	return target
}
