package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Kafka     KafkaConfig
	REST      RESTConfig
	Websocket WebsocketConfig
}

type ServerConfig struct {
	Port string
}

type LoggingConfig struct {
	Level      string
	Format     string
	Directory  string
	MaxSizeMB  int
	MaxBackups int
}

type SecurityConfig struct {
	// JWTSecret verifies HS256 handshake tokens minted by the auth service.
	JWTSecret string
	// JWTPublicKey switches verification to RS256 when set (PEM).
	JWTPublicKey string
	// ServiceToken authorizes the REST layer on the internal notify endpoint
	// and this service against the REST layer's internal endpoints.
	ServiceToken string
}

type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	OrderTopic     string
	InventoryTopic string
	SystemTopic    string
}

// Topics returns every ingress topic consumers should subscribe to.
func (c KafkaConfig) Topics() []string {
	topics := make([]string, 0, 3)
	for _, t := range []string{c.OrderTopic, c.InventoryTopic, c.SystemTopic} {
		if strings.TrimSpace(t) != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

type RESTConfig struct {
	BaseURL           string
	Timeout           time.Duration
	OwnershipCacheTTL time.Duration
}

type WebsocketConfig struct {
	SendBuffer         int
	LocationRatePerSec float64
	LocationBurst      int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envOr("PORT", "3001"),
		},
		Logging: LoggingConfig{
			Level:      envOr("LOG_LEVEL", "info"),
			Format:     envOr("LOG_FORMAT", "text"),
			Directory:  os.Getenv("LOG_DIRECTORY"),
			MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
		},
		Security: SecurityConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTPublicKey: os.Getenv("JWT_PUBLIC_KEY"),
			ServiceToken: os.Getenv("SERVICE_TOKEN"),
		},
		Kafka: KafkaConfig{
			Brokers:        envList("KAFKA_BROKERS", "KAFKA_BROKER"),
			GroupID:        envOr("KAFKA_GROUP_ID", "relay-ws"),
			OrderTopic:     envOr("KAFKA_ORDER_TOPIC", "orders.events"),
			InventoryTopic: envOr("KAFKA_INVENTORY_TOPIC", "inventory.events"),
			SystemTopic:    envOr("KAFKA_SYSTEM_TOPIC", "system.events"),
		},
		REST: RESTConfig{
			BaseURL:           envOr("REST_BASE_URL", "http://localhost:3000"),
			Timeout:           envDuration("REST_TIMEOUT", 5*time.Second),
			OwnershipCacheTTL: envDuration("OWNERSHIP_CACHE_TTL", 30*time.Second),
		},
		Websocket: WebsocketConfig{
			SendBuffer:         envInt("WS_SEND_BUFFER", 16),
			LocationRatePerSec: envFloat("WS_LOCATION_RATE", 2),
			LocationBurst:      envInt("WS_LOCATION_BURST", 5),
		},
	}

	if cfg.Security.JWTSecret == "" && cfg.Security.JWTPublicKey == "" {
		return nil, fmt.Errorf("config: JWT_SECRET or JWT_PUBLIC_KEY must be set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// envList reads the first set key and splits it on commas.
func envList(keys ...string) []string {
	for _, key := range keys {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		if len(values) > 0 {
			return values
		}
	}
	return nil
}
