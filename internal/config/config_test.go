package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "3001" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Kafka.GroupID != "relay-ws" {
		t.Errorf("group id = %q", cfg.Kafka.GroupID)
	}
	if got := cfg.Kafka.Topics(); len(got) != 3 {
		t.Errorf("topics = %v", got)
	}
	if cfg.REST.BaseURL != "http://localhost:3000" || cfg.REST.Timeout != 5*time.Second {
		t.Errorf("rest config = %+v", cfg.REST)
	}
	if cfg.Websocket.SendBuffer != 16 || cfg.Websocket.LocationRatePerSec != 2 || cfg.Websocket.LocationBurst != 5 {
		t.Errorf("websocket config = %+v", cfg.Websocket)
	}
	if cfg.Kafka.Brokers != nil {
		t.Errorf("brokers should default to none, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRequiresJWTKeyMaterial(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_PUBLIC_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no JWT key material is configured")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")
	t.Setenv("REST_TIMEOUT", "2s")
	t.Setenv("WS_LOCATION_RATE", "0.5")
	t.Setenv("LOG_MAX_SIZE_MB", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.REST.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.REST.Timeout)
	}
	if cfg.Websocket.LocationRatePerSec != 0.5 {
		t.Errorf("location rate = %v", cfg.Websocket.LocationRatePerSec)
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("log max size = %d", cfg.Logging.MaxSizeMB)
	}
}

func TestLoadLegacyBrokerVariable(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_BROKER", "legacy:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "legacy:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestKafkaTopicsSkipsBlanks(t *testing.T) {
	t.Parallel()

	cfg := KafkaConfig{OrderTopic: "orders.events", InventoryTopic: " ", SystemTopic: ""}
	got := cfg.Topics()
	if len(got) != 1 || got[0] != "orders.events" {
		t.Errorf("topics = %v", got)
	}
}
