package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.SpeedLimitKmh != 80 {
		t.Fatalf("expected default speed limit, got %v", cfg.SpeedLimitKmh)
	}
	if cfg.KafkaTopicTelemetry == "" {
		t.Fatalf("expected default telemetry topic")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SPEED_LIMIT_KMH", "60")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.SpeedLimitKmh != 60 {
		t.Fatalf("expected override speed limit")
	}
}

func TestKafkaBrokers(t *testing.T) {
	cfg := Config{KafkaBrokersCSV: "broker-1:9092, broker-2:9092 ,"}
	brokers := cfg.KafkaBrokers()
	if len(brokers) != 2 || brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %v", brokers)
	}

	if got := (Config{}).KafkaBrokers(); got != nil {
		t.Fatalf("expected nil brokers when unset, got %v", got)
	}
}
