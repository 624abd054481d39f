package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the single place process configuration is read and validated.
// Every component receives only the fields it needs; nothing else reads the
// environment after Load returns.
type Config struct {
	HTTPAddr    string
	DatabaseURL string

	// Push delivery gateway.
	PushGatewayURL string
	PushAPIKey     string
	PushTimeout    time.Duration
	FanoutWorkers  int

	// Dashboard event stream.
	BroadcastEventsPerSec float64
	BroadcastBurst        int
	SubscriberQueueCap    int

	// Optional Kafka export of order events. Disabled when Brokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional OTLP trace collector. Disabled when empty.
	OTLPEndpoint string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		PushGatewayURL:        os.Getenv("PUSH_GATEWAY_URL"),
		PushAPIKey:            os.Getenv("PUSH_GATEWAY_API_KEY"),
		PushTimeout:           getEnvDuration("PUSH_TIMEOUT", 5*time.Second),
		FanoutWorkers:         getEnvInt("FANOUT_WORKERS", 10),
		BroadcastEventsPerSec: getEnvFloat("BROADCAST_EVENTS_PER_SEC", 20),
		BroadcastBurst:        getEnvInt("BROADCAST_BURST", 40),
		SubscriberQueueCap:    getEnvInt("SUBSCRIBER_QUEUE_CAP", 64),
		KafkaTopic:            getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PushGatewayURL == "" {
		return nil, fmt.Errorf("PUSH_GATEWAY_URL is required")
	}
	if cfg.FanoutWorkers <= 0 {
		return nil, fmt.Errorf("FANOUT_WORKERS must be positive, got %d", cfg.FanoutWorkers)
	}
	if cfg.PushTimeout <= 0 {
		return nil, fmt.Errorf("PUSH_TIMEOUT must be positive, got %s", cfg.PushTimeout)
	}
	if cfg.BroadcastEventsPerSec <= 0 {
		return nil, fmt.Errorf("BROADCAST_EVENTS_PER_SEC must be positive, got %f", cfg.BroadcastEventsPerSec)
	}
	if cfg.BroadcastBurst <= 0 {
		return nil, fmt.Errorf("BROADCAST_BURST must be positive, got %d", cfg.BroadcastBurst)
	}
	if cfg.SubscriberQueueCap <= 0 {
		return nil, fmt.Errorf("SUBSCRIBER_QUEUE_CAP must be positive, got %d", cfg.SubscriberQueueCap)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_ORDER_TOPIC is required when KAFKA_BROKERS is set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
