package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv            string
	Port              string
	LogLevel          string
	LogFormat         string
	SnapshotInterval  time.Duration
	RoomTTL           time.Duration
	MaxClientsPerRoom int
	PaymentBridgeURL  string
	PaymentTimeout    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "3000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		PaymentBridgeURL: getEnv("PAYMENT_BRIDGE_URL", ""),
	}

	var err error
	if cfg.SnapshotInterval, err = getDurationEnv("SNAPSHOT_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RoomTTL, err = getDurationEnv("ROOM_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = getDurationEnv("PAYMENT_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxClientsPerRoom, err = getIntEnv("MAX_CLIENTS_PER_ROOM", 500); err != nil {
		return nil, err
	}

	if cfg.SnapshotInterval <= 0 {
		return nil, fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}
	if cfg.RoomTTL <= 0 {
		return nil, fmt.Errorf("ROOM_TTL must be positive")
	}
	if cfg.MaxClientsPerRoom <= 0 {
		return nil, fmt.Errorf("MAX_CLIENTS_PER_ROOM must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
