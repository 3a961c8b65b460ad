package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr            string `validate:"required"`
	MetricsAddr         string `validate:"required"`
	DocumentServiceAddr string `validate:"required"`

	Coordinator CoordinatorConfig
	Redis       RedisConfig
}

type CoordinatorConfig struct {
	BatchSize  int           `validate:"gte=1,lte=100"`
	BatchDelay time.Duration `validate:"gte=1000000"` // at least 1ms
	CacheTTL   time.Duration `validate:"gt=0"`
}

type RedisConfig struct {
	Addr         string `validate:"required"`
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Default configuration
func Default() *Config {
	return &Config{
		HTTPAddr:            "localhost:8080",
		MetricsAddr:         ":9100",
		DocumentServiceAddr: "localhost:50060",
		Coordinator: CoordinatorConfig{
			BatchSize:  10,
			BatchDelay: 500 * time.Millisecond,
			CacheTTL:   time.Hour,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// Load reads configuration from .env / environment variables, falling back
// to defaults for anything unset.
func Load() (*Config, error) {
	godotenv.Load(".env")
	cfg := Default()

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if addr := os.Getenv("DOCUMENT_SERVICE_ADDR"); addr != "" {
		cfg.DocumentServiceAddr = addr
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if sizeStr := os.Getenv("BATCH_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_SIZE %q: %w", sizeStr, err)
		}
		cfg.Coordinator.BatchSize = size
	}
	if delayStr := os.Getenv("BATCH_DELAY"); delayStr != "" {
		delay, err := time.ParseDuration(delayStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_DELAY %q: %w", delayStr, err)
		}
		cfg.Coordinator.BatchDelay = delay
	}
	if ttlStr := os.Getenv("CACHE_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", ttlStr, err)
		}
		cfg.Coordinator.CacheTTL = ttl
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
