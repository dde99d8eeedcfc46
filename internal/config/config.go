package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

type Config struct {
	Port string

	DatabaseURL string

	MerchantKey  string
	MerchantSalt string
	GatewayURL   string
	// FrontendURL receives the post-callback redirect.
	FrontendURL    string
	CallbackURL    string
	GatewayTimeout time.Duration
	OrderIDPrefix  string

	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RecordTTL     time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JaegerEndpoint string

	StalePendingAfter time.Duration
	MonitorInterval   time.Duration
}

func Load() (*Config, error) {
	var err error
	cfg := &Config{
		Port:          getEnv("PORT", "5000"),
		DatabaseURL:   databaseURL(),
		MerchantKey:   os.Getenv("EASEBUZZ_KEY"),
		MerchantSalt:  os.Getenv("EASEBUZZ_SALT"),
		GatewayURL:    strings.TrimRight(getEnv("EASEBUZZ_API_URL", "https://testpay.easebuzz.in"), "/"),
		FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		OrderIDPrefix: getEnv("ORDER_ID_PREFIX", "FEE"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "payment_events"),

		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
	}
	cfg.CallbackURL = getEnv("CALLBACK_URL", "http://localhost:"+cfg.Port+"/callback")

	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RecordTTL, err = getDuration("RECORD_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StalePendingAfter, err = getDuration("STALE_PENDING_AFTER", time.Hour); err != nil {
		return nil, err
	}
	if cfg.MonitorInterval, err = getDuration("MONITOR_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.MerchantKey == "" {
		errs = append(errs, errors.New("EASEBUZZ_KEY is required"))
	}
	if c.MerchantSalt == "" {
		errs = append(errs, errors.New("EASEBUZZ_SALT is required"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("MONITOR_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// LogFields lists the settings safe to log. The salt and credentials are left out.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("merchant_key", c.MerchantKey),
		zap.String("gateway_url", c.GatewayURL),
		zap.String("frontend_url", c.FrontendURL),
		zap.Duration("gateway_timeout", c.GatewayTimeout),
		zap.Bool("redis_enabled", c.RedisAddr != ""),
		zap.Strings("kafka_brokers", c.KafkaBrokers),
		zap.Bool("tracing_enabled", c.JaegerEndpoint != ""),
	}
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
		getEnv("BLUEPRINT_DB_PASSWORD", "postgres"),
		getEnv("BLUEPRINT_DB_HOST", "localhost"),
		getEnv("BLUEPRINT_DB_PORT", "5432"),
		getEnv("BLUEPRINT_DB_DATABASE", "fees"),
		getEnv("BLUEPRINT_DB_SCHEMA", "public"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitList(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
