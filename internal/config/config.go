package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Values come from the process environment,
// optionally seeded from a .env file.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	HTTP struct {
		Port          string `env:"PORT" env-default:"8080"`
		AllowedOrigin string `env:"ALLOWED_ORIGIN" env-default:"http://localhost:5173"`
		BaseURL       string `env:"BASE_URL" env-default:"http://localhost:8080"`
		UploadDir     string `env:"UPLOAD_DIR" env-default:"./uploads"`

		// Peers allowed to set X-Forwarded-For; empty trusts no one.
		TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`
	}

	Database struct {
		Driver      string `env:"DB_DRIVER" env-default:"mysql"`
		DSN         string `env:"DB_DSN" env-default:"root:root@tcp(127.0.0.1:3306)/storefront?parseTime=true"`
		AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"false"`
	}

	Razorpay struct {
		KeyID       string        `env:"RAZORPAY_KEY_ID"`
		KeySecret   string        `env:"RAZORPAY_KEY_SECRET"`
		BaseURL     string        `env:"RAZORPAY_BASE_URL" env-default:"https://api.razorpay.com/v1"`
		Timeout     time.Duration `env:"RAZORPAY_TIMEOUT" env-default:"10s"`
		MaxAttempts int           `env:"RAZORPAY_MAX_ATTEMPTS" env-default:"3"`
		Backoff     time.Duration `env:"RAZORPAY_BACKOFF" env-default:"1s"`
	}

	Auth struct {
		SessionSecret string        `env:"SESSION_SECRET"`
		SessionTTL    time.Duration `env:"SESSION_TTL" env-default:"24h"`
	}

	Orders struct {
		Prefix string `env:"ORDER_NUMBER_PREFIX" env-default:"3L"`
	}

	Outbox struct {
		Interval    time.Duration `env:"OUTBOX_INTERVAL" env-default:"5s"`
		BatchSize   int           `env:"OUTBOX_BATCH_SIZE" env-default:"20"`
		MaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" env-default:"8"`
	}

	Kafka struct {
		Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
		Topic   string   `env:"KAFKA_TOPIC" env-default:"storefront.tasks"`
		GroupID string   `env:"KAFKA_GROUP_ID" env-default:"storefront-worker"`
	}

	RateLimit struct {
		SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" env-default:"1m"`
	}
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Environment == "production" {
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if c.Razorpay.KeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_SECRET is required in production")
		}
	}
	c.HTTP.TrustedProxies = compact(c.HTTP.TrustedProxies)
	for _, p := range c.HTTP.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
			}
		}
	}
	if c.Razorpay.MaxAttempts < 1 {
		c.Razorpay.MaxAttempts = 1
	}
	return nil
}

func compact(list []string) []string {
	out := list[:0]
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// KafkaEnabled reports whether phase-2 tasks should be published instead of run in-process.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Brokers[0] != ""
}
