package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"curated/internal/database"
	"curated/internal/external"
	"curated/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string        `envconfig:"PORT" default:"8081"`
	GinMode        string        `envconfig:"GIN_MODE" default:"debug"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// URL публичного фронтенда, используется в success/cancel ссылках Stripe
	AppURL string `envconfig:"URL" default:"http://localhost:3000"`

	Database      database.Config
	NATS          messaging.Config
	Redis         RedisConfig
	Elasticsearch ElasticsearchConfig
	Supabase      SupabaseConfig
	Stripe        StripeConfig
	Twilio        external.TwilioConfig
	Email         external.EmailConfig
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_CACHE_TTL" default:"2m"`
}

// ElasticsearchConfig содержит конфигурацию для подключения к Elasticsearch
type ElasticsearchConfig struct {
	URL        string        `envconfig:"ELASTICSEARCH_URL" default:"http://localhost:9200"`
	Index      string        `envconfig:"ELASTICSEARCH_INDEX" default:"experiences"`
	Username   string        `envconfig:"ELASTICSEARCH_USERNAME"`
	Password   string        `envconfig:"ELASTICSEARCH_PASSWORD"`
	MaxRetries int           `envconfig:"ELASTICSEARCH_MAX_RETRIES" default:"3"`
	Timeout    time.Duration `envconfig:"ELASTICSEARCH_TIMEOUT" default:"30s"`
}

// SupabaseConfig - проект Supabase: JWT секрет для проверки токенов и Storage
type SupabaseConfig struct {
	URL            string `envconfig:"SUPABASE_URL"`
	ServiceRoleKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string `envconfig:"SUPABASE_JWT_SECRET"`
	MediaBucket    string `envconfig:"SUPABASE_MEDIA_BUCKET" default:"experience-media"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения
func Load() (*Config, error) {
	// .env нужен только для локального запуска
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет обязательные секреты для API сервера
func (c *Config) Validate() error {
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.Supabase.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	return nil
}
