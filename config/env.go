package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	Redis     RedisConfig
	DB        DBConfig
	Mongo     MongoConfig
	RabbitMQ  RabbitMQConfig
	Telegram  TelegramConfig
	Auth      AuthConfig
	Admission AdmissionConfig
	Sync      SyncConfig
	Chat      ChatConfig
}

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	HealthAddr string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the postgres connection string understood by gorm's postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RabbitMQConfig struct {
	URL           string
	Queue         string
	PrefetchCount int
}

type TelegramConfig struct {
	Token       string
	NotifyToken string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RuleConfig is the limit/window pair of one admission endpoint class.
type RuleConfig struct {
	Limit  int64
	Window time.Duration
}

type AdmissionConfig struct {
	Backend  string // "memory" or "redis"
	Checkout RuleConfig
	Promo    RuleConfig
	AI       RuleConfig
}

type SyncConfig struct {
	PollInterval time.Duration
}

type ChatConfig struct {
	SessionTTL     time.Duration
	GeneratorURL   string
	GeneratorKey   string
	GeneratorModel string
	MenuItemsLimit int
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		GRPC: GRPCConfig{
			HealthAddr: getEnv("GRPC_HEALTH_ADDR", ":50051"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "dinein"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "dinein"),
			Timeout:  getEnvDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			Queue:         getEnv("RABBITMQ_NOTIFY_QUEUE", "order-notifications"),
			PrefetchCount: getEnvInt("RABBITMQ_PREFETCH_COUNT", 10),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_TOKEN", ""),
			NotifyToken: getEnv("TELEGRAM_NOTIFY_TOKEN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 12*time.Hour),
		},
		Admission: AdmissionConfig{
			Backend: getEnv("ADMISSION_BACKEND", "memory"),
			Checkout: RuleConfig{
				Limit:  int64(getEnvInt("ADMISSION_CHECKOUT_LIMIT", 5)),
				Window: getEnvDuration("ADMISSION_CHECKOUT_WINDOW", time.Minute),
			},
			Promo: RuleConfig{
				Limit:  int64(getEnvInt("ADMISSION_PROMO_LIMIT", 20)),
				Window: getEnvDuration("ADMISSION_PROMO_WINDOW", time.Minute),
			},
			AI: RuleConfig{
				Limit:  int64(getEnvInt("ADMISSION_AI_LIMIT", 10)),
				Window: getEnvDuration("ADMISSION_AI_WINDOW", time.Minute),
			},
		},
		Sync: SyncConfig{
			PollInterval: getEnvDuration("SYNC_POLL_INTERVAL", 8*time.Second),
		},
		Chat: ChatConfig{
			SessionTTL:     getEnvDuration("CHAT_SESSION_TTL", 30*time.Minute),
			GeneratorURL:   getEnv("CHAT_GENERATOR_URL", "https://api.openai.com/v1/chat/completions"),
			GeneratorKey:   getEnv("CHAT_GENERATOR_KEY", ""),
			GeneratorModel: getEnv("CHAT_GENERATOR_MODEL", "gpt-4o-mini"),
			MenuItemsLimit: getEnvInt("CHAT_MENU_ITEMS_LIMIT", 40),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
