package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devTokenSecret = "dev-secret-do-not-use-in-production"

type Config struct {
	Environment   string
	DBDSN         string // пустой DSN включает хранилище в памяти
	TelegramToken string // пустой токен отключает бота, уведомления идут в лог
	HTTPAddr      string

	TokenSecret     string
	ConfirmationTTL time.Duration

	ExpirySweepInterval time.Duration
	MeetingBaseURL      string
	RecurringWeeksAhead int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения и подставляет значения по умолчанию
func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:    getString("ENV", "development"),
		DBDSN:          os.Getenv("DB_DSN"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:       getString("HTTP_ADDR", ":8080"),
		TokenSecret:    os.Getenv("TOKEN_SECRET"),
		MeetingBaseURL: getString("MEETING_BASE_URL", "https://meet.jit.si"),
	}

	var err error
	if cfg.ConfirmationTTL, err = getDuration("CONFIRMATION_TTL", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ExpirySweepInterval, err = getDuration("EXPIRY_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RecurringWeeksAhead, err = getInt("RECURRING_WEEKS_AHEAD", 4); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.TokenSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("TOKEN_SECRET is required in production")
		}
		cfg.TokenSecret = devTokenSecret
	}
	if cfg.RecurringWeeksAhead < 1 {
		return nil, fmt.Errorf("RECURRING_WEEKS_AHEAD must be positive, got %d", cfg.RecurringWeeksAhead)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getString(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return value, nil
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return value, nil
}
