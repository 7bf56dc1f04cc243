package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		// InitDataTTL of zero disables the expiration check.
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"0"`
	}

	Payout struct {
		BaseURL     string        `env:"PAYOUT_BASE_URL" envDefault:""`
		APIToken    string        `env:"PAYOUT_API_TOKEN" envDefault:""`
		Timeout     time.Duration `env:"PAYOUT_TIMEOUT" envDefault:"8s"`
		MaxAttempts int           `env:"PAYOUT_MAX_ATTEMPTS" envDefault:"5"`
	}

	RateLimit struct {
		// RPS bounds mutating game actions per account; taps are the hot path.
		RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
		Burst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	}
}

func Load() *Config {
	// .env is optional; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
