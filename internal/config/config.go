// config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env         string
	Port        string
	MongoURI    string
	MongoDBName string
	RabbitURL   string

	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SessionCap       int
	CancelWindow     time.Duration
	ReturnWindowDays int

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() *Config {
	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "marketplace_artesanal"),
		RabbitURL:   getEnv("RABBIT_URL", "amqp://localhost"),

		JWTSecret:        getEnv("JWT_SECRET", "cambiar-en-produccion"),
		AccessTokenTTL:   getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SessionCap:       getEnvInt("SESSION_CAP", 5),
		CancelWindow:     getEnvDuration("CANCEL_WINDOW", 24*time.Hour),
		ReturnWindowDays: getEnvInt("RETURN_WINDOW_DAYS", 7),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

func (c *Config) ReturnWindow() time.Duration {
	return time.Duration(c.ReturnWindowDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
