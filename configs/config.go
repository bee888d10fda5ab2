package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       int
	LogDir        string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     int
	RedisPassword string

	JWTSecret     string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CORSOrigins   string
	RateLimitMax  int
	RateLimitSpan time.Duration

	// Bootstrap admin, created on start when both are set.
	AdminUsername string
	AdminPassword string
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Stay quiet under go test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort:       envInt("APP_PORT", 3004),
		LogDir:        envString("LOG_DIR", "logs"),
		DBHost:        envString("DB_HOST", "localhost"),
		DBPort:        envInt("DB_PORT", 5432),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		RedisHost:     envString("REDIS_HOST", "localhost"),
		RedisPort:     envInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:     envString("JWT_SECRET", "secret"),
		JWTIssuer:     envString("JWT_ISSUER", "taskboard"),
		AccessTTL:     envDuration("JWT_ACCESS_TTL", 5*time.Minute),
		RefreshTTL:    envDuration("JWT_REFRESH_TTL", 24*time.Hour),
		CORSOrigins:   envString("CORS_ORIGINS", "*"),
		RateLimitMax:  envInt("RATE_LIMIT_MAX", 100),
		RateLimitSpan: envDuration("RATE_LIMIT_SPAN", time.Minute),

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go duration strings ("15m") or plain seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
