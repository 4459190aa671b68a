package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                       string
	AllowedOrigin              string
	DatabaseURL                string
	RedisAddr                  string
	RedisPassword              string
	RedisDB                    int
	DistributorCacheTTLSeconds int
	AuthSecret                 string
	AccessTokenTTLMinutes      int
	GCSBucket                  string
	GCSCredentialsJSON         string
	UploadDir                  string
	PublicBaseURL              string
	LogLevel                   string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("DISTRIBUTOR_CACHE_TTL_SECONDS", "60"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 60
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                       getEnv("PORT", "8080"),
		AllowedOrigin:              getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    redisDB,
		DistributorCacheTTLSeconds: cacheTTL,
		AuthSecret:                 strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:      tokenTTL,
		GCSBucket:                  strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		GCSCredentialsJSON:         os.Getenv("GCS_CREDENTIALS_JSON"),
		UploadDir:                  getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL:              strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:8080"), "/"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
