package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerHost string
	ServerPort string

	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	RedisURL         string
	TrendingCacheTTL time.Duration

	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	KafkaURL         string
	EventsKafkaTopic string

	SQSTrendingQueueURL string
	SQSStatusQueueURL   string
	SQSStatusQueueARN   string
	SchedulerRoleARN    string
	SchedulerGroupName  string

	BackendURL          string
	BackendServiceToken string
	BackendTokenURL     string
	BackendClientID     string
	BackendClientSecret string

	JWTSecret string

	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int

	RecentWindowDays     int
	HomeRecentWindowDays int
	TrendingTopN         int
	GradientPaletteSize  int
}

// LoadEnv loads environment variables from .env files
func LoadEnv() {
	envPaths := []string{
		".env",
		"../.env",
		filepath.Join(os.Getenv("HOME"), "projects/eventdekho/ms-discovery/.env"),
	}

	for _, path := range envPaths {
		err := godotenv.Load(path)
		if err == nil {
			log.Printf("Loaded environment variables from %s", path)
			return
		}
	}

	log.Println("No .env file found, using environment variables")
}

func Load() Config {
	LoadEnv()

	log.Println("Loading configuration from environment variables")
	return Config{
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort: getEnv("SERVER_PORT", "8090"),

		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     getEnv("DB_PORT", "5432"),
		DatabaseUser:     getEnv("DB_USER", "postgres"),
		DatabasePassword: getSecret("DB_PASSWORD", ""),
		DatabaseName:     getEnv("DB_NAME", "eventdekho_discovery"),
		DatabaseSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		TrendingCacheTTL: time.Duration(getEnvInt("TRENDING_CACHE_TTL_SECONDS", 3600)) * time.Second,

		AWSRegion:          getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpoint:        getEnv("AWS_LOCAL_ENDPOINT_URL", ""),
		AWSAccessKeyID:     getSecret("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getSecret("AWS_SECRET_ACCESS_KEY", ""),

		KafkaURL:         getEnv("KAFKA_URL", ""),
		EventsKafkaTopic: getEnv("KAFKA_EVENTS_TOPIC", "dbz.eventdekho.public.events"),

		SQSTrendingQueueURL: getEnv("AWS_SQS_TRENDING_URL", ""),
		SQSStatusQueueURL:   getEnv("AWS_SQS_EVENT_STATUS_URL", ""),
		SQSStatusQueueARN:   getEnv("AWS_SQS_EVENT_STATUS_ARN", ""),
		SchedulerRoleARN:    getEnv("AWS_SCHEDULER_ROLE_ARN", ""),
		SchedulerGroupName:  getEnv("AWS_SCHEDULER_GROUP_NAME", "default"),

		BackendURL:          backendURL(getEnv("BACKEND_URL", "http://localhost"), getEnv("BACKEND_PORT", "5000")),
		BackendServiceToken: getSecret("BACKEND_SERVICE_TOKEN", ""),
		BackendTokenURL:     getEnv("BACKEND_TOKEN_URL", ""),
		BackendClientID:     getEnv("BACKEND_CLIENT_ID", "discovery-service"),
		BackendClientSecret: getSecret("BACKEND_CLIENT_SECRET", ""),

		JWTSecret: getSecret("JWT_SECRET", ""),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		MaxAge:         getEnvInt("CORS_MAX_AGE", 3600),

		RecentWindowDays:     getEnvInt("RECENT_WINDOW_DAYS", 5),
		HomeRecentWindowDays: getEnvInt("HOME_RECENT_WINDOW_DAYS", 7),
		TrendingTopN:         getEnvInt("TRENDING_TOP_N", 8),
		GradientPaletteSize:  getEnvInt("GRADIENT_PALETTE_SIZE", 5),
	}
}

// backendURL joins host and port unless the host already carries a port.
func backendURL(base, port string) string {
	base = strings.TrimRight(base, "/")
	if port == "" {
		return base
	}
	hostPart := base
	if i := strings.Index(hostPart, "://"); i >= 0 {
		hostPart = hostPart[i+3:]
	}
	if i := strings.Index(hostPart, "/"); i >= 0 {
		return base
	}
	if strings.Contains(hostPart, ":") {
		return base
	}
	return base + ":" + port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		log.Printf("Loaded env var %s: %s", key, value)
		return value
	}
	log.Printf("Env var %s not set, using fallback: %s", key, fallback)
	return fallback
}

func getSecret(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		log.Printf("Loaded secret env var %s", key)
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		log.Printf("Env var %s not set, using fallback: %d", key, fallback)
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("Env var %s has invalid integer %q, using fallback: %d", key, raw, fallback)
		return fallback
	}
	log.Printf("Loaded env var %s: %d", key, value)
	return value
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		log.Printf("Env var %s not set, using fallback: %v", key, fallback)
		return fallback
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	log.Printf("Loaded env var %s: %v", key, values)
	return values
}
