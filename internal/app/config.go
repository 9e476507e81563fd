package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at process start and handed to each component. Nothing
// reads the environment after Load returns.
type Config struct {
	DatabaseURL string
	RedisURL    string

	SecretKey      string
	Algorithm      string
	AccessTokenTTL time.Duration

	MaxQueriesPerDay int
	QueryResetHour   int

	LLMAPIKey  string
	LLMModel   string
	LLMBaseURL string

	Port            string
	AppEnv          string
	SentryDSN       string
	CORSAllowOrigin string

	CronSecret        string
	QueryLogRetention time.Duration
	CleanupBatchSize  int

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
}

func Load() (Config, error) {
	secretKey, err := mustEnv("SECRET_KEY")
	if err != nil {
		return Config{}, err
	}
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	llmAPIKey, err := mustEnv("OPENAI_API_KEY")
	if err != nil {
		return Config{}, err
	}

	resetHour, err := envHourOrDefault("QUERY_RESET_HOUR", 0)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DatabaseURL: databaseURL,
		RedisURL:    envOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		SecretKey:      secretKey,
		Algorithm:      envOrDefault("ALGORITHM", "HS256"),
		AccessTokenTTL: envMinutesOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30),

		MaxQueriesPerDay: envIntOrDefault("MAX_QUERIES_PER_DAY", 10),
		QueryResetHour:   resetHour,

		LLMAPIKey:  llmAPIKey,
		LLMModel:   envOrDefault("LLM_MODEL", "gpt-3.5-turbo"),
		LLMBaseURL: os.Getenv("LLM_BASE_URL"),

		Port:            envOrDefault("PORT", "8080"),
		AppEnv:          envOrDefault("APP_ENV", "development"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		CORSAllowOrigin: envOrDefault("CORS_ALLOW_ORIGIN", "*"),

		CronSecret:        os.Getenv("CRON_SECRET"),
		QueryLogRetention: envDaysOrDefault("QUERY_LOG_RETENTION_DAYS", 90),
		CleanupBatchSize:  envIntOrDefault("QUERY_LOG_CLEANUP_BATCH_SIZE", 500),

		LoginRateLimitMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),

		DBMaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
	}, nil
}

func mustEnv(name string) (string, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("missing required env: %s", name)
	}
	return value, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envHourOrDefault(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 || parsed > 23 {
		return 0, fmt.Errorf("%s must be an hour between 0 and 23", name)
	}
	return parsed, nil
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func envDaysOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * 24 * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
