package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"parking/internal/cache"
	"parking/internal/database"
	"parking/internal/external"
	"parking/internal/identity"
	"parking/internal/messaging"
	"parking/internal/service"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// STORE_DRIVER=memory запускает сервис без Postgres
	StoreDriver    string
	SweeperEnabled bool
	MetricsEnabled bool

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
	Payment       external.PaymentConfig
	Auth          identity.Config
	Hold          service.Policy
}

// Load загружает конфигурацию из .env файлов (если есть) и переменных окружения.
// Уже выставленные переменные окружения не перезаписываются.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to load env file", "file", file, "error", err)
		}
	}

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		StoreDriver:    getEnv("STORE_DRIVER", StoreDriverPostgres),
		SweeperEnabled: getEnvBool("SWEEPER_ENABLED", true),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "parking"),
			Password:           getEnv("DB_PASSWORD", "parking123"),
			DBName:             getEnv("DB_NAME", "parking"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "parking"),
			ClientID:  getEnv("NATS_CLIENT_ID", "parking-api"),
		},

		Valkey: cache.Config{
			Enabled:         getEnvBool("VALKEY_ENABLED", false),
			Addr:            getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:        getEnv("VALKEY_PASSWORD", ""),
			DB:              getEnvInt("VALKEY_DB", 0),
			AvailabilityTTL: getEnvDuration("VALKEY_AVAILABILITY_TTL", 30*time.Second),
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Payment: external.PaymentConfig{
			BaseURL:         getEnv("PAYMENT_GATEWAY_URL", "https://pay.example.com"),
			TeamSlug:        getEnv("PAYMENT_TEAM_SLUG", ""),
			Password:        getEnv("PAYMENT_PASSWORD", ""),
			Currency:        getEnv("PAYMENT_CURRENCY", "VND"),
			SuccessURL:      getEnv("PAYMENT_SUCCESS_URL", ""),
			FailURL:         getEnv("PAYMENT_FAIL_URL", ""),
			NotificationURL: getEnv("PAYMENT_NOTIFICATION_URL", ""),
			Timeout:         time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Auth: identity.Config{
			Secret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:   getEnv("JWT_ISSUER", "parking"),
			TokenTTL: getEnvDuration("JWT_TTL", 24*time.Hour),
		},

		Hold: service.Policy{
			HoldTTL:                getEnvDuration("HOLD_TTL", 10*time.Minute),
			SweepInterval:          getEnvDuration("HOLD_SWEEP_INTERVAL", 60*time.Second),
			SweepBatchSize:         getEnvInt("HOLD_SWEEP_BATCH", 500),
			ShortNoticeWindow:      getEnvDuration("CANCEL_SHORT_NOTICE", 2*time.Hour),
			CancellationFeePercent: getEnvInt("CANCEL_FEE_PERCENT", 50),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration принимает значения в формате time.ParseDuration ("90s", "10m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
