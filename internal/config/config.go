package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Redis RedisConfig

	SMS SMSConfig

	Scheduler SchedulerConfig

	// FallbackToken guards the internal fallback trigger endpoint.
	FallbackToken string

	// AutoCheckoutConfigDir overrides the directory searched for autocheckout.yml.
	AutoCheckoutConfigDir string

	LogFile string

	// SeedDemo inserts a demo floor of rooms on an empty database.
	SeedDemo bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMSConfig struct {
	Provider string
	Endpoint string
	APIKey   string
	SenderID string
}

type SchedulerConfig struct {
	Enabled bool
	Cron    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "frontdesk"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "frontdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", false),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},

		SMS: SMSConfig{
			Provider: strings.ToLower(strings.TrimSpace(getenv("SMS_PROVIDER", "log"))),
			Endpoint: strings.TrimSpace(getenv("SMS_ENDPOINT", "")),
			APIKey:   strings.TrimSpace(getenv("SMS_API_KEY", "")),
			SenderID: strings.TrimSpace(getenv("SMS_SENDER_ID", "FRONTDESK")),
		},

		Scheduler: SchedulerConfig{
			Enabled: getenvBool("SCHEDULER_ENABLED", true),
			Cron:    strings.TrimSpace(getenv("SCHEDULER_FALLBACK_CRON", "*/30 10-11 * * *")),
		},

		FallbackToken:         strings.TrimSpace(getenv("FALLBACK_TOKEN", "")),
		AutoCheckoutConfigDir: strings.TrimSpace(getenv("AUTOCHECKOUT_CONFIG_DIR", "")),
		LogFile:               strings.TrimSpace(getenv("LOG_FILE", "")),
		SeedDemo:              getenvBool("SEED_DEMO", false),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
