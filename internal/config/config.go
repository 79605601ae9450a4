package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	OTLPEndpoint string

	// Bootstrap administrator. Constant for the lifetime of the process.
	BootstrapEnabled bool
	AdminUsername    string
	AdminEmail       string
	AdminPassword    string

	// Watchdog for a stuck session initialization and the bound on
	// admin existence listing.
	AuthInitTimeout  time.Duration
	AdminListTimeout time.Duration

	SessionTTL time.Duration

	LoginRateLimit float64
	LoginBurst     int
	RedisAddr      string
	RedisPassword  string

	RoutePolicyPath string
	HomePath        string
	LoginPath       string

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
}

// Load reads configuration from the environment, loading .env when present.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: skipping .env: %v", err)
	}

	return Config{
		AppName:     getenv("APP_NAME", "atrium"),
		AppVersion:  getenv("APP_VERSION", "dev"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		BootstrapEnabled: getenvBool("BOOTSTRAP_ENABLED", true),
		AdminUsername:    getenv("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		AdminEmail:       getenv("BOOTSTRAP_ADMIN_EMAIL", "admin@atrium.local"),
		AdminPassword:    getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),

		AuthInitTimeout:  getenvDuration("AUTH_INIT_TIMEOUT", 10*time.Second),
		AdminListTimeout: getenvDuration("ADMIN_LIST_TIMEOUT", 5*time.Second),

		SessionTTL: getenvDuration("SESSION_TTL", 7*24*time.Hour),

		LoginRateLimit: getenvFloat("LOGIN_RATE_LIMIT", 1),
		LoginBurst:     getenvInt("LOGIN_BURST", 5),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),

		RoutePolicyPath: getenv("ROUTE_POLICY_PATH", ""),
		HomePath:        getenv("ROUTE_HOME_PATH", "/dashboard"),
		LoginPath:       getenv("ROUTE_LOGIN_PATH", "/login"),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "atrium"),
		DBUser:            getenv("DB_USER", "atrium"),
		DBPassword:        getenv("DB_PASSWORD", ""),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 300),
	}
}

// IsProduction reports whether the process runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
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

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
