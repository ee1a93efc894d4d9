package config

import (
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
	HTTPAddr    string
	PublicURL   string

	CookieSecure bool
	// AllowTenantHeader lets X-Tenant-ID select the tenant without a
	// Microsoft session. Never enabled in production.
	AllowTenantHeader bool

	LogLevel  string
	LogFormat string

	// OTLPEndpoint enables trace and metric export when set.
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelSamplingRatio float64

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
	DBAutoMigrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CatalogFile  string
	CatalogWatch bool

	OptimizerParallelThreshold int
	OptimizerMaxUsers          int

	LLM LLMConfig

	Microsoft MicrosoftConfig

	TokenEncryptionKey string

	SummaryRateLimit  int
	SummaryRateWindow time.Duration

	LoginHistoryRetention time.Duration
}

type LLMConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURL  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"
	if !cookieSecure {
		cookieSecure = getenvBool("COOKIE_SECURE", false)
	}
	allowTenantHeader := environment != "production" && getenvBool("ALLOW_TENANT_HEADER", true)

	publicURL := strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:8080"), "/")

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "seatwise"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		PublicURL:         publicURL,
		CookieSecure:      cookieSecure,
		AllowTenantHeader: allowTenantHeader,

		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
		OTLPProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "seatwise"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		CatalogFile:  strings.TrimSpace(getenv("CATALOG_FILE", "")),
		CatalogWatch: getenvBool("CATALOG_WATCH", true),

		OptimizerParallelThreshold: getenvInt("OPTIMIZER_PARALLEL_THRESHOLD", 2000),
		OptimizerMaxUsers:          getenvInt("OPTIMIZER_MAX_USERS", 100000),

		LLM: LLMConfig{
			BaseURL:   strings.TrimRight(getenv("LLM_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
			APIKey:    strings.TrimSpace(getenv("LLM_API_KEY", "")),
			Model:     getenv("LLM_MODEL", "anthropic/claude-sonnet-4"),
			MaxTokens: getenvInt("LLM_MAX_TOKENS", 4096),
			Timeout:   getenvDuration("LLM_TIMEOUT", 2*time.Minute),
		},

		Microsoft: MicrosoftConfig{
			ClientID:     strings.TrimSpace(getenv("MICROSOFT_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("MICROSOFT_CLIENT_SECRET", "")),
			TenantID:     getenv("MICROSOFT_TENANT_ID", "common"),
			RedirectURL:  getenv("MICROSOFT_REDIRECT_URL", publicURL+"/auth/microsoft/callback"),
		},

		TokenEncryptionKey: strings.TrimSpace(getenv("TOKEN_ENCRYPTION_KEY", "")),

		SummaryRateLimit:  getenvInt("SUMMARY_RATE_LIMIT", 10),
		SummaryRateWindow: getenvDuration("SUMMARY_RATE_WINDOW", time.Hour),

		LoginHistoryRetention: getenvDuration("LOGIN_HISTORY_RETENTION", 180*24*time.Hour),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) MicrosoftEnabled() bool {
	return c.Microsoft.ClientID != "" && c.Microsoft.ClientSecret != ""
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
