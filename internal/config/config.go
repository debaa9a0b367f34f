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

	LogLevel  string
	LogFormat string

	OTLPEndpoint      string
	OTLPProtocol      string
	OTLPEnabled       bool
	OTLPSamplingRatio float64

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

	BootstrapOwnerID string
	BootstrapOrgName string

	Storage StorageConfig
	Redis   RedisConfig
}

// StorageConfig describes how to reach the S3-compatible blob store.
type StorageConfig struct {
	Backend         string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	ArtifactTTL time.Duration
}

// Enabled reports whether a redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "formationdesk"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OTLPSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "formationdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),
		BootstrapOwnerID:  strings.TrimSpace(getenv("BOOTSTRAP_OWNER_ID", "")),
		BootstrapOrgName:  getenv("BOOTSTRAP_ORG_NAME", "Main"),
		Storage: StorageConfig{
			Backend:         strings.ToLower(getenv("STORAGE_BACKEND", "s3")),
			Region:          getenv("STORAGE_REGION", "us-east-1"),
			Endpoint:        strings.TrimSpace(getenv("STORAGE_ENDPOINT", "")),
			AccessKeyID:     strings.TrimSpace(getenv("STORAGE_ACCESS_KEY_ID", "")),
			SecretAccessKey: strings.TrimSpace(getenv("STORAGE_SECRET_ACCESS_KEY", "")),
			UsePathStyle:    getenvBool("STORAGE_USE_PATH_STYLE", false),
			PublicBaseURL:   strings.TrimRight(getenv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},
		Redis: RedisConfig{
			Addr:        strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          getenvInt("REDIS_DB", 0),
			ArtifactTTL: time.Duration(getenvInt("REDIS_ARTIFACT_TTL_SECONDS", 30)) * time.Second,
		},
	}

	cfg.OTLPEnabled = getenvBool("OTEL_ENABLED", !cfg.IsDevelopment())

	return cfg
}

// IsDevelopment reports whether the service runs on a developer machine or in tests.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
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
