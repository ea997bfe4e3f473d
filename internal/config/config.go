package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Bootstrap BootstrapConfig
	Storage   StorageConfig
	OpenFGA   OpenFGAConfig
	Stripe    StripeConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Host                string
	Port                string
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	RequestTimeout      time.Duration
	Environment         string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	LoginMaxAttempts    int
	LoginWindow         time.Duration
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
}

type RedisConfig struct {
	URL string
}

// BootstrapConfig seeds the first operator account on startup.
type BootstrapConfig struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

type StorageConfig struct {
	Driver     string
	LocalDir   string
	PublicURL  string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

type OpenFGAConfig struct {
	Enabled              bool
	APIURL               string
	APIToken             string
	StoreID              string
	AuthorizationModelID string
}

type StripeConfig struct {
	SecretKey string
}

type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
}

func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c StripeConfig) Enabled() bool {
	return c.SecretKey != ""
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}

	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                getEnv("PORT", "3001"),
			ReadTimeout:         getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:        getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			Environment:         getEnv("ENVIRONMENT", "development"),
			SessionTTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
			SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
			LoginMaxAttempts:    getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:         getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			LocalDir:   getEnv("STORAGE_LOCAL_DIR", "uploads"),
			PublicURL:  getEnv("STORAGE_PUBLIC_URL", "/uploads"),
			S3Bucket:   getEnv("S3_BUCKET", ""),
			S3Region:   getEnv("S3_REGION", "eu-west-1"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		OpenFGA: OpenFGAConfig{
			Enabled:              getEnvBool("OPENFGA_ENABLED", false),
			APIURL:               getEnv("OPENFGA_API_URL", "http://localhost:8080"),
			APIToken:             getEnv("OPENFGA_API_TOKEN", ""),
			StoreID:              getEnv("OPENFGA_STORE_ID", ""),
			AuthorizationModelID: getEnv("OPENFGA_MODEL_ID", ""),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "stabledesk"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("config: S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.OpenFGA.Enabled && c.OpenFGA.StoreID == "" {
		return errors.New("config: OPENFGA_STORE_ID is required when OPENFGA_ENABLED=true")
	}
	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		return errors.New("config: ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
