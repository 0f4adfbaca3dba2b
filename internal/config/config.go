package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity provider modes.
const (
	ProviderCognito = "cognito"
	ProviderMemory  = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Cognito   CognitoConfig
	Reconcile ReconcileConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// CognitoConfig identifies the user pool and app client used for identities.
type CognitoConfig struct {
	Provider        string
	Region          string
	UserPoolID      string
	ClientID        string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	MemorySecret    string
	TokenTTLMinutes int
}

// ReconcileConfig drives the pending provider sync sweep.
type ReconcileConfig struct {
	Enabled         bool
	IntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "identity-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			Host:           os.Getenv("POSTGRES_HOST"),
			Port:           getEnv("POSTGRES_PORT", "5432"),
			Database:       os.Getenv("POSTGRES_DB"),
			User:           os.Getenv("POSTGRES_USER"),
			Password:       os.Getenv("POSTGRES_PASSWORD"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 30)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 0)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 60)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Cognito: CognitoConfig{
			Provider:        strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderCognito)),
			Region:          getEnv("COGNITO_REGION", os.Getenv("AWS_REGION")),
			UserPoolID:      os.Getenv("COGNITO_USER_POOL_ID"),
			ClientID:        os.Getenv("COGNITO_CLIENT_ID"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        os.Getenv("COGNITO_ENDPOINT"),
			MemorySecret:    getEnv("IDENTITY_MEMORY_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("IDENTITY_MEMORY_TOKEN_TTL_MINUTES", 60),
		},
		Reconcile: ReconcileConfig{
			Enabled:         getEnvAsBool("RECONCILE_ENABLED", true),
			IntervalSeconds: getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 300),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	switch c.Cognito.Provider {
	case ProviderMemory:
		if c.Cognito.MemorySecret == "" {
			return errors.New("IDENTITY_MEMORY_SECRET is required for the memory provider")
		}
	case ProviderCognito:
		var missing []string
		if c.Cognito.Region == "" {
			missing = append(missing, "COGNITO_REGION")
		}
		if c.Cognito.UserPoolID == "" {
			missing = append(missing, "COGNITO_USER_POOL_ID")
		}
		if c.Cognito.ClientID == "" {
			missing = append(missing, "COGNITO_CLIENT_ID")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing cognito settings: %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.Cognito.Provider)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ConnString returns the DSN, assembling it from discrete parts when no DSN is set.
// An empty result means no database is configured.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	if p.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	return u.String()
}

// Issuer returns the token issuer URL of the user pool.
func (c CognitoConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the pool's public signing keys location.
func (c CognitoConfig) JWKSURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}

// TokenTTL returns the lifetime of tokens minted by the memory provider.
func (c CognitoConfig) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// Interval returns the sweep period.
func (r ReconcileConfig) Interval() time.Duration {
	if r.IntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.IntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
