package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Catalog backends.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Session stores.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv         string `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production test"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	CatalogBackend string `envconfig:"CATALOG_BACKEND" default:"rest" validate:"oneof=rest postgres"`
	HttpServer     ServerConfig
	GrpcServer     GrpcServerConfig
	Supabase       SupabaseConfig
	Postgres       PostgresConfig
	Session        SessionConfig
	Admin          AdminConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// SupabaseConfig points at the managed backend project: REST tables, auth and storage.
type SupabaseConfig struct {
	URL       string `envconfig:"SUPABASE_URL" required:"true" validate:"url"`
	AnonKey   string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	JWTSecret string `envconfig:"SUPABASE_JWT_SECRET"` // Access tokens are verified locally when set
	Bucket    string `envconfig:"STORAGE_BUCKET" default:"product-images"`
}

// PostgresConfig holds PostgreSQL connection details, used only with CATALOG_BACKEND=postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME" default:"postgres"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"require"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// SessionConfig controls where admin sessions live.
type SessionConfig struct {
	Store      string        `envconfig:"SESSION_STORE" default:"memory" validate:"oneof=memory redis"`
	RedisURL   string        `envconfig:"REDIS_URL"`
	CookieName string        `envconfig:"SESSION_COOKIE_NAME" default:"storefront_session"`
	TTL        time.Duration `envconfig:"SESSION_TTL" default:"1h"` // Upper bound; sessions also end when the access token expires
	Secure     bool          `envconfig:"SESSION_COOKIE_SECURE" default:"true"`
}

// AdminConfig holds the admin panel settings.
type AdminConfig struct {
	// Emails is the raw ADMIN_EMAILS value: comma separated, empty means any signed-in user.
	Emails             string  `envconfig:"ADMIN_EMAILS"`
	MagicLinkRedirect  string  `envconfig:"MAGIC_LINK_REDIRECT_URL"`
	AuthRateLimitRPS   float64 `envconfig:"AUTH_RATE_LIMIT_RPS" default:"1" validate:"gt=0"`
	AuthRateLimitBurst int     `envconfig:"AUTH_RATE_LIMIT_BURST" default:"5" validate:"gt=0"`
}

// Load reads the configuration from environment variables and validates it.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field formats and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.CatalogBackend == BackendPostgres {
		var missing []string
		if c.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if c.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
		if len(missing) > 0 {
			return fmt.Errorf("invalid configuration: CATALOG_BACKEND=postgres requires %s", strings.Join(missing, ", "))
		}
	}

	if c.Session.Store == SessionStoreRedis && c.Session.RedisURL == "" {
		return fmt.Errorf("invalid configuration: SESSION_STORE=redis requires REDIS_URL")
	}
	return nil
}
