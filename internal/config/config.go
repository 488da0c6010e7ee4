// Package config loads gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const (
	sessionCookie       = "authjs.session-token"
	secureSessionCookie = "__Secure-authjs.session-token"
)

// Config is the complete gateway configuration.
type Config struct {
	Env string `env:"APP_ENV,default=development"`

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	Garmin    GarminConfig
	Strava    StravaConfig
	Stripe    StripeConfig
	CMS       CMSConfig
	Redis     RedisConfig
	Sync      SyncConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig

	RoutesFile string `env:"ROUTES_FILE"`

	routes *RoutesConfig
}

type ServerConfig struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	BaseURL         string        `env:"BASE_URL,default=http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	CheckoutWarn    time.Duration `env:"DB_CHECKOUT_WARN,default=5s"`
	HealthInterval  time.Duration `env:"DB_HEALTH_INTERVAL,default=30s"`
}

type AuthConfig struct {
	SessionSecret string        `env:"AUTH_SECRET"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL,default=720h"`
	MagicLinkTTL  time.Duration `env:"AUTH_MAGIC_LINK_TTL,default=15m"`
	AdminEmails   []string      `env:"AUTH_ADMIN_EMAILS"`

	CognitoDomain       string `env:"COGNITO_DOMAIN"`
	CognitoClientID     string `env:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string `env:"COGNITO_CLIENT_SECRET"`
	CognitoRedirectURI  string `env:"COGNITO_REDIRECT_URI"`
}

// CognitoEnabled reports whether the hosted identity provider is configured.
func (a AuthConfig) CognitoEnabled() bool {
	return a.CognitoDomain != "" && a.CognitoClientID != ""
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	Secure   bool   `env:"SMTP_SECURE,default=false"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM,default=no-reply@higherendeavors.com"`
}

type GarminConfig struct {
	ClientID     string `env:"GARMIN_CLIENT_ID"`
	ClientSecret string `env:"GARMIN_CLIENT_SECRET"`
	RedirectURI  string `env:"GARMIN_REDIRECT_URI"`
}

// Enabled reports whether credentials are present.
func (g GarminConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type StravaConfig struct {
	ClientID     string `env:"STRAVA_CLIENT_ID"`
	ClientSecret string `env:"STRAVA_CLIENT_SECRET"`
	RedirectURI  string `env:"STRAVA_REDIRECT_URI"`
}

// Enabled reports whether credentials are present.
func (s StravaConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

type StripeConfig struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	APIBase        string `env:"STRIPE_API_BASE,default=https://api.stripe.com"`
}

type CMSConfig struct {
	Endpoint  string        `env:"CMS_ENDPOINT"`
	APISecret string        `env:"CMS_API_SECRET"`
	CacheTTL  time.Duration `env:"CMS_CACHE_TTL,default=5m"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type SyncConfig struct {
	Schedule    string `env:"SYNC_SCHEDULE,default=@every 30m"`
	Concurrency int    `env:"SYNC_CONCURRENCY,default=4"`
	Enabled     bool   `env:"SYNC_ENABLED,default=true"`
}

type TelemetryConfig struct {
	Enabled          bool    `env:"TELEMETRY_ENABLED,default=false"`
	SampleRate       float64 `env:"TELEMETRY_SAMPLE_RATE,default=0.1"`
	ReplaySampleRate float64 `env:"TELEMETRY_REPLAY_SAMPLE_RATE,default=0"`
	ErrorReplayRate  float64 `env:"TELEMETRY_ERROR_REPLAY_RATE,default=1"`
	DSN              string  `env:"TELEMETRY_DSN"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
	Burst             int `env:"RATE_LIMIT_BURST,default=40"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

type FrontendConfig struct {
	UpstreamURL string `env:"FRONTEND_UPSTREAM_URL"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Load reads an optional .env file, decodes the environment and the route
// lists, and validates the result.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv decodes the current environment without validating it.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.Env = strings.ToLower(cfg.Env)
	cfg.Auth.AdminEmails = splitList(cfg.Auth.AdminEmails)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if cfg.RoutesFile != "" {
		routes, err := LoadRoutesConfigFromPath(cfg.RoutesFile)
		if err != nil {
			return nil, err
		}
		cfg.routes = routes
	} else {
		cfg.routes = DefaultRoutesConfig()
	}
	return &cfg, nil
}

// splitList accepts comma-separated entries inside envdecode's
// semicolon-separated slices and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate fails fast on settings the gateway cannot start without.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("APP_ENV: unknown environment %q", c.Env)
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Auth.SessionSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if c.IsProduction() && len(c.Auth.SessionSecret) < 32 {
		return errors.New("AUTH_SECRET must be at least 32 characters in production")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.New("TELEMETRY_SAMPLE_RATE must be between 0 and 1")
	}
	if c.Sync.Concurrency < 1 {
		c.Sync.Concurrency = 1
	}
	return nil
}

// Routes returns the route-protection lists.
func (c *Config) Routes() *RoutesConfig {
	if c.routes == nil {
		return DefaultRoutesConfig()
	}
	return c.routes
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SessionCookieName returns the session cookie name for the environment.
func (c *Config) SessionCookieName() string {
	return SessionCookieName(c.Env)
}

// SessionCookieName returns the session cookie name used in env.
func SessionCookieName(env string) string {
	if env == EnvProduction {
		return secureSessionCookie
	}
	return sessionCookie
}
