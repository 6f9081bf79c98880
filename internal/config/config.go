package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Placeholder OAuth credentials used when the environment does not provide any.
// Sign-in will fail at the provider but the server still starts.
const (
	PlaceholderClientID     = "dummy-client-id"
	PlaceholderClientSecret = "dummy-client-secret"
	PlaceholderSecret       = "development-secret-change-me"
)

// App holds the process configuration.
type App struct {
	Port    string `envconfig:"APP_PORT" default:"8080"`
	BaseURL string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`

	// Store
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017/vendor-management"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"vendor-management"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/vendora?sslmode=disable"`

	// OAuth
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID" default:"dummy-client-id"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET" default:"dummy-client-secret"`

	// Sessions
	SessionSecret string        `envconfig:"SESSION_SECRET" default:"development-secret-change-me"`
	SessionMaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"720h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"false"`

	// Redis (optional; enables server-side sign-out)
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	// .env is optional
	_ = godotenv.Load()

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks values envconfig cannot express with tags.
func (c App) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("config: SESSION_MAX_AGE must be positive")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("config: SESSION_SECRET must not be empty")
	}
	return nil
}

// UsesPlaceholderCredentials reports whether OAuth is running on the
// non-functional fallback client credentials.
func (c App) UsesPlaceholderCredentials() bool {
	return c.GoogleClientID == PlaceholderClientID || c.GoogleClientSecret == PlaceholderClientSecret
}

// UsesPlaceholderSecret reports whether sessions are signed with the
// development default secret.
func (c App) UsesPlaceholderSecret() bool {
	return c.SessionSecret == PlaceholderSecret
}
