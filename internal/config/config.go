// Package config loads the application configuration from environment
// variables.
//
// WHY ENV VARS?
// Twelve-factor apps keep config out of code: the same binary runs in dev,
// CI, and production with nothing but a different environment. A .env file
// (loaded when present, silently skipped when not) keeps local development
// convenient without ever shipping secrets in the repo.
//
// WHY A LIBRARY INSTEAD OF os.Getenv?
// caarlos0/env turns the struct tags below into the whole parsing story —
// defaults, required fields, and type conversion (int, bool, duration) in
// one declarative place, instead of a page of Getenv/Atoi boilerplate.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every knob the server reads. One struct, parsed once in
// main, passed down explicitly — no package reaching into the environment
// on its own.
type Config struct {
	// HTTP
	Port        int    `env:"PORT" envDefault:"3001"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Storage
	DBPath string `env:"DB_PATH" envDefault:"data/strive-blog.db"`

	// Auth
	// JWT_SECRET has no default on purpose: a guessable default secret
	// would make every deployment forgeable.
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTLifetime time.Duration `env:"JWT_LIFETIME" envDefault:"24h"`

	// Google OAuth. When the client ID is empty the Google login routes
	// are not registered.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	// Transactional email. When SMTPHost is empty the mailer is a no-op.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM" envDefault:"noreply@strive.blog"`

	// Object storage for covers and avatars. When the endpoint is empty
	// upload routes return 503.
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"strive-blog"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// Setup/testing mode: unauthenticated CRUD mirrors for seeding demo
	// data. Never enable in production.
	EnableSetupRoutes bool   `env:"ENABLE_SETUP_ROUTES" envDefault:"false"`
	DefaultAuthorID   string `env:"DEFAULT_AUTHOR_ID"`

	// Upload limit in bytes for covers and avatars.
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"5242880"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine — production sets real env vars.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// GoogleEnabled reports whether the Google OAuth routes should be wired.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// MailEnabled reports whether a real SMTP mailer should be constructed.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// StorageEnabled reports whether the object store should be constructed.
func (c *Config) StorageEnabled() bool {
	return c.MinioEndpoint != ""
}
