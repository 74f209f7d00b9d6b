package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative product image paths" flag:"image-base-url"`
	Storage      StorageConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	Backend       string `default:"mongo" usage:"Storage backend: mongo or postgres"`
	MongoURI      string `usage:"MongoDB connection URI (SHOP_STORAGE_MONGO_URI, MONGO_URL or MONGO_PUBLIC_URL)" flag:"mongo-uri"`
	MongoDatabase string `default:"jokeshop" usage:"MongoDB database name" flag:"mongo-database"`
	PostgresURL   string `usage:"PostgreSQL connection URL (SHOP_STORAGE_POSTGRES_URL or DATABASE_URL)" flag:"postgres-url"`
}

// AuthConfig controls bearer token issuance.
type AuthConfig struct {
	JWTSecret string        `usage:"HMAC secret for signing tokens (SHOP_AUTH_JWT_SECRET or JWT_SECRET)" flag:"jwt-secret"`
	TokenTTL  time.Duration `default:"720h" usage:"Lifetime of issued tokens" flag:"token-ttl"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"10" usage:"Sustained requests per second per client"`
	Burst int     `default:"30" usage:"Maximum burst per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads the API server configuration from environment variables,
// flags and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	cfg, err := load(false)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorageConfig loads configuration for tools that only need storage.
// Command-line flags are left to the caller.
func LoadStorageConfig() (*StorageConfig, error) {
	cfg, err := load(true)
	if err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg.Storage, nil
}

func load(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.PostgresURL == "" {
		c.Storage.PostgresURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.MongoURI == "" {
		for _, key := range []string{"MONGO_URL", "MONGO_PUBLIC_URL"} {
			if v := os.Getenv(key); v != "" {
				c.Storage.MongoURI = v
				break
			}
		}
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required: set SHOP_AUTH_JWT_SECRET or JWT_SECRET")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return errors.Errorf("rate limit needs positive RPS and burst, got %v/%d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case BackendMongo:
		if s.MongoURI == "" {
			return errors.New("mongo URI is required: set SHOP_STORAGE_MONGO_URI or MONGO_URL")
		}
		if s.MongoDatabase == "" {
			return errors.New("mongo database name is required")
		}
	case BackendPostgres:
		if s.PostgresURL == "" {
			return errors.New("postgres URL is required: set SHOP_STORAGE_POSTGRES_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage backend %q", s.Backend)
	}
	return nil
}
