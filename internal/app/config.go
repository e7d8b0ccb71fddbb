package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, a .env file or YAML
// config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STOREFRONT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Redis        RedisConfig
	Pricing      PricingConfig
	Cart         CartConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RedisConfig points at the Redis instance shared by API replicas. Leaving
// Addr empty keeps the cart guard in process memory.
type RedisConfig struct {
	Addr     string `default:"" usage:"Redis address for the shared cart guard (empty disables Redis)"`
	Password string `default:"" usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database number"`
}

// PricingConfig holds the order pricing constants.
type PricingConfig struct {
	TaxRate     string `default:"0.05" usage:"Tax rate applied after coupon discount" flag:"tax-rate"`
	DeliveryFee string `default:"30.00" usage:"Flat delivery fee for non-empty orders" flag:"delivery-fee"`
}

// Pricing parses the configured constants.
func (c PricingConfig) Pricing() (order.Pricing, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse tax rate")
	}
	fee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse delivery fee")
	}
	if rate.IsNegative() || fee.IsNegative() {
		return order.Pricing{}, errors.New("tax rate and delivery fee must not be negative")
	}
	return order.Pricing{TaxRate: rate, DeliveryFee: fee}, nil
}

// CartConfig controls duplicate add-to-cart suppression.
type CartConfig struct {
	IdempotencyTTL time.Duration `default:"10s" usage:"How long an add-to-cart epoch is remembered" flag:"cart-idempotency-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
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

// LoadConfig loads a .env file if present, then environment variables and
// YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	if _, err := c.Pricing.Pricing(); err != nil {
		return errors.Wrap(err, "pricing")
	}
	if c.Cart.IdempotencyTTL <= 0 {
		return errors.New("cart idempotency TTL must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided variables with standard
// names (DATABASE_URL, REDIS_ADDR, PORT) onto the STOREFRONT_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
