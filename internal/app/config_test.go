package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		DatabaseURL: "postgres://storefront@localhost/storefront",
		Pricing:     PricingConfig{TaxRate: "0.05", DeliveryFee: "30.00"},
		Cart:        CartConfig{IdempotencyTTL: 10 * time.Second},
	}
}

func TestPricingConfig(t *testing.T) {
	p, err := PricingConfig{TaxRate: "0.18", DeliveryFee: "49.5"}.Pricing()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.18").Equal(p.TaxRate))
	assert.True(t, decimal.RequireFromString("49.50").Equal(p.DeliveryFee))

	_, err = PricingConfig{TaxRate: "five", DeliveryFee: "30"}.Pricing()
	assert.ErrorContains(t, err, "tax rate")

	_, err = PricingConfig{TaxRate: "0.05", DeliveryFee: "-1"}.Pricing()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database URL is required"},
		{name: "bad pricing", mutate: func(c *Config) { c.Pricing.DeliveryFee = "x" }, wantErr: "pricing"},
		{name: "zero ttl", mutate: func(c *Config) { c.Cart.IdempotencyTTL = 0 }, wantErr: "TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PORT", "9000")

	var cfg Config
	cfg.Addr = defaultAddr
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
}
